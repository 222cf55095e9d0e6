package mksservo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipsterbrown/mks-servo/transports"
)

func newTestLink(t *testing.T, mock *transports.MockTransport) *Link {
	t.Helper()
	link, err := NewLink(Config{
		Transport: mock,
		Timeout:   30 * time.Millisecond,
		Address:   DefaultAddress,
	})
	require.NoError(t, err)
	t.Cleanup(func() { link.Close() })
	return link
}

func TestNewLink_Defaults(t *testing.T) {
	link, err := NewLink(Config{Transport: &transports.MockTransport{}})
	require.NoError(t, err)
	defer link.Close()

	assert.Equal(t, DefaultBaudRate, link.BaudRate())
	assert.Equal(t, DefaultTimeout, link.Timeout())
	assert.Equal(t, byte(0x00), link.Address())

	cfg := DefaultConfig("/dev/ttyUSB0")
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestNewLink_ZeroAddressIsKept(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0x00, 0x01}}
	link, err := NewLink(Config{Transport: mock, Timeout: 30 * time.Millisecond})
	require.NoError(t, err)
	defer link.Close()

	require.NoError(t, link.Stop(context.Background()))
	assert.Equal(t, [][]byte{{0x00, 0xF7}}, mock.Writes)
}

func TestNewLink_ConnectionError(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no port", Config{}},
		{"missing device", Config{Port: "/dev/mks-servo-does-not-exist"}},
		{"missing device via tarm", Config{Port: "/dev/mks-servo-does-not-exist", Backend: BackendTarm}},
		{"unknown backend", Config{Port: "/dev/ttyUSB0", Backend: "carrier-pigeon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := NewLink(tt.cfg)
			assert.Nil(t, link)

			connErr, ok := GetConnectionError(err)
			require.True(t, ok, "expected ConnectionError, got %v", err)
			assert.Equal(t, tt.cfg.Port, connErr.Port)
		})
	}
}

func TestLink_MoveTo(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01}}
	link := newTestLink(t, mock)

	err := link.MoveTo(context.Background(), CW, 0x70, 0x0080)
	require.NoError(t, err)

	assert.Equal(t, []byte{0xE0, 0xFD, 0xF0, 0x00, 0x80}, mock.WriteData)
	assert.Len(t, mock.Writes, 1, "frame must go out in one write")
	assert.True(t, mock.Flushed)
}

func TestLink_Move(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01, 0xE0, 0x01}}
	link := newTestLink(t, mock)
	ctx := context.Background()

	require.NoError(t, link.Move(ctx, CW, 0x70))
	require.NoError(t, link.Move(ctx, CCW, 0x70))

	assert.Equal(t, [][]byte{{0xE0, 0xF6, 0xF0}, {0xE0, 0xF6, 0x70}}, mock.Writes)
}

func TestLink_InvalidDirection(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01}}
	link := newTestLink(t, mock)
	ctx := context.Background()

	err := link.Move(ctx, Direction("LEFT"), 0x10)
	assert.True(t, IsInvalidArgument(err))

	err = link.MoveTo(ctx, Direction("cw"), 0x10, 100)
	assert.True(t, IsInvalidArgument(err))

	assert.Empty(t, mock.WriteData, "nothing may be sent for a rejected direction")
}

func TestLink_StopTwice(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01, 0xE0, 0x01}}
	link := newTestLink(t, mock)
	ctx := context.Background()

	require.NoError(t, link.Stop(ctx))
	require.NoError(t, link.Stop(ctx))

	assert.Equal(t, [][]byte{{0xE0, 0xF7}, {0xE0, 0xF7}}, mock.Writes)
	assert.Equal(t, 2, mock.Drained)
	assert.Empty(t, mock.ReadData, "each stop consumes its own reply")
}

func TestLink_Configuration(t *testing.T) {
	tests := []struct {
		name  string
		call  func(ctx context.Context, l *Link) error
		reply []byte
		want  []byte
	}{
		{
			"set subdivision",
			func(ctx context.Context, l *Link) error { return l.SetSubdivision(ctx, 0x08) },
			[]byte{0xE0, 0x01},
			[]byte{0xE0, 0x84, 0x08},
		},
		{
			"set active of EN pin",
			func(ctx context.Context, l *Link) error { return l.SetActiveOfEnPin(ctx, 0x01) },
			[]byte{0xE0, 0x01},
			[]byte{0xE0, 0x85, 0x01, 0x66},
		},
		{
			"set EN pin status",
			func(ctx context.Context, l *Link) error { return l.SetEnPinStatus(ctx, 0x01) },
			[]byte{0xE0, 0x01, 0x00},
			[]byte{0xE0, 0xF3, 0x01},
		},
		{
			"save constant speed",
			func(ctx context.Context, l *Link) error { return l.SaveConstantSpeed(ctx) },
			[]byte{0xE0, 0x01},
			[]byte{0xE0, 0xFF, 0xC8},
		},
		{
			"clear constant speed",
			func(ctx context.Context, l *Link) error { return l.ClearConstantSpeed(ctx) },
			[]byte{0xE0, 0x01},
			[]byte{0xE0, 0xFF, 0xCA},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &transports.MockTransport{ReadData: tt.reply}
			link := newTestLink(t, mock)

			require.NoError(t, tt.call(context.Background(), link))
			assert.Equal(t, tt.want, mock.WriteData)
			assert.Empty(t, mock.ReadData)
		})
	}
}

func TestLink_Readings(t *testing.T) {
	ctx := context.Background()

	t.Run("pulses received", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0xFF, 0xFF, 0xFF, 0xF0}}
		link := newTestLink(t, mock)

		pulses, err := link.ReadPulsesReceived(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(-16), pulses)
		assert.Equal(t, []byte{0xE0, 0x33}, mock.WriteData)
	})

	t.Run("motor shaft angle", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0xFF, 0xFF, 0xFF, 0xF0}}
		link := newTestLink(t, mock)

		angle, err := link.ReadMotorShaftAngle(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(4294967280), angle)
	})

	t.Run("motor shaft error angle", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0xFF, 0x00}}
		link := newTestLink(t, mock)

		errAngle, err := link.ReadMotorShaftErrorAngle(ctx)
		require.NoError(t, err)
		assert.Equal(t, int16(-256), errAngle)
	})

	t.Run("encoder value is returned", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x3F, 0xFF}}
		link := newTestLink(t, mock)

		enc, err := link.ReadEncoderValue(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x3FFF), enc)
		assert.Equal(t, []byte{0xE0, 0x30}, mock.WriteData)
	})

	t.Run("motor shaft status", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x02}}
		link := newTestLink(t, mock)

		status, err := link.ReadMotorShaftStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, byte(0x02), status)
	})

	t.Run("EN pin status", func(t *testing.T) {
		mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01}}
		link := newTestLink(t, mock)

		status, err := link.ReadEnPinStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, byte(0x01), status)
		assert.Equal(t, []byte{0xE0, 0x3A}, mock.WriteData)
	})
}

func TestLink_FragmentedReply(t *testing.T) {
	reply := []byte{0xE0, 0x00, 0x00, 0x01, 0x90}
	mock := &transports.MockTransport{}
	mock.ReadFunc = func(p []byte) (int, error) {
		if len(reply) == 0 {
			return 0, nil
		}
		n := copy(p[:1], reply)
		reply = reply[n:]
		return n, nil
	}
	link := newTestLink(t, mock)

	pulses, err := link.ReadPulsesReceived(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(400), pulses)
}

func TestLink_ShortReply(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0xFF, 0xFF}}
	link := newTestLink(t, mock)

	pulses, err := link.ReadPulsesReceived(context.Background())
	assert.Zero(t, pulses)

	decodeErr, ok := GetDecodeError(err)
	require.True(t, ok, "expected DecodeError, got %v", err)
	assert.Equal(t, []byte{0xE0, 0xFF, 0xFF}, decodeErr.Got)
	assert.Equal(t, 5, decodeErr.Want)
	assert.False(t, IsNoResponse(err))
}

func TestLink_NoResponse(t *testing.T) {
	mock := &transports.MockTransport{}
	link := newTestLink(t, mock)

	start := time.Now()
	_, err := link.ReadMotorShaftAngle(context.Background())
	assert.True(t, IsNoResponse(err))
	assert.ErrorIs(t, err, ErrShortReply)
	assert.GreaterOrEqual(t, time.Since(start), link.Timeout())
}

func TestLink_WriteCommandShortReply(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0}}
	link := newTestLink(t, mock)

	err := link.SetSubdivision(context.Background(), 0x08)
	_, ok := GetDecodeError(err)
	assert.True(t, ok, "expected DecodeError, got %v", err)
}

func TestLink_WriteError(t *testing.T) {
	writeErr := errors.New("device unplugged")
	mock := &transports.MockTransport{WriteErr: writeErr}
	link := newTestLink(t, mock)

	err := link.Stop(context.Background())
	var commErr *CommError
	require.ErrorAs(t, err, &commErr)
	assert.Equal(t, CmdStopMotor.Name, commErr.Op)
	assert.ErrorIs(t, err, writeErr)
}

func TestLink_FlushError(t *testing.T) {
	flushErr := errors.New("input buffer reset failed")
	mock := &transports.MockTransport{FlushErr: flushErr, ReadData: []byte{0xE0, 0x01}}
	link := newTestLink(t, mock)

	err := link.Stop(context.Background())
	var commErr *CommError
	require.ErrorAs(t, err, &commErr)
	assert.Equal(t, CmdStopMotor.Name, commErr.Op)
	assert.ErrorIs(t, err, flushErr)
	assert.Empty(t, mock.Writes, "nothing is sent after a failed flush")
}

func TestLink_SetReadTimeoutError(t *testing.T) {
	timeoutErr := errors.New("invalid timeout")
	mock := &transports.MockTransport{TimeoutErr: timeoutErr, ReadData: []byte{0xE0, 0x02}}
	link := newTestLink(t, mock)

	_, err := link.ReadMotorShaftStatus(context.Background())
	var commErr *CommError
	require.ErrorAs(t, err, &commErr)
	assert.Equal(t, CmdReadMotorShaftStatus.Name, commErr.Op)
	assert.ErrorIs(t, err, timeoutErr)
}

func TestLink_ReadError(t *testing.T) {
	readErr := errors.New("framing error")
	mock := &transports.MockTransport{ReadErr: readErr}
	link := newTestLink(t, mock)

	_, err := link.ReadMotorShaftStatus(context.Background())
	var commErr *CommError
	require.ErrorAs(t, err, &commErr)
	assert.ErrorIs(t, err, readErr)
}

func TestLink_Close(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01}}
	link, err := NewLink(Config{Transport: mock, Address: DefaultAddress})
	require.NoError(t, err)

	require.NoError(t, link.Close())
	require.NoError(t, link.Close())
	assert.Equal(t, 1, mock.CloseCount)

	err = link.Stop(context.Background())
	assert.ErrorIs(t, err, ErrLinkClosed)
	assert.Empty(t, mock.WriteData)
}

func TestLink_CanceledContext(t *testing.T) {
	mock := &transports.MockTransport{ReadData: []byte{0xE0, 0x01}}
	link := newTestLink(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := link.Stop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mock.WriteData)
}

func TestLink_ConcurrentCallers(t *testing.T) {
	mock := &transports.MockTransport{}
	mock.ReadFunc = func(p []byte) (int, error) {
		return copy(p, []byte{0xE0, 0x00, 0x00, 0x00, 0x07}), nil
	}
	link := newTestLink(t, mock)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pulses, err := link.ReadPulsesReceived(context.Background())
			if err == nil && pulses != 7 {
				err = errors.New("interleaved reply")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	require.Len(t, mock.Writes, callers)
	for _, w := range mock.Writes {
		assert.Equal(t, []byte{0xE0, 0x33}, w)
	}
}
