package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/hipsterbrown/mks-servo/mksservo"
)

const envPrefix = "MKSSERVO_"

// Config is the on-disk configuration of the CLI.
type Config struct {
	// Port is the serial device, e.g. /dev/ttyUSB0 or COM3
	Port string `koanf:"port" yaml:"port"`

	// Backend is the serial library, "serial" or "tarm"
	Backend string `koanf:"backend" yaml:"backend"`

	BaudRate int `koanf:"baudrate" yaml:"baudrate"`

	// Timeout is the reply timeout in seconds
	Timeout float64 `koanf:"timeout" yaml:"timeout"`

	// Address is the slave address, 224 (0xE0) from the factory
	Address int `koanf:"address" yaml:"address"`

	// PollRate caps how many times per second jog reads the pulse counter
	PollRate float64 `koanf:"pollrate" yaml:"pollrate"`
}

func defaultConfig() Config {
	return Config{
		Port:     "/dev/ttyUSB0",
		Backend:  mksservo.BackendSerial,
		BaudRate: mksservo.DefaultBaudRate,
		Timeout:  mksservo.DefaultTimeout.Seconds(),
		Address:  int(mksservo.DefaultAddress),
		PollRate: 100,
	}
}

// loadConfig layers defaults, the YAML file at path (if present) and
// MKSSERVO_* environment variables, in that order.
func loadConfig(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}
	return k, nil
}

func unmarshalConfig(k *koanf.Koanf) (Config, error) {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		return c, err
	}
	return c, nil
}

// LinkConfig converts the CLI configuration for mksservo.NewLink.
func (c Config) LinkConfig() (mksservo.Config, error) {
	if c.Address < 0 || c.Address > 0xFF {
		return mksservo.Config{}, fmt.Errorf("address %d out of range 0-255", c.Address)
	}
	if c.Timeout < 0 {
		return mksservo.Config{}, fmt.Errorf("negative timeout %v", c.Timeout)
	}
	return mksservo.Config{
		Port:     c.Port,
		Backend:  c.Backend,
		BaudRate: c.BaudRate,
		Timeout:  time.Duration(c.Timeout * float64(time.Second)),
		Address:  byte(c.Address),
	}, nil
}
