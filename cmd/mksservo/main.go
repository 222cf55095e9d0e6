package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	yml "gopkg.in/yaml.v2"

	"github.com/hipsterbrown/mks-servo/mksservo"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "mksservo.yml"
)

func root() {
	str := `mksservo talks to an MKS SERVO42C (v1.0 firmware) over a serial port.

Usage:
	mksservo <command> [flags]

Device commands:
	status
	subdivision -value N
	move -dir CW|CCW -speed N
	moveto -dir CW|CCW -speed N -pos N
	stop
	enable -status N
	active -level N
	save
	clear
	jog -dir CW|CCW -speed N -pulses N

Other commands:
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `mksservo reads mksservo.yml from the working directory, if present.
Any key can be overridden from the environment with an MKSSERVO_ prefix,
for example MKSSERVO_PORT=/dev/ttyACM0 MKSSERVO_BAUDRATE=115200.

Keys:
	port      serial device (default /dev/ttyUSB0)
	backend   "serial" (go.bug.st/serial) or "tarm" (github.com/tarm/serial)
	baudrate  default 9600; many setups run the servo at 115200
	timeout   reply timeout in seconds (default 1)
	address   slave address (default 224, i.e. 0xE0)
	pollrate  pulse counter reads per second during jog (default 100)

Numbers on the command line may be written in hex, e.g. -speed 0x70.

With a 1.8 degree motor and subdivision 8 one revolution is
(360 / 1.8) * 8 = 1600 pulses.`
	fmt.Println(str)
}

func mkconf() {
	c := mustConfig()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := mustConfig()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("mksservo version %v\n", Version)
}

func mustConfig() Config {
	k, err := loadConfig(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	c, err := unmarshalConfig(k)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func runDevice(name string, args []string) {
	cmd, ok := deviceCommands[name]
	if !ok {
		root()
		os.Exit(2)
	}

	c := mustConfig()
	linkCfg, err := c.LinkConfig()
	if err != nil {
		log.Fatal(err)
	}

	link, err := mksservo.NewLink(linkCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.run(ctx, link, c, args, os.Stdout); err != nil {
		link.Close()
		log.Fatalf("%s: %v", name, err)
	}
}

func main() {
	if len(os.Args) < 2 {
		root()
		return
	}

	cmd := os.Args[1]
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "version":
		pversion()
	default:
		runDevice(cmd, os.Args[2:])
	}
}
