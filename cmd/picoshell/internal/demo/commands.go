// Package demo holds the sample device commands the picoshell binary
// registers, so the shell can be tried without a host application.
package demo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sipeed/picoshell/pkg/commands"
)

// Device is a toy peripheral with an enable flag and eight LEDs.
type Device struct {
	started time.Time

	mu      sync.Mutex
	enabled bool
	leds    [8]bool
}

func NewDevice() *Device {
	return &Device{started: time.Now(), enabled: true}
}

// Definitions returns the demo commands bound to d.
func (d *Device) Definitions() []commands.Definition {
	return []commands.Definition{
		{
			Name:        "add",
			Description: "Add two integers",
			Params:      []commands.ParamType{commands.TypeInt, commands.TypeInt},
			Handler: func(_ context.Context, req commands.Request) error {
				return req.Reply(strconv.Itoa(req.Int(0) + req.Int(1)))
			},
		},
		{
			Name:        "mul",
			Description: "Multiply two longs",
			Params:      []commands.ParamType{commands.TypeLong, commands.TypeLong},
			Handler: func(_ context.Context, req commands.Request) error {
				return req.Reply(strconv.FormatInt(req.Int64(0)*req.Int64(1), 10))
			},
		},
		{
			Name:        "greet",
			Description: "Say hello",
			Params:      []commands.ParamType{commands.TypeString},
			Handler: func(_ context.Context, req commands.Request) error {
				return req.Reply("Hello, " + req.String(0) + "!")
			},
		},
		{
			Name:        "enable",
			Description: "Enable or disable the device",
			Params:      []commands.ParamType{commands.TypeBool},
			Handler:     d.enable,
		},
		{
			Name:        "led",
			Description: "Switch LED n (0-7) on or off",
			Params:      []commands.ParamType{commands.TypeByte, commands.TypeBool},
			Handler:     d.led,
		},
		{
			Name:        "status",
			Description: "Show device state",
			Handler:     d.status,
		},
		{
			Name:        "uptime",
			Description: "Show time since start",
			Handler: func(_ context.Context, req commands.Request) error {
				return req.Reply(time.Since(d.started).Truncate(time.Second).String())
			},
		},
	}
}

// NewRegistry returns the builtins plus the demo commands for a fresh
// device.
func NewRegistry() *commands.Registry {
	return commands.NewRegistry(append(commands.BuiltinDefinitions(), NewDevice().Definitions()...))
}

func (d *Device) enable(_ context.Context, req commands.Request) error {
	d.mu.Lock()
	d.enabled = req.Bool(0)
	d.mu.Unlock()

	if req.Bool(0) {
		return req.Reply("Device enabled")
	}
	return req.Reply("Device disabled")
}

func (d *Device) led(_ context.Context, req commands.Request) error {
	n := req.Int(0)
	if n < 0 || n >= len(d.leds) {
		return fmt.Errorf("led %d out of range 0-%d", n, len(d.leds)-1)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return errors.New("device disabled")
	}
	d.leds[n] = req.Bool(1)

	state := "off"
	if d.leds[n] {
		state = "on"
	}
	return req.Reply(fmt.Sprintf("LED %d %s", n, state))
}

func (d *Device) status(_ context.Context, req commands.Request) error {
	d.mu.Lock()
	enabled := d.enabled
	var mask []byte
	for _, on := range d.leds {
		if on {
			mask = append(mask, '1')
		} else {
			mask = append(mask, '0')
		}
	}
	d.mu.Unlock()

	return req.Reply(fmt.Sprintf("enabled=%t leds=%s", enabled, mask))
}
