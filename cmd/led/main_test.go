package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachtinho/led/internal/device"
	"github.com/coachtinho/led/internal/httpserver"
	"github.com/coachtinho/led/internal/presets"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

type fakeController struct {
	calls  []string
	color  magichome.Color
	effect magichome.Effect
	speed  int
	status *magichome.Status
	err    error
	closed bool
}

func (f *fakeController) PowerOn() error  { f.calls = append(f.calls, "on"); return f.err }
func (f *fakeController) PowerOff() error { f.calls = append(f.calls, "off"); return f.err }
func (f *fakeController) SetColor(c magichome.Color) error {
	f.calls = append(f.calls, "color")
	f.color = c
	return f.err
}
func (f *fakeController) SetEffect(e magichome.Effect, speed int) error {
	f.calls = append(f.calls, "effect")
	f.effect, f.speed = e, speed
	return f.err
}
func (f *fakeController) QueryStatus() (*magichome.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}
func (f *fakeController) Close() error { f.closed = true; return nil }

func connectTo(ctl *fakeController) httpserver.Connector {
	return func(context.Context) (httpserver.Controller, error) { return ctl, nil }
}

func TestResolveAction(t *testing.T) {
	table := presets.Defaults()
	tests := []struct {
		name   string
		args   []string
		action string
		call   string
		color  magichome.Color
		effect magichome.Effect
		speed  int
	}{
		{"开灯", []string{"on"}, "on", "on", magichome.Color{}, 0, 0},
		{"关灯", []string{"OFF"}, "off", "off", magichome.Color{}, 0, 0},
		{"状态", []string{"status"}, "status", "status", magichome.Color{}, 0, 0},
		{"预设颜色", []string{"yellow"}, "yellow", "color", magichome.Color{R: 255, G: 110}, 0, 0},
		{"直接指定", []string{"rgb", "1", "2", "3"}, "rgb(1, 2, 3)", "color", magichome.Color{R: 1, G: 2, B: 3}, 0, 0},
		{"预设效果", []string{"chaos"}, "chaos", "effect", magichome.Color{}, magichome.EffectRedStrobe, 95},
		{"按名称效果", []string{"effect", "green-strobe", "30"}, "green_strobe@30", "effect", magichome.Color{}, magichome.EffectGreenStrobe, 30},
		{"效果默认速度", []string{"effect", "white_gradual"}, "white_gradual@50", "effect", magichome.Color{}, magichome.EffectWhiteGradual, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := resolveAction(tt.args, table)
			require.NoError(t, err)
			assert.Equal(t, tt.action, act.name)

			ctl := &fakeController{status: &magichome.Status{}}
			_, err = act.run(ctl)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, ctl.calls)
			assert.Equal(t, tt.color, ctl.color)
			assert.Equal(t, tt.effect, ctl.effect)
			assert.Equal(t, tt.speed, ctl.speed)
		})
	}
}

func TestResolveAction_Errors(t *testing.T) {
	table := presets.Defaults()
	for _, args := range [][]string{
		nil,
		{"disco"},
		{"on", "now"},
		{"rgb", "1", "2"},
		{"rgb", "1", "2", "256"},
		{"rgb", "a", "2", "3"},
		{"effect"},
		{"effect", "nope"},
		{"effect", "red_strobe", "101"},
	} {
		_, err := resolveAction(args, table)
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}
}

func TestResolveAction_Presets(t *testing.T) {
	act, err := resolveAction([]string{"presets"}, presets.Defaults())
	require.NoError(t, err)
	assert.Nil(t, act.run)
}

func TestRun_Status(t *testing.T) {
	ctl := &fakeController{status: &magichome.Status{
		Power:  true,
		Mode:   magichome.ModeEffect,
		Effect: magichome.EffectSevenColorCrossFade,
		Speed:  99,
		Color:  magichome.Color{R: 255, B: 128},
	}}
	var stdout, stderr bytes.Buffer
	code := run([]string{"-a", "10.0.0.7", "status"}, &stdout, &stderr, connectTo(ctl))
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, "Connection successful\n"+
		"Power: on\n"+
		"Color: (255, 0, 128)\n"+
		"Mode: seven_color_cross_fade\n"+
		"Speed: 99\n"+
		"Performed action: status\n", stdout.String())
	assert.True(t, ctl.closed)
}

func TestRun_StaticStatusOmitsSpeed(t *testing.T) {
	ctl := &fakeController{status: &magichome.Status{Mode: magichome.ModeStatic}}
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"-a", "h", "status"}, &stdout, &stderr, connectTo(ctl)))
	assert.Contains(t, stdout.String(), "Power: off\n")
	assert.Contains(t, stdout.String(), "Mode: static\n")
	assert.NotContains(t, stdout.String(), "Speed:")
}

func TestRun_Failures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"on"}, &stdout, &stderr, connectTo(&fakeController{})), "缺少地址")

	stderr.Reset()
	dialErr := func(context.Context) (httpserver.Controller, error) {
		return nil, &device.TransportError{Op: "dial", Addr: "h:5577", Err: errors.New("refused")}
	}
	assert.Equal(t, 1, run([]string{"-a", "h", "on"}, &stdout, &stderr, dialErr))
	assert.Contains(t, stderr.String(), "Failed creating session")

	stderr.Reset()
	ctl := &fakeController{err: magichome.ErrChecksumMismatch}
	assert.Equal(t, 1, run([]string{"-a", "h", "status"}, &stdout, &stderr, connectTo(ctl)))
	assert.Contains(t, stderr.String(), "Failed performing action")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"-a", "h", "disco"}, &stdout, &stderr, connectTo(&fakeController{})))
}

func TestRun_PresetsNeedsNoDevice(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"presets"}, &stdout, &stderr, nil))
	assert.Contains(t, stdout.String(), "purple")
	assert.Contains(t, stdout.String(), "rainbow")
	assert.Contains(t, stdout.String(), "seven_color_jumping")
}

func TestReservedNamesAreActions(t *testing.T) {
	for _, name := range presets.Reserved {
		if name == "serve" {
			continue
		}
		_, err := resolveAction([]string{name}, presets.Defaults())
		if err != nil {
			assert.NotContains(t, err.Error(), "unknown action", name)
		}
	}
}
