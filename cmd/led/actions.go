package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coachtinho/led/internal/httpserver"
	"github.com/coachtinho/led/internal/presets"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

// action 一次命令行操作；run 为 nil 表示无需连接设备
type action struct {
	name string
	run  func(ctl httpserver.Controller) (*magichome.Status, error)
}

var errUsage = errors.New("usage")

// resolveAction 把位置参数解析为操作：
// status | on | off | rgb R G B | effect NAME [SPEED] | <颜色预设> | <效果预设> | presets
func resolveAction(args []string, table *presets.Table) (action, error) {
	if len(args) == 0 {
		return action{}, fmt.Errorf("%w: missing action", errUsage)
	}
	name := strings.ToLower(args[0])
	rest := args[1:]

	switch name {
	case "status":
		return noArgs(name, rest, func(ctl httpserver.Controller) (*magichome.Status, error) {
			return ctl.QueryStatus()
		})
	case "on":
		return noArgs(name, rest, func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.PowerOn()
		})
	case "off":
		return noArgs(name, rest, func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.PowerOff()
		})
	case "presets":
		return action{name: name}, nil
	case "rgb":
		return rgbAction(rest)
	case "effect":
		return effectAction(rest)
	}

	if c, ok := table.Color(name); ok {
		return noArgs(name, rest, func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.SetColor(c)
		})
	}
	if p, ok := table.Effect(name); ok {
		return noArgs(name, rest, func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.SetEffect(p.Effect, p.Speed)
		})
	}
	return action{}, fmt.Errorf("%w: unknown action %q", errUsage, args[0])
}

func noArgs(name string, rest []string, run func(httpserver.Controller) (*magichome.Status, error)) (action, error) {
	if len(rest) > 0 {
		return action{}, fmt.Errorf("%w: %s takes no arguments", errUsage, name)
	}
	return action{name: name, run: run}, nil
}

func rgbAction(rest []string) (action, error) {
	if len(rest) != 3 {
		return action{}, fmt.Errorf("%w: rgb requires R G B", errUsage)
	}
	var ch [3]uint8
	for i, s := range rest {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return action{}, fmt.Errorf("%w: invalid channel value %q (0..255)", errUsage, s)
		}
		ch[i] = uint8(v)
	}
	c := magichome.Color{R: ch[0], G: ch[1], B: ch[2]}
	return action{
		name: "rgb" + c.String(),
		run: func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.SetColor(c)
		},
	}, nil
}

func effectAction(rest []string) (action, error) {
	if len(rest) < 1 || len(rest) > 2 {
		return action{}, fmt.Errorf("%w: effect requires NAME [SPEED]", errUsage)
	}
	e, err := magichome.ParseEffect(rest[0])
	if err != nil {
		return action{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	speed := magichome.MaxSpeed / 2
	if len(rest) == 2 {
		speed, err = strconv.Atoi(rest[1])
		if err != nil || speed < 0 || speed > magichome.MaxSpeed {
			return action{}, fmt.Errorf("%w: invalid speed %q (0..100)", errUsage, rest[1])
		}
	}
	return action{
		name: fmt.Sprintf("%s@%d", e, speed),
		run: func(ctl httpserver.Controller) (*magichome.Status, error) {
			return nil, ctl.SetEffect(e, speed)
		},
	}, nil
}

func printStatus(w io.Writer, st *magichome.Status) {
	power := "off"
	if st.Power {
		power = "on"
	}
	fmt.Fprintf(w, "Power: %s\n", power)
	fmt.Fprintf(w, "Color: %s\n", st.Color)
	fmt.Fprintf(w, "Mode: %s\n", st.ModeName())
	if st.Mode == magichome.ModeEffect {
		fmt.Fprintf(w, "Speed: %d\n", st.Speed)
	}
}

func printPresets(w io.Writer, table *presets.Table) {
	fmt.Fprintln(w, "Colors:")
	for _, name := range table.ColorNames() {
		c, _ := table.Color(name)
		fmt.Fprintf(w, "  %-10s %s\n", name, c)
	}
	fmt.Fprintln(w, "Effects:")
	for _, name := range table.EffectNames() {
		p, _ := table.Effect(name)
		fmt.Fprintf(w, "  %-10s %s speed=%d\n", name, p.Effect, p.Speed)
	}
	fmt.Fprintln(w, "Built-in effects:")
	for _, e := range magichome.Effects() {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
