// led 命令行：控制 MagicHome 局域网 LED 控制器，或以 serve 启动 HTTP 桥接服务。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	cfgpkg "github.com/coachtinho/led/internal/config"
	"github.com/coachtinho/led/internal/device"
	"github.com/coachtinho/led/internal/httpserver"
	"github.com/coachtinho/led/internal/logging"
	"github.com/coachtinho/led/internal/presets"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run 解析参数并执行；connect 为 nil 时按配置拨号真实设备
func run(args []string, stdout, stderr io.Writer, connect httpserver.Connector) int {
	fs := pflag.NewFlagSet("led", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringP("address", "a", "", "address of controller")
	fs.IntP("port", "p", 0, "port to access on the controller (default: 5577)")
	configPath := fs.String("config", "", "config file (yaml/json/toml)")
	fs.String("log-level", "", "log level: debug|info|warn|error")
	fs.String("channel-order", "", "strip wiring order: rgb|rbg|grb|gbr|brg|bgr")
	fs.String("presets", "", "preset YAML file merged over the built-in presets")
	fs.String("http-addr", "", "listen address for serve")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: led [flags] <status|on|off|rgb R G B|effect NAME [SPEED]|PRESET|presets|serve>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Failed loading config: %v\n", err)
		return 1
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Failed initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// 3) 预设
	table := presets.Defaults()
	if cfg.Presets.File != "" {
		if table, err = presets.Load(cfg.Presets.File); err != nil {
			fmt.Fprintf(stderr, "Failed loading presets: %v\n", err)
			return 1
		}
	}

	if fs.Arg(0) == "serve" {
		if cfg.Device.Address == "" {
			fmt.Fprintln(stderr, "Failed starting bridge: device address is required")
			return 1
		}
		if err := serve(cfg, table, logger); err != nil {
			fmt.Fprintf(stderr, "Failed starting bridge: %v\n", err)
			return 1
		}
		return 0
	}

	act, err := resolveAction(fs.Args(), table)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return 2
	}
	if act.run == nil {
		printPresets(stdout, table)
		return 0
	}
	if cfg.Device.Address == "" {
		fmt.Fprintln(stderr, "Failed creating session: --address is required")
		return 1
	}

	if connect == nil {
		connect = httpserver.DeviceConnector(cfg.Device, device.WithLogger(logger))
	}
	ctl, err := connect(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Failed creating session: %v\n", err)
		return 1
	}
	defer func() { _ = ctl.Close() }()
	fmt.Fprintln(stdout, "Connection successful")

	st, err := act.run(ctl)
	if err != nil {
		logger.Debug("action failed", zap.String("action", act.name), zap.Error(err))
		fmt.Fprintf(stderr, "Failed performing action: %v\n", err)
		return 1
	}
	if st != nil {
		printStatus(stdout, st)
	}
	fmt.Fprintf(stdout, "Performed action: %s\n", act.name)
	return 0
}
