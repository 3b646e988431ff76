package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachtinho/led/internal/protocol/magichome"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "led.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("LED_CONFIG", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, magichome.DefaultPort, cfg.Device.Port)
	assert.Equal(t, 5*time.Second, cfg.Device.DialTimeout)
	assert.True(t, cfg.Device.EffectPowerOn)
	assert.Equal(t, magichome.OrderRGB, cfg.Device.Order())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5, cfg.HTTP.RateLimit.PerSecond)
	assert.Empty(t, cfg.Logging.File.Filename)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
device:
  address: 192.168.1.50
  port: 6000
  channelOrder: rbg
  ioTimeout: 2s
logging:
  level: debug
`)
	t.Setenv("LED_DEVICE_PORT", "7000")

	flags := pflag.NewFlagSet("led", pflag.ContinueOnError)
	flags.StringP("address", "a", "", "")
	flags.IntP("port", "p", 0, "")
	require.NoError(t, flags.Parse([]string{"-a", "10.0.0.9"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", cfg.Device.Address, "命令行参数优先于配置文件")
	assert.Equal(t, 7000, cfg.Device.Port, "环境变量优先于配置文件，未设置的参数不覆盖")
	assert.Equal(t, magichome.OrderRBG, cfg.Device.Order())
	assert.Equal(t, 2*time.Second, cfg.Device.IOTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"端口越界", "device:\n  port: 70000\n"},
		{"线序非法", "device:\n  channelOrder: rgbw\n"},
		{"限流为负", "http:\n  rateLimit:\n    burst: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
