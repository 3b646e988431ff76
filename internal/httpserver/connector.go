package httpserver

import (
	"context"

	cfgpkg "github.com/coachtinho/led/internal/config"
	"github.com/coachtinho/led/internal/device"
)

// DeviceConnector 按配置为每个请求拨号一条新的控制器会话
func DeviceConnector(cfg cfgpkg.DeviceConfig, opts ...device.Option) Connector {
	base := []device.Option{
		device.WithDialTimeout(cfg.DialTimeout),
		device.WithIOTimeout(cfg.IOTimeout),
		device.WithChannelOrder(cfg.Order()),
		device.WithEffectPowerOn(cfg.EffectPowerOn),
	}
	all := append(base, opts...)
	return func(ctx context.Context) (Controller, error) {
		s, err := device.Dial(ctx, cfg.Address, cfg.Port, all...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
