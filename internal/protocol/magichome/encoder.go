package magichome

import (
	"fmt"
	"strings"
)

// ChannelOrder 灯带接线的通道顺序，例如 "rbg" 表示线序为 红-蓝-绿
type ChannelOrder string

const (
	OrderRGB ChannelOrder = "rgb"
	OrderRBG ChannelOrder = "rbg"
	OrderGRB ChannelOrder = "grb"
	OrderGBR ChannelOrder = "gbr"
	OrderBRG ChannelOrder = "brg"
	OrderBGR ChannelOrder = "bgr"
)

// ParseChannelOrder 解析通道顺序，空字符串视为 rgb
func ParseChannelOrder(s string) (ChannelOrder, error) {
	o := ChannelOrder(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "":
		return OrderRGB, nil
	case OrderRGB, OrderRBG, OrderGRB, OrderGBR, OrderBRG, OrderBGR:
		return o, nil
	}
	return "", fmt.Errorf("invalid channel order %q", s)
}

func (o ChannelOrder) normalized() string {
	if o == "" {
		return string(OrderRGB)
	}
	return string(o)
}

func (o ChannelOrder) toWire(c Color) [3]byte {
	var w [3]byte
	for i, ch := range o.normalized() {
		switch ch {
		case 'r':
			w[i] = c.R
		case 'g':
			w[i] = c.G
		case 'b':
			w[i] = c.B
		}
	}
	return w
}

func (o ChannelOrder) fromWire(w []byte) Color {
	var c Color
	for i, ch := range o.normalized() {
		switch ch {
		case 'r':
			c.R = w[i]
		case 'g':
			c.G = w[i]
		case 'b':
			c.B = w[i]
		}
	}
	return c
}

// Codec 无状态编解码器，Order 为灯带线序（零值为 rgb）
type Codec struct {
	Order ChannelOrder
}

// Encode 使用默认线序编码
func Encode(cmd Command) Frame {
	return Codec{}.Encode(cmd)
}

// Encode 将指令编码为完整帧（含校验和），不会失败
func (c Codec) Encode(cmd Command) Frame {
	var body []byte
	switch v := cmd.(type) {
	case PowerOn:
		body = []byte{opPower, powerOn, localTerminal}
	case PowerOff:
		body = []byte{opPower, powerOff, localTerminal}
	case SetColor:
		w := c.Order.toWire(v.Color)
		body = []byte{opColor, w[0], w[1], w[2], staticMarker, 0x00, localTerminal}
	case SetEffect:
		body = []byte{opEffect, byte(v.Effect), speedToWire(v.Speed), localTerminal}
	case QueryStatus:
		body = []byte{opStatus, statusArg1, statusArg2}
	default:
		panic(fmt.Sprintf("magichome: unhandled command %T", cmd))
	}
	return Frame(AppendChecksum(body))
}

// EncodeStatus 按设备格式构造一帧状态回复（模拟器与测试使用）
func EncodeStatus(s *Status) Frame {
	return Codec{}.EncodeStatus(s)
}

// EncodeStatus 构造状态回复帧，Checksum 字段被忽略并重新计算
func (c Codec) EncodeStatus(s *Status) Frame {
	body := make([]byte, StatusReplyLen-1)
	body[0] = opStatus
	body[1] = s.Model
	body[2] = powerOff
	if s.Power {
		body[2] = powerOn
	}
	body[3] = modeStatic
	if s.Mode == ModeEffect {
		body[3] = byte(s.Effect)
		body[5] = speedToWire(s.Speed)
	}
	body[4] = 0x23
	w := c.Order.toWire(s.Color)
	copy(body[6:9], w[:])
	body[9] = s.WarmWhite
	body[10] = s.Version
	return Frame(AppendChecksum(body))
}
