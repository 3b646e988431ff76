package magichome

import (
	"fmt"
	"strings"
)

// DefaultPort 控制器默认 TCP 端口
const DefaultPort = 5577

// 协议常量（来自设备抓包）
const (
	opPower  byte = 0x71
	opColor  byte = 0x31
	opEffect byte = 0x61
	opStatus byte = 0x81

	powerOn  byte = 0x23
	powerOff byte = 0x24

	modeStatic    byte = 0x61
	staticMarker  byte = 0xFF
	localTerminal byte = 0x0F // 本地（非远程）指令结束符

	statusArg1 byte = 0x8A
	statusArg2 byte = 0x8B

	// MaxSpeed 效果速度上限，数值越大越快
	MaxSpeed = 100
)

// StatusReplyLen 状态查询回复的固定长度
const StatusReplyLen = 14

// Frame 一条完整的编码指令，最后一个字节为校验和
type Frame []byte

// Valid 判断帧是否满足校验和不变量
func (f Frame) Valid() bool {
	return VerifyChecksum(f) == nil
}

// String 十六进制展示，便于日志输出
func (f Frame) String() string {
	return fmt.Sprintf("% X", []byte(f))
}

// Color 三通道 RGB 颜色
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String 按 (r, g, b) 格式输出
func (c Color) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Effect 设备内置动态效果编号
type Effect byte

// 已知内置效果
const (
	EffectSevenColorCrossFade Effect = 0x25
	EffectRedGradual          Effect = 0x26
	EffectGreenGradual        Effect = 0x27
	EffectBlueGradual         Effect = 0x28
	EffectYellowGradual       Effect = 0x29
	EffectCyanGradual         Effect = 0x2A
	EffectPurpleGradual       Effect = 0x2B
	EffectWhiteGradual        Effect = 0x2C
	EffectRedGreenCrossFade   Effect = 0x2D
	EffectRedBlueCrossFade    Effect = 0x2E
	EffectGreenBlueCrossFade  Effect = 0x2F
	EffectSevenColorStrobe    Effect = 0x30
	EffectRedStrobe           Effect = 0x31
	EffectGreenStrobe         Effect = 0x32
	EffectBlueStrobe          Effect = 0x33
	EffectYellowStrobe        Effect = 0x34
	EffectCyanStrobe          Effect = 0x35
	EffectPurpleStrobe        Effect = 0x36
	EffectWhiteStrobe         Effect = 0x37
	EffectSevenColorJumping   Effect = 0x38
)

var effectNames = map[Effect]string{
	EffectSevenColorCrossFade: "seven_color_cross_fade",
	EffectRedGradual:          "red_gradual",
	EffectGreenGradual:        "green_gradual",
	EffectBlueGradual:         "blue_gradual",
	EffectYellowGradual:       "yellow_gradual",
	EffectCyanGradual:         "cyan_gradual",
	EffectPurpleGradual:       "purple_gradual",
	EffectWhiteGradual:        "white_gradual",
	EffectRedGreenCrossFade:   "red_green_cross_fade",
	EffectRedBlueCrossFade:    "red_blue_cross_fade",
	EffectGreenBlueCrossFade:  "green_blue_cross_fade",
	EffectSevenColorStrobe:    "seven_color_strobe",
	EffectRedStrobe:           "red_strobe",
	EffectGreenStrobe:         "green_strobe",
	EffectBlueStrobe:          "blue_strobe",
	EffectYellowStrobe:        "yellow_strobe",
	EffectCyanStrobe:          "cyan_strobe",
	EffectPurpleStrobe:        "purple_strobe",
	EffectWhiteStrobe:         "white_strobe",
	EffectSevenColorJumping:   "seven_color_jumping",
}

// Known 是否为已知效果
func (e Effect) Known() bool {
	_, ok := effectNames[e]
	return ok
}

func (e Effect) String() string {
	if name, ok := effectNames[e]; ok {
		return name
	}
	return fmt.Sprintf("effect(0x%02X)", byte(e))
}

// Effects 返回全部已知效果（按协议编号升序）
func Effects() []Effect {
	out := make([]Effect, 0, len(effectNames))
	for e := EffectSevenColorCrossFade; e <= EffectSevenColorJumping; e++ {
		out = append(out, e)
	}
	return out
}

// ParseEffect 按名称解析效果，名称大小写不敏感，允许 '-' 代替 '_'
func ParseEffect(name string) (Effect, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for e, s := range effectNames {
		if s == n {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", name)
}

// ClampSpeed 将速度限制在 [0, MaxSpeed]
func ClampSpeed(speed int) uint8 {
	if speed < 0 {
		return 0
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return uint8(speed)
}

// 设备使用反向延时字节：值越小越快
func speedToWire(speed uint8) byte {
	return MaxSpeed - ClampSpeed(int(speed))
}

func wireToSpeed(b byte) uint8 {
	if b > MaxSpeed {
		return 0
	}
	return MaxSpeed - b
}

// Mode 设备当前模式
type Mode int

const (
	ModeStatic Mode = iota
	ModeEffect
)

func (m Mode) String() string {
	if m == ModeEffect {
		return "effect"
	}
	return "static"
}

// Status 状态查询回复的解析结果
type Status struct {
	Power     bool
	Mode      Mode
	Color     Color
	Effect    Effect // 仅 ModeEffect 时有效
	Speed     uint8  // 仅 ModeEffect 时有效
	Model     byte
	Version   byte
	WarmWhite byte
	Checksum  byte
}

// ModeName 模式的可读名称：static 或效果名
func (s *Status) ModeName() string {
	if s.Mode == ModeEffect {
		return s.Effect.String()
	}
	return ModeStatic.String()
}
