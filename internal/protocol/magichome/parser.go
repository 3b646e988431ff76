package magichome

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed 回复长度或帧头不符合协议
	ErrMalformed = errors.New("malformed status reply")
	// ErrUnknownOpcode 回复中出现未知的电源/模式字节
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// UnknownOpcodeError 携带具体字段与取值的未知操作码错误
type UnknownOpcodeError struct {
	Field string
	Value byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown %s opcode 0x%02X", e.Field, e.Value)
}

// Is 使 errors.Is(err, ErrUnknownOpcode) 成立
func (e *UnknownOpcodeError) Is(target error) bool {
	return target == ErrUnknownOpcode
}

// 状态回复字段偏移
const (
	offHeader    = 0
	offModel     = 1
	offPower     = 2
	offMode      = 3
	offSpeed     = 5
	offChannels  = 6
	offWarmWhite = 9
	offVersion   = 10
)

// DecodeStatus 使用默认线序解析状态回复
func DecodeStatus(b []byte) (*Status, error) {
	return Codec{}.DecodeStatus(b)
}

// DecodeStatus 解析状态回复（严格校验：长度、checksum、帧头、操作码）
func (c Codec) DecodeStatus(b []byte) (*Status, error) {
	if len(b) != StatusReplyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformed, len(b), StatusReplyLen)
	}
	if err := VerifyChecksum(b); err != nil {
		return nil, err
	}
	if b[offHeader] != opStatus {
		return nil, fmt.Errorf("%w: header 0x%02X", ErrMalformed, b[offHeader])
	}

	st := &Status{
		Model:     b[offModel],
		Version:   b[offVersion],
		WarmWhite: b[offWarmWhite],
		Checksum:  b[StatusReplyLen-1],
		Color:     c.Order.fromWire(b[offChannels : offChannels+3]),
	}

	switch b[offPower] {
	case powerOn:
		st.Power = true
	case powerOff:
		st.Power = false
	default:
		return nil, &UnknownOpcodeError{Field: "power", Value: b[offPower]}
	}

	mode := b[offMode]
	switch {
	case mode == modeStatic:
		st.Mode = ModeStatic
	case Effect(mode).Known():
		st.Mode = ModeEffect
		st.Effect = Effect(mode)
		st.Speed = wireToSpeed(b[offSpeed])
	default:
		return nil, &UnknownOpcodeError{Field: "mode", Value: mode}
	}
	return st, nil
}
