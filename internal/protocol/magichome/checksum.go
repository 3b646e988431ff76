package magichome

import "errors"

var (
	// ErrChecksumMismatch 校验和不匹配
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Checksum 计算 MagicHome 帧校验和
// 算法：对校验字节之前的所有字节累加，只保留低 8 位（byte 溢出自动丢弃高位）
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// VerifyChecksum 验证整帧最后一个字节是否为前面所有字节的校验和
func VerifyChecksum(frame []byte) error {
	if len(frame) < 1 {
		return errors.New("data too short for checksum verification")
	}
	pos := len(frame) - 1
	if frame[pos] != Checksum(frame[:pos]) {
		return ErrChecksumMismatch
	}
	return nil
}

// AppendChecksum 返回追加了校验字节的新切片，不修改入参
func AppendChecksum(data []byte) []byte {
	out := make([]byte, len(data)+1)
	copy(out, data)
	out[len(data)] = Checksum(data)
	return out
}
