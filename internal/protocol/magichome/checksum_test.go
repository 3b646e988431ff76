package magichome

import (
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{
			name:     "空数据",
			data:     []byte{},
			expected: 0x00,
		},
		{
			name:     "单字节",
			data:     []byte{0xAA},
			expected: 0xAA,
		},
		{
			name:     "溢出截断",
			data:     []byte{0xAA, 0xAA},
			expected: 0x54, // 0x154 -> 0x54
		},
		{
			name:     "白色静态指令",
			data:     []byte{0x31, 0xff, 0xff, 0x00, 0xff, 0x00, 0x0f},
			expected: 0x3d,
		},
		{
			name:     "状态查询",
			data:     []byte{0x81, 0x8a, 0x8b},
			expected: 0x96,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Checksum(tt.data)
			if result != tt.expected {
				t.Errorf("Checksum() = 0x%02X, expected 0x%02X", result, tt.expected)
			}
		})
	}
}

func TestVerifyChecksum(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"空数据", []byte{}, true},
		{"正确的校验和", []byte{0x71, 0x23, 0x0f, 0xa3}, false},
		{"错误的校验和", []byte{0x71, 0x23, 0x0f, 0xa4}, true},
		{"仅校验字节", []byte{0x00}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyChecksum(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("VerifyChecksum() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAppendChecksum_DoesNotAlias(t *testing.T) {
	data := make([]byte, 3, 8)
	copy(data, []byte{0x71, 0x24, 0x0f})
	out := AppendChecksum(data)
	out[0] = 0x00
	if data[0] != 0x71 {
		t.Fatalf("输入被修改: % X", data)
	}
	if len(out) != 4 || out[3] != 0xa4 {
		t.Fatalf("输出不符合预期: % X", out)
	}
}
