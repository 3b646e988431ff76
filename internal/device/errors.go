package device

import (
	"errors"
	"fmt"
)

// ErrClosed 会话已关闭
var ErrClosed = errors.New("session closed")

// TransportError 连接/读写层面的错误，Op 为 dial|write|read
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport 判断错误是否来自传输层
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
