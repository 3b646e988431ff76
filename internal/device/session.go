package device

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachtinho/led/internal/protocol/magichome"
)

// Session 与单个控制器之间的一条 TCP 连接。
//
// 所有方法同步阻塞，不做重试；同一个 Session 不支持并发调用，
// 多台设备请各自创建 Session。传输错误后会话状态不确定，调用方应 Close 后重建。
type Session struct {
	id     string
	addr   string
	conn   net.Conn
	codec  magichome.Codec
	opts   options
	log    *zap.Logger
	closed bool
}

// Connect 连接控制器，port 为 0 时使用默认端口 5577
func Connect(address string, port int, opts ...Option) (*Session, error) {
	return Dial(context.Background(), address, port, opts...)
}

// Dial 同 Connect，ctx 只作用于建立连接阶段
func Dial(ctx context.Context, address string, port int, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if port == 0 {
		port = magichome.DefaultPort
	}
	addr := net.JoinHostPort(address, strconv.Itoa(port))

	dialer := o.dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if o.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.dialTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if o.metrics != nil {
		o.metrics.DialDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.TransportErrors.WithLabelValues("dial").Inc()
		}
		o.logger.Warn("controller dial failed", zap.String("addr", addr), zap.Error(err))
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}
	return newSession(conn, addr, o), nil
}

// NewSession 包装一条已建立的连接（隧道、测试替身等）
func NewSession(conn net.Conn, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return newSession(conn, addr, o)
}

func newSession(conn net.Conn, addr string, o options) *Session {
	s := &Session{
		id:    uuid.New().String(),
		addr:  addr,
		conn:  conn,
		codec: magichome.Codec{Order: o.order},
		opts:  o,
	}
	s.log = o.logger.With(zap.String("session_id", s.id), zap.String("addr", addr))
	s.log.Debug("controller connected")
	return s
}

// ID 会话唯一标识（仅用于日志关联）
func (s *Session) ID() string { return s.id }

// Addr 控制器地址 host:port
func (s *Session) Addr() string { return s.addr }

// PowerOn 开灯，设备不回复
func (s *Session) PowerOn() error {
	return s.send(magichome.PowerOn{})
}

// PowerOff 关灯，设备不回复
func (s *Session) PowerOff() error {
	return s.send(magichome.PowerOff{})
}

// SetColor 切换为静态颜色
func (s *Session) SetColor(c magichome.Color) error {
	return s.send(magichome.SetColor{Color: c})
}

// SetEffect 切换内置效果，speed 超出 0..100 时截断
func (s *Session) SetEffect(e magichome.Effect, speed int) error {
	if s.closed {
		return s.closedErr("write")
	}
	if s.opts.effectPowerOn {
		if err := s.send(magichome.PowerOn{}); err != nil {
			return err
		}
	}
	return s.send(magichome.SetEffect{Effect: e, Speed: magichome.ClampSpeed(speed)})
}

// QueryStatus 查询设备状态：写入查询帧，阻塞读取固定长度回复并校验
func (s *Session) QueryStatus() (*magichome.Status, error) {
	if err := s.send(magichome.QueryStatus{}); err != nil {
		return nil, err
	}

	buf := make([]byte, magichome.StatusReplyLen)
	if s.opts.ioTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.ioTimeout)); err != nil {
			s.transportFailed("read", err)
			return nil, &TransportError{Op: "read", Addr: s.addr, Err: err}
		}
	}
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		s.transportFailed("read", err)
		return nil, &TransportError{Op: "read", Addr: s.addr, Err: err}
	}

	st, err := s.codec.DecodeStatus(buf)
	if s.opts.metrics != nil {
		s.opts.metrics.StatusDecode.WithLabelValues(decodeResult(err)).Inc()
	}
	if err != nil {
		s.log.Warn("status reply rejected", zap.Binary("reply", buf), zap.Error(err))
		return nil, err
	}
	s.log.Debug("status received",
		zap.Bool("power", st.Power),
		zap.String("mode", st.ModeName()),
		zap.Stringer("color", st.Color))
	return st, nil
}

// Close 释放连接；之后的任何调用都返回 ErrClosed
func (s *Session) Close() error {
	if s.closed {
		return s.closedErr("close")
	}
	s.closed = true
	s.log.Debug("controller session closed")
	return s.conn.Close()
}

func (s *Session) send(cmd magichome.Command) error {
	if s.closed {
		return s.closedErr("write")
	}
	frame := s.codec.Encode(cmd)
	if s.opts.ioTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.ioTimeout)); err != nil {
			s.transportFailed("write", err)
			return &TransportError{Op: "write", Addr: s.addr, Err: err}
		}
	}
	if _, err := s.conn.Write(frame); err != nil {
		s.transportFailed("write", err)
		return &TransportError{Op: "write", Addr: s.addr, Err: err}
	}
	if m := s.opts.metrics; m != nil {
		m.FramesSent.WithLabelValues(cmd.Name()).Inc()
		m.BytesSent.Add(float64(len(frame)))
	}
	s.log.Debug("frame sent", zap.String("command", cmd.Name()), zap.Stringer("frame", frame))
	return nil
}

func (s *Session) closedErr(op string) error {
	return &TransportError{Op: op, Addr: s.addr, Err: ErrClosed}
}

func (s *Session) transportFailed(op string, err error) {
	if s.opts.metrics != nil {
		s.opts.metrics.TransportErrors.WithLabelValues(op).Inc()
	}
	s.log.Warn("controller transport error", zap.String("op", op), zap.Error(err))
}

func decodeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, magichome.ErrMalformed):
		return "malformed"
	case errors.Is(err, magichome.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, magichome.ErrUnknownOpcode):
		return "opcode"
	}
	return "error"
}
