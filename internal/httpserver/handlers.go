package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coachtinho/led/internal/device"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

type powerRequest struct {
	On *bool `json:"on" binding:"required"`
}

type colorRequest struct {
	Preset string `json:"preset"`
	R      *int   `json:"r"`
	G      *int   `json:"g"`
	B      *int   `json:"b"`
}

type effectRequest struct {
	Preset string `json:"preset"`
	Effect string `json:"effect"`
	Speed  *int   `json:"speed"`
}

// statusView 状态 JSON 表示
type statusView struct {
	Power   string          `json:"power"`
	Mode    string          `json:"mode"`
	Effect  string          `json:"effect,omitempty"`
	Speed   *uint8          `json:"speed,omitempty"`
	Color   magichome.Color `json:"color"`
	Model   byte            `json:"model"`
	Version byte            `json:"version"`
}

func newStatusView(st *magichome.Status) statusView {
	v := statusView{
		Power:   "off",
		Mode:    st.Mode.String(),
		Color:   st.Color,
		Model:   st.Model,
		Version: st.Version,
	}
	if st.Power {
		v.Power = "on"
	}
	if st.Mode == magichome.ModeEffect {
		v.Effect = st.Effect.String()
		speed := st.Speed
		v.Speed = &speed
	}
	return v
}

func (s *Server) registerRoutes(r gin.IRouter) {
	r.GET("/status", s.handleStatus)
	r.POST("/power", s.handlePower)
	r.POST("/color", s.handleColor)
	r.POST("/effect", s.handleEffect)
	r.GET("/presets", s.handlePresets)
}

func (s *Server) handleStatus(c *gin.Context) {
	var st *magichome.Status
	ok := s.withController(c, func(ctl Controller) error {
		var err error
		st, err = ctl.QueryStatus()
		return err
	})
	if ok {
		c.JSON(http.StatusOK, newStatusView(st))
	}
}

func (s *Server) handlePower(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.withController(c, func(ctl Controller) error {
		if *req.On {
			return ctl.PowerOn()
		}
		return ctl.PowerOff()
	}) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (s *Server) handleColor(c *gin.Context) {
	var req colorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var color magichome.Color
	switch {
	case req.Preset != "":
		preset, ok := s.deps.Presets.Color(req.Preset)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown color preset", "preset": req.Preset})
			return
		}
		color = preset
	case req.R != nil && req.G != nil && req.B != nil:
		for _, v := range []int{*req.R, *req.G, *req.B} {
			if v < 0 || v > 255 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "channel values must be within 0..255"})
				return
			}
		}
		color = magichome.Color{R: uint8(*req.R), G: uint8(*req.G), B: uint8(*req.B)}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either preset or r, g, b is required"})
		return
	}

	if s.withController(c, func(ctl Controller) error { return ctl.SetColor(color) }) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "color": color})
	}
}

func (s *Server) handleEffect(c *gin.Context) {
	var req effectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var effect magichome.Effect
	speed := magichome.MaxSpeed / 2
	switch {
	case req.Preset != "":
		preset, ok := s.deps.Presets.Effect(req.Preset)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown effect preset", "preset": req.Preset})
			return
		}
		effect, speed = preset.Effect, preset.Speed
	case req.Effect != "":
		e, err := magichome.ParseEffect(req.Effect)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		effect = e
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either preset or effect is required"})
		return
	}
	if req.Speed != nil {
		if *req.Speed < 0 || *req.Speed > magichome.MaxSpeed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "speed must be within 0..100"})
			return
		}
		speed = *req.Speed
	}

	if s.withController(c, func(ctl Controller) error { return ctl.SetEffect(effect, speed) }) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "effect": effect.String(), "speed": speed})
	}
}

func (s *Server) handlePresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"colors":  s.deps.Presets.ColorNames(),
		"effects": s.deps.Presets.EffectNames(),
	})
}

// withController 打开会话、执行一次操作并关闭；失败时已写好响应，返回 false
func (s *Server) withController(c *gin.Context, fn func(Controller) error) bool {
	ctx := c.Request.Context()
	if err := s.sessions.Acquire(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	defer s.sessions.Release()

	if err := s.breaker.Allow(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": "unavailable"})
		return false
	}
	recorded := false
	defer func() {
		if !recorded {
			s.breaker.Abort()
		}
	}()

	ctl, err := s.deps.Connect(ctx)
	if err != nil {
		recorded = true
		s.breaker.Record(err)
		s.writeError(c, err)
		return false
	}
	defer func() {
		if cerr := ctl.Close(); cerr != nil {
			s.deps.Logger.Debug("controller close failed", zap.Error(cerr))
		}
	}()

	err = fn(ctl)
	recorded = true
	s.breaker.Record(err)
	if err != nil {
		s.writeError(c, err)
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := "internal"
	switch {
	case device.IsTransport(err):
		kind = "transport"
	case errors.Is(err, magichome.ErrMalformed),
		errors.Is(err, magichome.ErrChecksumMismatch),
		errors.Is(err, magichome.ErrUnknownOpcode):
		kind = "protocol"
	}
	s.deps.Logger.Warn("controller request failed",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("kind", kind),
		zap.Error(err))

	code := http.StatusBadGateway
	if kind == "internal" {
		code = http.StatusInternalServerError
	}
	c.JSON(code, gin.H{"error": err.Error(), "kind": kind})
}
