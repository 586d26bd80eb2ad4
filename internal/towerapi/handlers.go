package towerapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slbailey/retrowaves-sub001/internal/encoder"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
)

// statusResponse mirrors spec's GET /status shape.
type statusResponse struct {
	SourceMode     string      `json:"source_mode"`
	FilePath       string      `json:"file_path,omitempty"`
	NumClients     int         `json:"num_clients"`
	EncoderRunning bool        `json:"encoder_running"`
	UptimeSeconds  float64     `json:"uptime_seconds"`
	RouterQueue    *bufferFill `json:"router_queue,omitempty"`
}

type bufferFill struct {
	Fill     int `json:"fill"`
	Capacity int `json:"capacity"`
}

func (s *Server) handleStatus(c *gin.Context) {
	fill, capacity := s.pcmRing.Fill()

	c.JSON(http.StatusOK, statusResponse{
		SourceMode:     s.fallbackMgr.Mode(),
		FilePath:       s.fallbackMgr.FilePath(),
		NumClients:     s.broadcaster.ClientCount(),
		EncoderRunning: s.encoderMgr.State() == encoder.Running,
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		RouterQueue:    &bufferFill{Fill: fill, Capacity: capacity},
	})
}

func (s *Server) handleBuffer(c *gin.Context) {
	fill, capacity := s.pcmRing.Fill()
	c.JSON(http.StatusOK, bufferFill{Fill: fill, Capacity: capacity})
}

// controlSourceRequest mirrors spec's POST /control/source body.
type controlSourceRequest struct {
	Mode     string `json:"mode" binding:"required,oneof=tone silence file"`
	FilePath string `json:"file_path"`
}

func (s *Server) handleControlSource(c *gin.Context) {
	var req controlSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	switch req.Mode {
	case "tone":
		s.fallbackMgr.Set(fallback.NewTone(440))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": "tone"})
	case "silence":
		s.fallbackMgr.Set(fallback.Silence{})
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": "silence"})
	case "file":
		if req.FilePath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "file_path is required for mode=file"})
			return
		}
		f, err := fallback.LoadFile(req.FilePath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
			return
		}
		s.fallbackMgr.Set(f)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": "file", "file_path": req.FilePath})
	}
}
