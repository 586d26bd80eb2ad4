// Package towerapi wires Tower's HTTP surface: the MP3 stream, the
// status/buffer observability endpoints, the fallback-source control
// plane, and Prometheus metrics. Routing and JSON rendering go through
// gin, finishing what the teacher's own go.mod committed to but never
// actually mounted (its gin-based handler package was never wired into
// its stdlib-mux server).
package towerapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slbailey/retrowaves-sub001/internal/encoder"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
	"github.com/slbailey/retrowaves-sub001/internal/fanout"
)

// PCMRing is the subset of the PCM input router's ring buffer the
// /tower/buffer endpoint needs.
type PCMRing interface {
	Fill() (fill int, capacity int)
}

// Server owns Tower's gin.Engine and the components its handlers read
// from. It holds no state of its own beyond the start time used for
// uptime reporting.
type Server struct {
	engine *gin.Engine

	broadcaster *fanout.Broadcaster
	fallbackMgr *fallback.Manager
	encoderMgr  *encoder.Manager
	pcmRing     PCMRing

	stationName string
	maxClients  int
	startedAt   time.Time
}

// Config tunes the server's station identity and client limits.
type Config struct {
	StationName string
	MaxClients  int
}

// DefaultConfig returns the spec-default tuning.
func DefaultConfig() Config {
	return Config{StationName: "Retrowaves", MaxClients: 0}
}

// New builds a Server's route table. startedAt is passed in rather than
// captured via time.Now() so callers keep ownership of wall-clock reads.
func New(cfg Config, broadcaster *fanout.Broadcaster, fb *fallback.Manager, enc *encoder.Manager, pcmRing PCMRing, startedAt time.Time) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:      gin.New(),
		broadcaster: broadcaster,
		fallbackMgr: fb,
		encoderMgr:  enc,
		pcmRing:     pcmRing,
		stationName: cfg.StationName,
		maxClients:  cfg.MaxClients,
		startedAt:   startedAt,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the server's http.Handler, for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	streamHandler := fanout.NewStreamHandler(s.broadcaster, s.stationName, s.maxClients)

	s.engine.GET("/stream", gin.WrapH(streamHandler))
	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/tower/buffer", s.handleBuffer)
	s.engine.POST("/control/source", s.handleControlSource)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
