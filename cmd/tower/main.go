// Command tower runs the Tower process: it accepts Station's PCM stream
// over a Unix socket, encodes it to MP3 via an out-of-process encoder,
// and fans the result out over HTTP, falling back to a generated tone
// or silence whenever no live PCM is available.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/encoder"
	"github.com/slbailey/retrowaves-sub001/internal/fallback"
	"github.com/slbailey/retrowaves-sub001/internal/fanout"
	"github.com/slbailey/retrowaves-sub001/internal/jitter"
	"github.com/slbailey/retrowaves-sub001/internal/metrics"
	"github.com/slbailey/retrowaves-sub001/internal/pump"
	"github.com/slbailey/retrowaves-sub001/internal/towerapi"
	"github.com/slbailey/retrowaves-sub001/internal/towerconfig"
	"github.com/slbailey/retrowaves-sub001/internal/towerpcm"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := towerconfig.Load(os.Getenv("TOWER_CONFIG_FILE"), ".env", os.Args[1:])
	if err != nil {
		slog.Error("tower: invalid configuration", "error", err)
		os.Exit(1)
	}

	clk := clock.Real{}

	fbMgr := fallback.NewManager(buildDefaultSource(cfg))

	_ = os.Remove(cfg.SocketPath)
	ln, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		slog.Error("tower: cannot listen on pcm socket", "socket_path", cfg.SocketPath, "error", err)
		os.Exit(1)
	}
	router := towerpcm.New(ln, clk, cfg.RouterIdleTimeout())

	encCfg := encoder.DefaultConfig()
	encCfg.BitrateKbps = cfg.BitrateKbps
	encCfg.MaxRestarts = cfg.EncoderMaxRestarts
	encCfg.StallThreshold = cfg.EncoderStallThresholdDuration()
	if backoff := cfg.EncoderBackoff(); len(backoff) > 0 {
		encCfg.Backoff = backoff
	}
	encMgr := encoder.NewManager(clk, encCfg)

	pumpCfg := pump.Config{PCMGrace: cfg.PCMGrace()}
	audioPump := pump.New(router, fbMgr, encMgr, clk, pumpCfg)

	jitterCfg := jitter.Config{
		MinChunks:     cfg.JitterMinChunks,
		RecoverChunks: cfg.JitterRecoverChunks,
		ReadInterval:  cfg.JitterReadInterval(),
	}
	jitterBuf := jitter.New(encMgr.Ring(), clk, jitterCfg, func() bool {
		state := encMgr.State()
		return state == encoder.Restarting || state == encoder.Failed
	})

	broadcaster := fanout.New(fanout.Config{
		ClientTimeout:     cfg.ClientTimeout(),
		ClientBufferBytes: cfg.ClientBufferBytes,
	})

	apiServer := towerapi.New(towerapi.Config{
		StationName: cfg.StationName,
		MaxClients:  cfg.MaxClients,
	}, broadcaster, fbMgr, encMgr, router.Ring(), time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := router.Run(); err != nil {
			slog.Error("tower: pcm router stopped", "error", err)
		}
	}()
	go audioPump.Run(ctx)
	go func() {
		if err := encMgr.Run(ctx); err != nil {
			slog.Warn("tower: encoder manager stopped", "error", err)
		}
	}()
	go broadcastLoop(ctx, jitterBuf, broadcaster)
	go reportMetrics(ctx, clk, router, encMgr, broadcaster)

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: apiServer.Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("tower: signal received, shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
		router.Stop()
		cancel()
	}()

	slog.Info("tower: listening", "addr", httpServer.Addr, "socket_path", cfg.SocketPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("tower: http server stopped with error", "error", err)
		os.Exit(1)
	}
}

// broadcastLoop is the single producer loop: it pulls paced MP3 chunks
// from the jitter buffer and publishes each to every connected client.
func broadcastLoop(ctx context.Context, jitterBuf *jitter.Buffer, b *fanout.Broadcaster) {
	for {
		if ctx.Err() != nil {
			return
		}
		chunk := jitterBuf.GetChunk()
		b.Publish(chunk)
	}
}

// reportMetrics periodically samples component state onto the
// Prometheus gauges exposed on /metrics. It owns no component state
// itself — it only reads what each component already exports.
func reportMetrics(ctx context.Context, clk clock.Clock, router *towerpcm.Router, encMgr *encoder.Manager, b *fanout.Broadcaster) {
	ticker := clk.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			fill, capacity := router.Ring().Fill()
			metrics.SetPCMRingFill(fill, capacity)

			mp3Fill, mp3Cap := encMgr.Ring().Fill()
			metrics.SetMP3RingFill(mp3Fill, mp3Cap)

			metrics.SetFanoutClients(b.ClientCount())
			metrics.SetEncoderState(encMgr.State().String())
		}
	}
}

func buildDefaultSource(cfg towerconfig.Config) fallback.Source {
	switch cfg.DefaultSource {
	case "file":
		f, err := fallback.LoadFile(cfg.DefaultFilePath)
		if err != nil {
			slog.Error("tower: cannot load default fallback file, using silence", "path", cfg.DefaultFilePath, "error", err)
			return fallback.Silence{}
		}
		return f
	case "silence":
		return fallback.Silence{}
	default:
		return fallback.NewTone(cfg.ToneFrequency)
	}
}
