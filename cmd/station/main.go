// Command station runs the Station process: it composes a continuous
// programme from on-disk audio assets, paces decoded PCM against a wall
// clock, and pushes it over a Unix socket to Tower.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/slbailey/retrowaves-sub001/internal/audioformat"
	"github.com/slbailey/retrowaves-sub001/internal/clock"
	"github.com/slbailey/retrowaves-sub001/internal/decoder"
	"github.com/slbailey/retrowaves-sub001/internal/djcore"
	"github.com/slbailey/retrowaves-sub001/internal/events"
	"github.com/slbailey/retrowaves-sub001/internal/lifecycle"
	"github.com/slbailey/retrowaves-sub001/internal/pacer"
	"github.com/slbailey/retrowaves-sub001/internal/playout"
	"github.com/slbailey/retrowaves-sub001/internal/queue"
	"github.com/slbailey/retrowaves-sub001/internal/rotation"
	"github.com/slbailey/retrowaves-sub001/internal/stationconfig"
	"github.com/slbailey/retrowaves-sub001/internal/stationsock"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := stationconfig.Load(os.Getenv("STATION_CONFIG_FILE"), ".env", os.Args[1:])
	if err != nil {
		slog.Error("station: invalid configuration", "error", err)
		os.Exit(1)
	}

	library := scanAssets(cfg)
	adapter := rotation.NewLibraryAdapter(library)

	statePath := filepath.Join(cfg.AssetsDir, "rotation-state.json")
	store, err := rotation.NewStore(statePath)
	if err != nil {
		slog.Error("station: cannot open rotation state store", "error", err)
		os.Exit(1)
	}
	state := rotation.NewState()
	if store.Exists() {
		snap, err := store.Load()
		if err != nil {
			slog.Warn("station: failed to load persisted rotation state, starting fresh", "error", err)
		} else {
			state.Restore(snap)
		}
	}

	startupConfigured := false
	if _, ok := adapter.StartupAnnouncement(); ok {
		startupConfigured = true
	}

	clk := clock.Real{}
	djCfg := djcore.DefaultConfig()
	djCfg.LegalIDInterval = cfg.LegalIDInterval()
	djCfg.MaxTalkSilence = cfg.MaxTalkSilence()
	djCfg.MinTalkSpacing = cfg.MinTalkSpacing()
	djCfg.GenericIDMin = cfg.GenericIDMin()
	djCfg.CooldownLen = cfg.CooldownLen
	core := djcore.New(adapter, state, djCfg, clk)

	lc := lifecycle.NewController(startupConfigured)

	sock := stationsock.New("unix", cfg.SocketPath)
	if err := sock.Connect(); err != nil {
		slog.Error("station: cannot connect to tower socket", "socket_path", cfg.SocketPath, "error", err)
		os.Exit(1)
	}
	defer sock.Close()

	pc := pacer.New(clk, audioformat.FramePeriod)

	q := queue.New()
	engine := playout.New(q, core, lc, openDecoder, sock, pc, clk, cfg.StrictIntentAssertions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("station: signal received, draining")
		lc.TriggerDraining()
		select {
		case <-sigCh:
			slog.Warn("station: second signal received, forcing immediate shutdown")
			cancel()
		case <-time.After(10 * time.Second):
			cancel()
		}
	}()

	slog.Info("station: starting playout engine", "socket_path", cfg.SocketPath, "music_dir", cfg.MusicDir)
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("station: engine stopped with error", "error", err)
	}

	if err := store.Save(state.Snapshot()); err != nil {
		slog.Warn("station: failed to persist rotation state on shutdown", "error", err)
	}
}

// openDecoder adapts decoder.Open's concrete *FfmpegDecoder return to the
// playout.DecoderOpener interface-returning signature.
func openDecoder(ctx context.Context, path string) (decoder.Decoder, error) {
	return decoder.Open(ctx, path)
}

// scanAssets builds the in-memory library from music_dir (songs) and the
// tagged subdirectories of assets_dir (intro, outro, id, talk,
// announcement). A missing optional subdirectory is logged and skipped —
// only music_dir is mandatory, matching spec's "missing default source
// file is fatal only at startup" posture applied here to the song pool.
func scanAssets(cfg stationconfig.Config) *rotation.Library {
	library := rotation.NewLibrary()

	songs, err := rotation.ScanDirectory(cfg.MusicDir, events.TagSong)
	if err != nil {
		slog.Error("station: cannot scan music directory", "music_dir", cfg.MusicDir, "error", err)
		os.Exit(1)
	}
	library.Add(songs.Tracks...)

	subdirs := map[string]events.Tag{
		"intro":        events.TagIntro,
		"outro":        events.TagOutro,
		"id":           events.TagID,
		"talk":         events.TagTalk,
		"announcement": events.TagAnnouncement,
	}
	for sub, tag := range subdirs {
		dir := filepath.Join(cfg.AssetsDir, sub)
		result, err := rotation.ScanDirectory(dir, tag)
		if err != nil {
			slog.Warn("station: skipping asset subdirectory", "dir", dir, "error", err)
			continue
		}
		library.Add(result.Tracks...)
	}

	slog.Info("station: library scanned", "tracks", library.Count())
	return library
}
