// Package metrics exposes Tower's Prometheus instrumentation on
// /metrics: ring buffer pressure, encoder restart behaviour, and
// fan-out client counts, following the style of the pack's metrics
// packages (counters/gauges registered once via promauto, recorded
// through small setter functions).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesDroppedTotal counts PCM frames dropped, by reason (e.g.
	// "ring_full", "stdin_backlogged").
	FramesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrowaves_frames_dropped_total",
		Help: "Total number of PCM frames dropped, by reason.",
	}, []string{"reason"})

	// EncoderRestartsTotal counts encoder restart attempts, by the
	// triggering cause ("crash", "stall", "start_failure").
	EncoderRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retrowaves_encoder_restarts_total",
		Help: "Total number of encoder restart attempts, by cause.",
	}, []string{"cause"})

	// FanoutClients tracks the current number of connected /stream
	// listeners.
	FanoutClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrowaves_fanout_clients",
		Help: "Current number of connected HTTP stream listeners.",
	})

	// PCMRingFillRatio tracks the PCM input ring's current fill ratio
	// (0.0-1.0).
	PCMRingFillRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrowaves_pcm_ring_fill_ratio",
		Help: "Current fill ratio of the PCM input ring buffer.",
	})

	// MP3RingFillRatio tracks the encoder's MP3 output ring's current
	// fill ratio (0.0-1.0).
	MP3RingFillRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retrowaves_mp3_ring_fill_ratio",
		Help: "Current fill ratio of the MP3 output ring buffer.",
	})

	// EncoderStateGauge reports the encoder's current lifecycle state as
	// a 0/1 indicator per state label, mirroring a typical
	// multi-state-as-label-set gauge pattern.
	EncoderStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "retrowaves_encoder_state",
		Help: "1 for the encoder's current lifecycle state, 0 otherwise.",
	}, []string{"state"})
)

// RecordFrameDropped increments the dropped-frame counter for reason.
func RecordFrameDropped(reason string) {
	FramesDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordEncoderRestart increments the restart counter for cause.
func RecordEncoderRestart(cause string) {
	EncoderRestartsTotal.WithLabelValues(cause).Inc()
}

// SetFanoutClients sets the connected-listener gauge.
func SetFanoutClients(count int) {
	FanoutClients.Set(float64(count))
}

// SetPCMRingFill sets the PCM ring fill ratio from a raw fill/capacity pair.
func SetPCMRingFill(fill, capacity int) {
	if capacity <= 0 {
		PCMRingFillRatio.Set(0)
		return
	}
	PCMRingFillRatio.Set(float64(fill) / float64(capacity))
}

// SetMP3RingFill sets the MP3 ring fill ratio from a raw fill/capacity pair.
func SetMP3RingFill(fill, capacity int) {
	if capacity <= 0 {
		MP3RingFillRatio.Set(0)
		return
	}
	MP3RingFillRatio.Set(float64(fill) / float64(capacity))
}

// allStates lists every label value EncoderStateGauge can take, so
// SetEncoderState can zero out the ones that aren't current.
var allStates = []string{"stopped", "running", "restarting", "failed"}

// SetEncoderState marks state as the active encoder state (1) and every
// other known state as inactive (0).
func SetEncoderState(state string) {
	for _, s := range allStates {
		if s == state {
			EncoderStateGauge.WithLabelValues(s).Set(1)
		} else {
			EncoderStateGauge.WithLabelValues(s).Set(0)
		}
	}
}
