package djcore

import "time"

// Config holds the tunable thresholds THINK applies when composing a break,
// mirroring the defaults called out against each decision rule.
type Config struct {
	// LegalIDInterval is the maximum time a legal ID may be withheld.
	LegalIDInterval time.Duration
	// MaxTalkSilence is the time since last talk beyond which talk is
	// always permitted (absent a legal ID requirement).
	MaxTalkSilence time.Duration
	// MinTalkSpacing is the minimum time since last talk below which talk
	// is never permitted.
	MinTalkSpacing time.Duration
	// TalkRandomAllowChance is the per-THINK probability of allowing talk
	// while time-since-last-talk sits in the band between MinTalkSpacing
	// and MaxTalkSilence.
	TalkRandomAllowChance float64
	// GenericIDMin is the minimum time since the last generic ID before
	// another one is permitted.
	GenericIDMin time.Duration
	// CooldownLen is how many most-recently-used intros are excluded from
	// reselection.
	CooldownLen int
}

// DefaultConfig returns the defaults named in the component design.
func DefaultConfig() Config {
	return Config{
		LegalIDInterval:       time.Hour,
		MaxTalkSilence:        30 * time.Minute,
		MinTalkSpacing:        5 * time.Minute,
		TalkRandomAllowChance: 0.05,
		GenericIDMin:          3 * time.Minute,
		CooldownLen:           5,
	}
}
