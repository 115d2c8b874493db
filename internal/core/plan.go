package core

import (
	"fmt"
	"time"
)

// SessionPlan is the static configuration governing one scraping run.
// Loaded once at session start; immutable for the duration of the run.
type SessionPlan struct {
	RateLimitDelay      time.Duration `json:"rate_limit_delay"`
	BatchSize           int           `json:"batch_size"`
	BatchDelay          time.Duration `json:"batch_delay"`
	MaxRetries          int           `json:"max_retries"`
	MaxBatchesPerSource int           `json:"max_batches_per_source"`
	MaxBatchesBulk      int           `json:"max_batches_bulk"`
	SourceDelay         time.Duration `json:"source_delay"`
	DailyLimit          int           `json:"daily_limit"`
	HourlyLimit         int           `json:"hourly_limit"`
	MaxSourcesPerDay    int           `json:"max_sources_per_day"`
	CooldownPeriod      time.Duration `json:"cooldown_period"`
}

// StandardPlan is the default pacing profile.
func StandardPlan() SessionPlan {
	return SessionPlan{
		RateLimitDelay:      5 * time.Second,
		BatchSize:           10,
		BatchDelay:          10 * time.Second,
		MaxRetries:          2,
		MaxBatchesPerSource: 3,
		MaxBatchesBulk:      2,
		SourceDelay:         15 * time.Second,
		DailyLimit:          100,
		HourlyLimit:         20,
		MaxSourcesPerDay:    10,
		CooldownPeriod:      0,
	}
}

// ConservativePlan trades throughput for a lower ban risk.
func ConservativePlan() SessionPlan {
	return SessionPlan{
		RateLimitDelay:      8 * time.Second,
		BatchSize:           5,
		BatchDelay:          15 * time.Second,
		MaxRetries:          1,
		MaxBatchesPerSource: 2,
		MaxBatchesBulk:      1,
		SourceDelay:         30 * time.Second,
		DailyLimit:          50,
		HourlyLimit:         10,
		MaxSourcesPerDay:    3,
		CooldownPeriod:      time.Hour,
	}
}

// Validate rejects plans with non-positive values. CooldownPeriod may be
// zero (no mandatory idle between sessions).
func (p SessionPlan) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"rate_limit_delay", p.RateLimitDelay > 0},
		{"batch_size", p.BatchSize > 0},
		{"batch_delay", p.BatchDelay > 0},
		{"max_retries", p.MaxRetries > 0},
		{"max_batches_per_source", p.MaxBatchesPerSource > 0},
		{"max_batches_bulk", p.MaxBatchesBulk > 0},
		{"source_delay", p.SourceDelay > 0},
		{"daily_limit", p.DailyLimit > 0},
		{"hourly_limit", p.HourlyLimit > 0},
		{"max_sources_per_day", p.MaxSourcesPerDay > 0},
		{"cooldown_period", p.CooldownPeriod >= 0},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("session plan: %s must be positive", check.name)
		}
	}
	return nil
}

// Warnings reports plan combinations that are legal but knowably off.
func (p SessionPlan) Warnings() []string {
	var warnings []string
	if p.BatchSize*p.MaxBatchesPerSource > p.DailyLimit {
		warnings = append(warnings, fmt.Sprintf(
			"batch_size*max_batches_per_source (%d) exceeds daily_limit (%d); batches will be truncated",
			p.BatchSize*p.MaxBatchesPerSource, p.DailyLimit))
	}
	if p.BatchSize > p.HourlyLimit {
		warnings = append(warnings, fmt.Sprintf(
			"batch_size (%d) exceeds hourly_limit (%d); every batch will be truncated",
			p.BatchSize, p.HourlyLimit))
	}
	return warnings
}

// MaxBatches returns the per-source batch cap for the given mode.
func (p SessionPlan) MaxBatches(bulk bool) int {
	if bulk {
		return p.MaxBatchesBulk
	}
	return p.MaxBatchesPerSource
}
