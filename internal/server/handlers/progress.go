package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/gramsift/gramsift/internal/core"
)

// ProgressSource supplies the current usage snapshot and the plan limits
// it is measured against. The serve command injects a store-backed
// implementation so numbers stay fresh across scraping processes.
type ProgressSource interface {
	Progress(r *http.Request) (core.CountersSnapshot, core.SessionPlan, error)
}

// ProgressResponse reports quota consumption against the active plan.
type ProgressResponse struct {
	MessagesThisHour   int        `json:"messages_this_hour"`
	HourlyLimit        int        `json:"hourly_limit"`
	MessagesToday      int        `json:"messages_today"`
	DailyLimit         int        `json:"daily_limit"`
	SourcesToday       []core.SourceID `json:"sources_today"`
	MaxSourcesPerDay   int             `json:"max_sources_per_day"`
	LastSessionEndedAt *time.Time      `json:"last_session_ended_at,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
}

var progressSource ProgressSource

// SetProgressSource injects the snapshot provider used by ProgressHandler.
func SetProgressSource(source ProgressSource) {
	progressSource = source
}

// ProgressHandler reports current quota usage and limits.
func ProgressHandler(w http.ResponseWriter, r *http.Request) {
	if progressSource == nil {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "progress source not initialized")
		respondWithError(w, r, envelope)
		return
	}

	snap, plan, err := progressSource.Progress(r)
	if err != nil {
		envelope := errors.NewErrorEnvelope("DATABASE_ERROR", "failed to load usage counters")
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"wrapped_error": err.Error(),
		})
		respondWithError(w, r, envelope)
		return
	}

	sources := snap.SourcesToday
	if sources == nil {
		sources = []core.SourceID{}
	}

	var ended *time.Time
	if !snap.LastSessionEndedAt.IsZero() {
		t := snap.LastSessionEndedAt
		ended = &t
	}

	response := ProgressResponse{
		MessagesThisHour:   snap.MessagesThisHour,
		HourlyLimit:        plan.HourlyLimit,
		MessagesToday:      snap.MessagesToday,
		DailyLimit:         plan.DailyLimit,
		SourcesToday:       sources,
		MaxSourcesPerDay:   plan.MaxSourcesPerDay,
		LastSessionEndedAt: ended,
		Timestamp:          time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
