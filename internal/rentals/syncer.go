// Package rentals implements the calendar availability sync engine: it
// pulls each property's third-party iCalendar feed, reduces it to a
// minimal set of blocked date ranges, and persists the result.
package rentals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vwcamper77/rentals-sync/internal/rentals/daterange"
	"github.com/vwcamper77/rentals-sync/internal/rentals/feed"
	"github.com/vwcamper77/rentals-sync/internal/rentals/ical"
	"github.com/vwcamper77/rentals-sync/internal/rentals/model"
)

var (
	// ErrNoFeedURL marks a property with no usable feed configured.
	ErrNoFeedURL = errors.New("no iCal feed URL configured")

	// ErrPropertyNotFound marks an unknown property id.
	ErrPropertyNotFound = errors.New("property not found")
)

// maxErrorMessageLen bounds the persisted error text shown to owners.
const maxErrorMessageLen = 140

// Repository is the slice of the property store the engine needs. The
// Mongo implementation lives in the model package; tests use an in-memory
// fake.
type Repository interface {
	ListActiveProperties(ctx context.Context) ([]*model.Property, error)
	DescribeProperty(ctx context.Context, id string) (*model.Property, error)
	PatchPropertySync(ctx context.Context, id string, patch model.SyncPatch) error
}

// Syncer drives the fetch → parse → persist pipeline for one property at a
// time. Properties are processed sequentially on purpose: it bounds
// outbound request concurrency to calendar providers and keeps failure
// isolation trivial.
type Syncer struct {
	repo        Repository
	fetcher     *feed.Fetcher
	telemetry   *Telemetry
	monthsAhead int
	now         func() time.Time
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithFetcher overrides the default feed fetcher.
func WithFetcher(f *feed.Fetcher) SyncerOption {
	return func(s *Syncer) { s.fetcher = f }
}

// WithMonthsAhead sets the rolling sync window horizon.
func WithMonthsAhead(months int) SyncerOption {
	return func(s *Syncer) {
		if months > 0 {
			s.monthsAhead = months
		}
	}
}

// WithTelemetry attaches sync metrics.
func WithTelemetry(t *Telemetry) SyncerOption {
	return func(s *Syncer) { s.telemetry = t }
}

// WithClock overrides the time source, fixing "today" in tests.
func WithClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer builds a Syncer with default fetch and window settings.
func NewSyncer(repo Repository, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		repo:        repo,
		fetcher:     feed.NewFetcher(feed.DefaultTimeout, feed.DefaultMaxRetries),
		monthsAhead: ical.DefaultMonthsAhead,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PassSummary counts outcomes of one batch pass.
type PassSummary struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// SyncAll runs one batch pass over every active property. A property's
// failure is recorded on its own document and never aborts the pass; the
// only pass-aborting failure is being unable to list the properties at
// all.
func (s *Syncer) SyncAll(ctx context.Context) (PassSummary, error) {
	passID := uuid.NewString()
	slog.InfoContext(ctx, "Starting calendar sync pass", "pass_id", passID)
	s.telemetry.RecordPass(ctx)

	props, err := s.repo.ListActiveProperties(ctx)
	if err != nil {
		return PassSummary{}, fmt.Errorf("failed to list active properties: %w", err)
	}

	var summary PassSummary
	for _, prop := range props {
		switch err := s.syncGuarded(ctx, prop); {
		case err == nil:
			summary.Synced++
		case errors.Is(err, ErrNoFeedURL):
			summary.Skipped++
		default:
			summary.Failed++
			slog.ErrorContext(ctx, "Property sync failed", "pass_id", passID,
				"property_id", prop.ID.Hex(), "error", err)
		}
	}

	slog.InfoContext(ctx, "Calendar sync pass finished", "pass_id", passID,
		"synced", summary.Synced, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

// syncGuarded confines a panic while processing one property to that
// property, mirroring the HTTP recovery middleware.
func (s *Syncer) syncGuarded(ctx context.Context, prop *model.Property) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sync: %v", r)
		}
	}()
	return s.SyncProperty(ctx, prop)
}

// SyncProperty runs the pipeline for a single property: normalize the feed
// URL, fetch with bounded retries, parse, clip, merge, persist. On fetch
// failure only the status and error text are patched; the previously
// stored blocked ranges must survive.
func (s *Syncer) SyncProperty(ctx context.Context, prop *model.Property) error {
	url := feed.NormalizeURL(prop.ICalURL)
	if url == "" {
		s.telemetry.RecordSync(ctx, "skipped", 0, 0)
		return ErrNoFeedURL
	}

	id := prop.ID.Hex()
	started := s.now()

	text, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		msg := shortErrorMessage(err)
		patch := model.SyncPatch{
			SyncStatus:   model.SyncStatusError,
			ErrorMessage: &msg,
		}
		if patchErr := s.repo.PatchPropertySync(ctx, id, patch); patchErr != nil {
			slog.ErrorContext(ctx, "Failed to persist sync error", "property_id", id, "error", patchErr)
		}
		s.telemetry.RecordSync(ctx, "error", time.Since(started).Seconds(), 0)
		return fmt.Errorf("feed fetch failed: %w", err)
	}

	ranges := ical.ParseBlockedRanges(text, s.now(), s.monthsAhead)
	blocked := make([]model.BlockedRange, 0, len(ranges))
	for _, r := range ranges {
		blocked = append(blocked, model.BlockedRange{
			Start: daterange.Format(r.Start),
			End:   daterange.Format(r.End),
		})
	}

	now := s.now()
	empty := ""
	patch := model.SyncPatch{
		BlockedRanges: &blocked,
		SyncStatus:    model.SyncStatusOK,
		ErrorMessage:  &empty,
		LastSyncedAt:  &now,
	}
	if err := s.repo.PatchPropertySync(ctx, id, patch); err != nil {
		s.telemetry.RecordSync(ctx, "error", time.Since(started).Seconds(), len(blocked))
		return fmt.Errorf("failed to persist sync result: %w", err)
	}

	s.telemetry.RecordSync(ctx, "ok", time.Since(started).Seconds(), len(blocked))
	slog.InfoContext(ctx, "Synced property calendar", "property_id", id, "ranges", len(blocked))
	return nil
}

// SyncOne looks a property up by id, syncs it, and returns the refreshed
// document. Used by the on-demand HTTP surface.
func (s *Syncer) SyncOne(ctx context.Context, id string) (*model.Property, error) {
	prop, err := s.repo.DescribeProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, ErrPropertyNotFound
	}

	if err := s.SyncProperty(ctx, prop); err != nil {
		return nil, err
	}
	return s.repo.DescribeProperty(ctx, id)
}

// shortErrorMessage renders an error for the owner-facing status field,
// truncated to 140 bytes with a trailing ellipsis. The cut never lands
// inside a multi-byte rune, so the persisted message stays valid UTF-8.
func shortErrorMessage(err error) string {
	if err == nil {
		return "Sync failed."
	}
	msg := err.Error()
	if len(msg) <= maxErrorMessageLen {
		return msg
	}
	cut := maxErrorMessageLen - 3
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
