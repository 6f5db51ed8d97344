// Package progress derives completion figures and accessibility labels for
// the translation and voiceover workflows of an exploration.
package progress

import (
	"context"
	"math"
	"time"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/localization"
	"github.com/mzalendo/lingopref/preference"
)

// Report carries the raw per language counts of an exploration.
type Report struct {
	ExplorationID string `json:"exploration_id"`
	LanguageCode  string `json:"language_code"`
	Required      int    `json:"required"`
	Unavailable   int    `json:"unavailable"`
}

// Completed is the number of items already translated or recorded.
func (r Report) Completed() int {
	done := r.Required - r.Unavailable
	if done < 0 {
		return 0
	}
	return done
}

// Ratio is the completed fraction, 0 when nothing is required.
func (r Report) Ratio() float64 {
	if r.Required <= 0 {
		return 0
	}
	return float64(r.Completed()) / float64(r.Required)
}

// Percent renders the ratio as a whole percentage.
func (r Report) Percent() int {
	return int(math.Round(r.Ratio() * 100))
}

// Message IDs for the pluralized accessibility labels.
const (
	msgItemsTranslated = "ItemsTranslated"
	msgItemsRecorded   = "ItemsRecorded"
)

// CountsSource supplies the per language counts, typically the opportunity
// store.
type CountsSource interface {
	Counts(ctx context.Context, explorationID, languageCode string) (Report, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithReportMaxAge sets how long refreshed reports stay cached.
func WithReportMaxAge(maxAge time.Duration) Option {
	return func(t *Tracker) {
		t.reportMaxAge = maxAge
	}
}

const (
	reportKeyPrefix     = "progress:"
	defaultReportMaxAge = 10 * time.Minute
)

// Tracker computes and caches progress reports and renders their labels.
type Tracker struct {
	source     CountsSource
	reports    cache.Cache[string, Report]
	translator localization.Manager

	reportMaxAge time.Duration
}

// NewTracker creates a tracker reading counts from source, caching reports
// in raw and localizing labels through translator.
func NewTracker(source CountsSource, raw cache.RawCache, translator localization.Manager, opts ...Option) *Tracker {
	t := &Tracker{
		source: source,
		reports: cache.NewGenericCache[string, Report](raw, func(key string) string {
			return reportKeyPrefix + key
		}),
		translator:   translator,
		reportMaxAge: defaultReportMaxAge,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func reportKey(explorationID, languageCode string) string {
	return explorationID + ":" + languageCode
}

// Report returns the cached report for the exploration and language, going
// back to the source on a miss.
func (t *Tracker) Report(ctx context.Context, explorationID, languageCode string) (Report, error) {
	key := reportKey(explorationID, languageCode)

	report, found, err := t.reports.Get(ctx, key)
	if err == nil && found {
		return report, nil
	}

	return t.Refresh(ctx, explorationID, languageCode)
}

// Refresh recomputes the report from the source and caches it.
func (t *Tracker) Refresh(ctx context.Context, explorationID, languageCode string) (Report, error) {
	report, err := t.source.Counts(ctx, explorationID, languageCode)
	if err != nil {
		return Report{}, err
	}

	report.ExplorationID = explorationID
	report.LanguageCode = languageCode

	if cacheErr := t.reports.Set(ctx, reportKey(explorationID, languageCode), report, t.reportMaxAge); cacheErr != nil {
		return report, cacheErr
	}

	return report, nil
}

// Label renders the pluralized accessibility label for the report, in the
// reader's language. The plural form follows the completed item count, so a
// single completed item reads "1 item translated out of N items".
func (t *Tracker) Label(ctx context.Context, request any, report Report, mode preference.Mode) string {
	messageID := msgItemsTranslated
	if mode == preference.ModeVoiceover {
		messageID = msgItemsRecorded
	}

	return t.translator.TranslateWithMapAndCount(ctx, request, messageID, map[string]any{
		"Completed": report.Completed(),
		"Total":     report.Required,
	}, report.Completed())
}
