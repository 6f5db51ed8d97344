package progress_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/localization"
	"github.com/mzalendo/lingopref/preference"
	"github.com/mzalendo/lingopref/progress"
)

type stubSource struct {
	reports map[string]progress.Report
	calls   int
}

func (s *stubSource) Counts(_ context.Context, explorationID, languageCode string) (progress.Report, error) {
	s.calls++
	report, ok := s.reports[explorationID+":"+languageCode]
	if !ok {
		return progress.Report{}, errors.New("no counts for exploration")
	}
	return report, nil
}

func newTracker(t *testing.T, source *stubSource) *progress.Tracker {
	t.Helper()
	translator := localization.NewManager("../translations", "en", "sw")
	return progress.NewTracker(source, cache.NewInMemoryCache(), translator)
}

func TestReportMath(t *testing.T) {
	testCases := []struct {
		name        string
		required    int
		unavailable int
		completed   int
		percent     int
	}{
		{name: "half done", required: 10, unavailable: 5, completed: 5, percent: 50},
		{name: "all done", required: 4, unavailable: 0, completed: 4, percent: 100},
		{name: "nothing done", required: 4, unavailable: 4, completed: 0, percent: 0},
		{name: "nothing required", required: 0, unavailable: 0, completed: 0, percent: 0},
		{name: "overcounted unavailable", required: 3, unavailable: 5, completed: 0, percent: 0},
		{name: "third done rounds", required: 3, unavailable: 2, completed: 1, percent: 33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := progress.Report{Required: tc.required, Unavailable: tc.unavailable}
			assert.Equal(t, tc.completed, r.Completed())
			assert.Equal(t, tc.percent, r.Percent())
		})
	}
}

func TestLabelPluralization(t *testing.T) {
	source := &stubSource{}
	tracker := newTracker(t, source)
	ctx := t.Context()

	testCases := []struct {
		completed int
		total     int
		want      string
	}{
		{completed: 1, total: 10, want: "1 item translated out of 10 items"},
		{completed: 0, total: 10, want: "0 items translated out of 10 items"},
		{completed: 2, total: 10, want: "2 items translated out of 10 items"},
		{completed: 10, total: 10, want: "10 items translated out of 10 items"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d of %d", tc.completed, tc.total), func(t *testing.T) {
			report := progress.Report{
				Required:    tc.total,
				Unavailable: tc.total - tc.completed,
			}
			label := tracker.Label(ctx, "en", report, preference.ModeTranslate)
			assert.Equal(t, tc.want, label)
		})
	}
}

func TestLabelVoiceoverVariant(t *testing.T) {
	tracker := newTracker(t, &stubSource{})

	report := progress.Report{Required: 3, Unavailable: 2}
	label := tracker.Label(t.Context(), "en", report, preference.ModeVoiceover)
	assert.Equal(t, "1 item recorded out of 3 items", label)
}

func TestReportCachesUntilRefresh(t *testing.T) {
	source := &stubSource{
		reports: map[string]progress.Report{
			"exp-1:sw": {Required: 8, Unavailable: 2},
		},
	}
	tracker := newTracker(t, source)
	ctx := t.Context()

	first, err := tracker.Report(ctx, "exp-1", "sw")
	require.NoError(t, err)
	assert.Equal(t, 6, first.Completed())
	assert.Equal(t, 1, source.calls)

	// Second read is served from cache.
	_, err = tracker.Report(ctx, "exp-1", "sw")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	source.reports["exp-1:sw"] = progress.Report{Required: 8, Unavailable: 1}
	refreshed, err := tracker.Refresh(ctx, "exp-1", "sw")
	require.NoError(t, err)
	assert.Equal(t, 7, refreshed.Completed())
	assert.Equal(t, 2, source.calls)
}

func TestRefreshEventRecomputesReport(t *testing.T) {
	source := &stubSource{
		reports: map[string]progress.Report{
			"exp-9:hi": {Required: 5, Unavailable: 5},
		},
	}
	tracker := newTracker(t, source)
	event := &progress.RefreshEvent{Tracker: tracker}
	ctx := t.Context()

	require.Equal(t, preference.EventTranslationStatusRefresh, event.Name())

	payload := &preference.StatusRefreshPayload{ExplorationID: "exp-9", LanguageCode: "hi"}
	require.NoError(t, event.Validate(ctx, payload))
	require.NoError(t, event.Execute(ctx, payload))

	report, err := tracker.Report(ctx, "exp-9", "hi")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Completed())
	assert.Equal(t, 1, source.calls)

	require.Error(t, event.Validate(ctx, &preference.StatusRefreshPayload{}))
}
