package progress

import (
	"context"
	"errors"

	"github.com/pitabwire/util"

	"github.com/mzalendo/lingopref/preference"
)

// RefreshEvent recomputes a cached progress report whenever the selector
// broadcasts a status refresh.
type RefreshEvent struct {
	Tracker *Tracker
}

func (e *RefreshEvent) Name() string {
	return preference.EventTranslationStatusRefresh
}

func (e *RefreshEvent) PayloadType() any {
	return &preference.StatusRefreshPayload{}
}

func (e *RefreshEvent) Validate(_ context.Context, payload any) error {
	refresh, ok := payload.(*preference.StatusRefreshPayload)
	if !ok {
		return errors.New("payload is not a status refresh")
	}
	if refresh.ExplorationID == "" || refresh.LanguageCode == "" {
		return errors.New("status refresh requires an exploration and a language")
	}
	return nil
}

func (e *RefreshEvent) Execute(ctx context.Context, payload any) error {
	refresh := payload.(*preference.StatusRefreshPayload)

	report, err := e.Tracker.Refresh(ctx, refresh.ExplorationID, refresh.LanguageCode)
	if err != nil {
		return err
	}

	util.Log(ctx).WithField("exploration", refresh.ExplorationID).
		WithField("language", refresh.LanguageCode).
		WithField("percent", report.Percent()).
		Debug("progress report refreshed")
	return nil
}
