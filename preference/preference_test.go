package preference_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/preference"
)

// recordingEmitter captures emitted events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

type emitted struct {
	name    string
	payload any
}

func (r *recordingEmitter) Emit(_ context.Context, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{name: name, payload: payload})
	return nil
}

func (r *recordingEmitter) named(name string) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []emitted
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type SelectorTestSuite struct {
	suite.Suite

	raw      cache.RawCache
	emitter  *recordingEmitter
	selector *preference.Selector
	sess     preference.Session
}

func TestSelectorTestSuite(t *testing.T) {
	suite.Run(t, new(SelectorTestSuite))
}

func (s *SelectorTestSuite) SetupTest() {
	s.raw = cache.NewInMemoryCache()
	s.emitter = &recordingEmitter{}
	s.selector = preference.NewSelector(s.raw, s.emitter)
	s.sess = preference.Session{
		SessionID:       "sess-1",
		ExplorationID:   "exp-1",
		DisplayLanguage: "en",
	}
}

func (s *SelectorTestSuite) TearDownTest() {
	_ = s.raw.Close()
}

func (s *SelectorTestSuite) TestCurrentRequiresSession() {
	_, err := s.selector.Current(s.T().Context(), preference.Session{})
	s.ErrorIs(err, preference.ErrUnknownSession)
}

func (s *SelectorTestSuite) TestCurrentDefaultsWhenNothingStored() {
	sel, err := s.selector.Current(s.T().Context(), s.sess)
	s.Require().NoError(err)
	s.Equal("en", sel.LanguageCode)
	s.Equal(preference.ModeVoiceover, sel.Mode)
}

func (s *SelectorTestSuite) TestCurrentReturnsStoredSelection() {
	ctx := s.T().Context()

	_, err := s.selector.SetLanguage(ctx, s.sess, "sw")
	s.Require().NoError(err)

	sel, err := s.selector.Current(ctx, s.sess)
	s.Require().NoError(err)
	s.Equal("sw", sel.LanguageCode)
}

func (s *SelectorTestSuite) TestCurrentFallsBackOnUnsupportedStoredCode() {
	ctx := s.T().Context()

	// A stale entry with a code that has since left the registry.
	err := s.raw.Set(ctx, "selection:"+s.sess.SessionID,
		[]byte(`{"language_code":"xx","mode":"voiceover"}`), 0)
	s.Require().NoError(err)

	sel, err := s.selector.Current(ctx, s.sess)
	s.Require().NoError(err)
	s.Equal("en", sel.LanguageCode)
}

func (s *SelectorTestSuite) TestSetLanguageBroadcastsAndPersists() {
	ctx := s.T().Context()

	sel, err := s.selector.SetLanguage(ctx, s.sess, "hi")
	s.Require().NoError(err)
	s.Equal("hi", sel.LanguageCode)

	changed := s.emitter.named(preference.EventActiveLanguageChanged)
	s.Require().Len(changed, 1)
	payload, ok := changed[0].payload.(preference.LanguageChangedPayload)
	s.Require().True(ok)
	s.Equal("hi", payload.LanguageCode)
	s.Equal("exp-1", payload.ExplorationID)

	s.Len(s.emitter.named(preference.EventTranslationStatusRefresh), 1)
}

func (s *SelectorTestSuite) TestSetLanguageRejectedWhileBusy() {
	ctx := s.T().Context()

	_, err := s.selector.SetLanguage(ctx, s.sess, "sw")
	s.Require().NoError(err)
	s.emitter.reset()

	s.Require().NoError(s.selector.SetBusy(ctx, s.sess))

	sel, err := s.selector.SetLanguage(ctx, s.sess, "hi")
	s.Require().ErrorIs(err, preference.ErrSelectorBusy)

	// The returned selection is the rolled back, persisted one.
	s.Equal("sw", sel.LanguageCode)

	stored, err := s.selector.Current(ctx, s.sess)
	s.Require().NoError(err)
	s.Equal("sw", stored.LanguageCode)

	s.Len(s.emitter.named(preference.EventSelectionBusyRejected), 1)
	s.Empty(s.emitter.named(preference.EventTranslationStatusRefresh))
	s.Empty(s.emitter.named(preference.EventActiveLanguageChanged))
}

func (s *SelectorTestSuite) TestClearBusyAllowsChangesAgain() {
	ctx := s.T().Context()

	s.Require().NoError(s.selector.SetBusy(ctx, s.sess))
	s.Require().NoError(s.selector.ClearBusy(ctx, s.sess))

	_, err := s.selector.SetLanguage(ctx, s.sess, "sw")
	s.NoError(err)
}

func (s *SelectorTestSuite) TestSetLanguageRejectsIneligibleCode() {
	ctx := s.T().Context()

	_, err := s.selector.SetMode(ctx, s.sess, preference.ModeTranslate)
	s.Require().NoError(err)

	// The exploration's own display language is not selectable in
	// translation mode.
	_, err = s.selector.SetLanguage(ctx, s.sess, s.sess.DisplayLanguage)
	s.ErrorIs(err, preference.ErrLanguageNotEligible)
}

func (s *SelectorTestSuite) TestSetModeOrphanedSelectionFallsBack() {
	ctx := s.T().Context()

	sess := preference.Session{
		SessionID:       "sess-2",
		ExplorationID:   "exp-2",
		DisplayLanguage: "sw",
	}

	_, err := s.selector.SetLanguage(ctx, sess, "sw")
	s.Require().NoError(err)

	sel, err := s.selector.SetMode(ctx, sess, preference.ModeTranslate)
	s.Require().NoError(err)
	s.Equal("en", sel.LanguageCode)
	s.Equal(preference.ModeTranslate, sel.Mode)

	// The fallback is persisted, not just computed.
	stored, err := s.selector.Current(ctx, sess)
	s.Require().NoError(err)
	s.Equal("en", stored.LanguageCode)
}

func (s *SelectorTestSuite) TestEligibleSetPerMode() {
	translate := s.selector.Eligible(s.sess, preference.ModeTranslate)
	for _, l := range translate {
		s.NotEqual(s.sess.DisplayLanguage, l.Code)
	}

	voiceover := s.selector.Eligible(s.sess, preference.ModeVoiceover)
	codes := make(map[string]bool, len(voiceover))
	for _, l := range voiceover {
		codes[l.Code] = true
	}
	// Toggling back restores the display language.
	s.True(codes[s.sess.DisplayLanguage])
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		name    string
		value   string
		want    preference.Mode
		wantErr bool
	}{
		{name: "voiceover", value: "voiceover", want: preference.ModeVoiceover},
		{name: "translate", value: "translate", want: preference.ModeTranslate},
		{name: "unknown", value: "subtitles", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mode, err := preference.ParseMode(tc.value)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, mode)
		})
	}
}
