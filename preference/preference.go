// Package preference holds the active translation / voiceover language
// selection for a contributor session on an exploration.
package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pitabwire/util"

	"github.com/mzalendo/lingopref/cache"
	"github.com/mzalendo/lingopref/languages"
)

// Mode determines which contribution workflow is active and therefore
// which languages are selectable.
type Mode string

const (
	// ModeVoiceover is the audio recording workflow.
	ModeVoiceover Mode = "voiceover"
	// ModeTranslate is the text translation workflow.
	ModeTranslate Mode = "translate"
)

// ParseMode converts a wire value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeVoiceover:
		return ModeVoiceover, nil
	case ModeTranslate:
		return ModeTranslate, nil
	default:
		return "", fmt.Errorf("unknown selection mode: %q", value)
	}
}

// Selection is the persisted state of the selector for one session.
type Selection struct {
	LanguageCode string `json:"language_code"`
	Mode         Mode   `json:"mode"`
}

// Session identifies whose selection is being managed and for which
// exploration. DisplayLanguage is the exploration's own display language,
// which is never selectable in translation mode.
type Session struct {
	SessionID       string `json:"session_id"`
	ExplorationID   string `json:"exploration_id"`
	DisplayLanguage string `json:"display_language"`
}

// Event names broadcast by the selector.
const (
	EventActiveLanguageChanged    = "active.language.changed"
	EventTranslationStatusRefresh = "translation.status.refresh"
	EventSelectionBusyRejected    = "selection.busy.rejected"
)

// LanguageChangedPayload is broadcast whenever a selection is persisted.
type LanguageChangedPayload struct {
	SessionID     string `json:"session_id"`
	ExplorationID string `json:"exploration_id"`
	LanguageCode  string `json:"language_code"`
	Mode          Mode   `json:"mode"`
}

// StatusRefreshPayload tells status trackers to recompute progress.
type StatusRefreshPayload struct {
	ExplorationID string `json:"exploration_id"`
	LanguageCode  string `json:"language_code"`
}

// BusyRejectedPayload is broadcast when a change is rejected under busy.
type BusyRejectedPayload struct {
	SessionID     string `json:"session_id"`
	AttemptedCode string `json:"attempted_code"`
}

var (
	ErrSelectorBusy        = errors.New("selection is busy, language change rejected")
	ErrLanguageNotEligible = errors.New("language is not eligible for the active mode")
	ErrUnknownSession      = errors.New("session id is required")
)

// Emitter broadcasts selector events. Satisfied by events.Manager.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// Option configures a Selector.
type Option func(*Selector)

// WithDefaultLanguage overrides the fallback language code.
func WithDefaultLanguage(code string) Option {
	return func(s *Selector) {
		s.defaultCode = code
	}
}

// WithSelectionMaxAge sets the TTL of persisted selections. Zero keeps them
// for the cache's own max age.
func WithSelectionMaxAge(maxAge time.Duration) Option {
	return func(s *Selector) {
		s.selectionMaxAge = maxAge
	}
}

// WithBusyMaxAge caps how long a busy flag can stick around before it is
// treated as cleared.
func WithBusyMaxAge(maxAge time.Duration) Option {
	return func(s *Selector) {
		s.busyMaxAge = maxAge
	}
}

const (
	defaultLanguageCode = "en"
	defaultBusyMaxAge   = 5 * time.Minute

	selectionKeyPrefix = "selection:"
	busyKeyPrefix      = "selection.busy:"
)

// Selector manages per session selections backed by a cache and broadcasting
// through an emitter.
type Selector struct {
	selections cache.Cache[string, Selection]
	raw        cache.RawCache
	emitter    Emitter

	defaultCode     string
	selectionMaxAge time.Duration
	busyMaxAge      time.Duration
}

// NewSelector creates a selector storing state in raw and broadcasting
// through emitter.
func NewSelector(raw cache.RawCache, emitter Emitter, opts ...Option) *Selector {
	s := &Selector{
		selections: cache.NewGenericCache[string, Selection](raw, func(sessionID string) string {
			return selectionKeyPrefix + sessionID
		}),
		raw:         raw,
		emitter:     emitter,
		defaultCode: defaultLanguageCode,
		busyMaxAge:  defaultBusyMaxAge,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DefaultLanguage returns the fallback language code.
func (s *Selector) DefaultLanguage() string {
	return s.defaultCode
}

// Eligible returns the selectable languages for the session under the given
// mode. In translation mode the exploration's display language is excluded;
// in voiceover mode only languages with an audio workflow qualify.
func (s *Selector) Eligible(sess Session, mode Mode) []languages.Language {
	if mode == ModeTranslate {
		return languages.EligibleExcluding(sess.DisplayLanguage)
	}
	return languages.EligibleForAudio()
}

func (s *Selector) isEligible(sess Session, mode Mode, code string) bool {
	for _, l := range s.Eligible(sess, mode) {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Current loads the persisted selection for the session. A missing entry, an
// unsupported code or a code that fell out of the eligible set all resolve to
// the default language.
func (s *Selector) Current(ctx context.Context, sess Session) (Selection, error) {
	if sess.SessionID == "" {
		return Selection{}, ErrUnknownSession
	}

	sel, found, err := s.selections.Get(ctx, sess.SessionID)
	if err != nil {
		return Selection{}, err
	}

	if !found {
		return Selection{LanguageCode: s.defaultCode, Mode: ModeVoiceover}, nil
	}

	if sel.Mode != ModeVoiceover && sel.Mode != ModeTranslate {
		sel.Mode = ModeVoiceover
	}

	if !languages.IsSupported(sel.LanguageCode) || !s.isEligible(sess, sel.Mode, sel.LanguageCode) {
		sel.LanguageCode = s.defaultCode
	}

	return sel, nil
}

// SetLanguage changes the active language for the session. While the busy
// flag is set the persisted selection is left untouched, a busy rejection is
// broadcast and the rolled back selection is returned with ErrSelectorBusy.
// No status refresh is triggered in that case.
func (s *Selector) SetLanguage(ctx context.Context, sess Session, code string) (Selection, error) {
	current, err := s.Current(ctx, sess)
	if err != nil {
		return Selection{}, err
	}

	busy, err := s.IsBusy(ctx, sess)
	if err != nil {
		return Selection{}, err
	}

	if busy {
		if emitErr := s.emitter.Emit(ctx, EventSelectionBusyRejected, BusyRejectedPayload{
			SessionID:     sess.SessionID,
			AttemptedCode: code,
		}); emitErr != nil {
			util.Log(ctx).WithError(emitErr).WithField("session", sess.SessionID).
				Error("could not broadcast busy rejection")
		}
		return current, ErrSelectorBusy
	}

	if !s.isEligible(sess, current.Mode, code) {
		return current, fmt.Errorf("%w: %s in mode %s", ErrLanguageNotEligible, code, current.Mode)
	}

	next := Selection{LanguageCode: code, Mode: current.Mode}
	if err = s.persist(ctx, sess, next); err != nil {
		return current, err
	}

	s.broadcast(ctx, sess, next)
	return next, nil
}

// SetMode toggles the workflow mode, recomputing eligibility. A selection
// orphaned by the switch, such as the display language in translation mode,
// falls back to the default language and is persisted.
func (s *Selector) SetMode(ctx context.Context, sess Session, mode Mode) (Selection, error) {
	current, err := s.Current(ctx, sess)
	if err != nil {
		return Selection{}, err
	}

	next := Selection{LanguageCode: current.LanguageCode, Mode: mode}
	if !s.isEligible(sess, mode, next.LanguageCode) {
		next.LanguageCode = s.defaultCode
	}

	if err = s.persist(ctx, sess, next); err != nil {
		return current, err
	}

	if next.LanguageCode != current.LanguageCode || next.Mode != current.Mode {
		s.broadcast(ctx, sess, next)
	}

	return next, nil
}

func (s *Selector) persist(ctx context.Context, sess Session, sel Selection) error {
	return s.selections.Set(ctx, sess.SessionID, sel, s.selectionMaxAge)
}

func (s *Selector) broadcast(ctx context.Context, sess Session, sel Selection) {
	logger := util.Log(ctx).WithField("session", sess.SessionID).WithField("language", sel.LanguageCode)

	err := s.emitter.Emit(ctx, EventActiveLanguageChanged, LanguageChangedPayload{
		SessionID:     sess.SessionID,
		ExplorationID: sess.ExplorationID,
		LanguageCode:  sel.LanguageCode,
		Mode:          sel.Mode,
	})
	if err != nil {
		logger.WithError(err).Error("could not broadcast language change")
	}

	err = s.emitter.Emit(ctx, EventTranslationStatusRefresh, StatusRefreshPayload{
		ExplorationID: sess.ExplorationID,
		LanguageCode:  sel.LanguageCode,
	})
	if err != nil {
		logger.WithError(err).Error("could not broadcast status refresh")
	}
}

// SetBusy raises the busy flag for the session, blocking language changes
// until cleared or until the busy max age lapses.
func (s *Selector) SetBusy(ctx context.Context, sess Session) error {
	if sess.SessionID == "" {
		return ErrUnknownSession
	}
	return s.raw.Set(ctx, busyKeyPrefix+sess.SessionID, []byte("1"), s.busyMaxAge)
}

// ClearBusy lowers the busy flag for the session.
func (s *Selector) ClearBusy(ctx context.Context, sess Session) error {
	if sess.SessionID == "" {
		return ErrUnknownSession
	}
	return s.raw.Delete(ctx, busyKeyPrefix+sess.SessionID)
}

// IsBusy reports whether the busy flag is raised for the session.
func (s *Selector) IsBusy(ctx context.Context, sess Session) (bool, error) {
	return s.raw.Exists(ctx, busyKeyPrefix+sess.SessionID)
}
