package lingopref

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mzalendo/lingopref/preference"
	"github.com/mzalendo/lingopref/search"
	"github.com/mzalendo/lingopref/store"
)

// Routes builds the REST surface of the service.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/languages", s.handleEligibleLanguages)
	mux.HandleFunc("GET /v1/selection", s.handleGetSelection)
	mux.HandleFunc("PUT /v1/selection/language", s.handleSetLanguage)
	mux.HandleFunc("PUT /v1/selection/mode", s.handleSetMode)
	mux.HandleFunc("PUT /v1/selection/busy", s.handleSetBusy)
	mux.HandleFunc("GET /v1/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("POST /v1/opportunities", s.handleSaveOpportunity)
	mux.HandleFunc("GET /v1/opportunities", s.handleListOpportunities)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func sessionFromQuery(r *http.Request) preference.Session {
	q := r.URL.Query()
	return preference.Session{
		SessionID:       q.Get("session_id"),
		ExplorationID:   q.Get("exploration_id"),
		DisplayLanguage: q.Get("display_language"),
	}
}

type selectionRequest struct {
	preference.Session
	LanguageCode string `json:"language_code"`
	Mode         string `json:"mode"`
	Busy         bool   `json:"busy"`
}

func decodeSelectionRequest(r *http.Request) (selectionRequest, error) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.SessionID == "" {
		return req, errors.New("session_id is required")
	}
	return req, nil
}

func (s *Service) handleEligibleLanguages(w http.ResponseWriter, r *http.Request) {
	mode := preference.ModeVoiceover
	if value := r.URL.Query().Get("mode"); value != "" {
		parsed, err := preference.ParseMode(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	sess := sessionFromQuery(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      mode,
		"languages": s.selector.Eligible(sess, mode),
	})
}

func (s *Service) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromQuery(r)
	if sess.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	selection, err := s.selector.Current(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, selection)
}

func (s *Service) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSelectionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selection, err := s.selector.SetLanguage(r.Context(), req.Session, req.LanguageCode)
	switch {
	case errors.Is(err, preference.ErrSelectorBusy):
		// The rolled back selection travels with the rejection so clients
		// can revert their visible choice.
		writeJSON(w, http.StatusConflict, map[string]any{
			"selection": selection,
			"message":   s.translator.Translate(r.Context(), r, "SelectorBusy"),
		})
	case errors.Is(err, preference.ErrLanguageNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, selection)
	}
}

func (s *Service) handleSetMode(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSelectionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode, err := preference.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selection, err := s.selector.SetMode(r.Context(), req.Session, mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, selection)
}

func (s *Service) handleSetBusy(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSelectionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Busy {
		err = s.selector.SetBusy(r.Context(), req.Session)
	} else {
		err = s.selector.ClearBusy(r.Context(), req.Session)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"busy": req.Busy})
}

func (s *Service) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "progress tracking is not configured")
		return
	}

	q := r.URL.Query()
	explorationID := q.Get("exploration_id")
	languageCode := q.Get("language_code")
	if explorationID == "" || languageCode == "" {
		writeError(w, http.StatusBadRequest, "exploration_id and language_code are required")
		return
	}

	mode := preference.ModeTranslate
	if value := q.Get("mode"); value != "" {
		parsed, err := preference.ParseMode(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	report, err := s.tracker.Report(r.Context(), explorationID, languageCode)
	if err != nil {
		if errors.Is(err, store.ErrOpportunityNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":  report,
		"percent": report.Percent(),
		"label":   s.tracker.Label(r.Context(), r, report, mode),
	})
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searchClient == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	payload, err := s.searchClient.Search(r.Context(), query)
	if err != nil {
		var searchErr *search.Error
		if errors.As(err, &searchErr) {
			// Pass the upstream error payload through unmodified.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(searchErr.StatusCode)
			_, _ = w.Write(searchErr.Payload)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func (s *Service) handleSaveOpportunity(w http.ResponseWriter, r *http.Request) {
	if s.opportunities == nil {
		writeError(w, http.StatusServiceUnavailable, "opportunity store is not configured")
		return
	}

	var opportunity store.ExplorationOpportunity
	if err := json.NewDecoder(r.Body).Decode(&opportunity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if opportunity.ExplorationID == "" || opportunity.LanguageCode == "" {
		writeError(w, http.StatusBadRequest, "exploration_id and language_code are required")
		return
	}

	if err := s.opportunities.Save(r.Context(), &opportunity); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, opportunity)
}

func (s *Service) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	if s.opportunities == nil {
		writeError(w, http.StatusServiceUnavailable, "opportunity store is not configured")
		return
	}

	explorationID := r.URL.Query().Get("exploration_id")
	if explorationID == "" {
		writeError(w, http.StatusBadRequest, "exploration_id is required")
		return
	}

	opportunities, err := s.opportunities.ListByExploration(r.Context(), explorationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, opportunities)
}
