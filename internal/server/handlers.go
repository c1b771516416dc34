package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperjump/pillbox/internal/druginfo"
	"github.com/hyperjump/pillbox/internal/keyword"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/schedule"
	"go.uber.org/zap"
)

// mealsRequest overrides meal times ("HH:MM"); empty fields keep the server defaults.
type mealsRequest struct {
	Breakfast string `json:"breakfast,omitempty"`
	Lunch     string `json:"lunch,omitempty"`
	Dinner    string `json:"dinner,omitempty"`
}

type parseRequest struct {
	Texts  []string      `json:"texts"`
	Scores []*float64    `json:"scores,omitempty"`
	Meals  *mealsRequest `json:"meals,omitempty"`
}

type parseResponse struct {
	Medicines  []models.MedicineRecord `json:"medicines"`
	Candidates []models.MatchCandidate `json:"candidates"`
	Alarms     []models.AlarmEvent     `json:"alarms"`
}

type infoRequest struct {
	MedicineName string `json:"medicine_name"`
}

type alarmsRequest struct {
	Medicines []models.MedicineRecord `json:"medicines"`
	Meals     *mealsRequest           `json:"meals,omitempty"`
}

type searchResponse struct {
	Query      string                    `json:"query"`
	Results    []keyword.Result          `json:"results"`
	SpellCheck *keyword.SpellCheckResult `json:"spell_check,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lex := s.svc.Store().Current()
	meals := s.svc.MealTimes()
	resp := map[string]interface{}{
		"lexicon": lex.Stats(),
		"meals": map[string]string{
			"breakfast": meals.Breakfast.String(),
			"lunch":     meals.Lunch.String(),
			"dinner":    meals.Dinner.String(),
		},
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["indexed_entries"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Texts == nil {
		s.respondError(w, http.StatusBadRequest, "texts is required")
		return
	}
	batch := models.OCRBatch{Texts: req.Texts, Scores: req.Scores}
	if err := batch.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	meals, err := s.meals(req.Meals)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("parse request",
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("lines", len(batch.Texts)))

	res := s.svc.Parse(r.Context(), batch)
	s.respondJSON(w, http.StatusOK, parseResponse{
		Medicines:  res.Medicines,
		Candidates: res.Candidates,
		Alarms:     s.svc.Alarms(res.Medicines, meals),
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var batch models.OCRBatch
	if !s.decode(w, r, &batch) {
		return
	}
	if err := batch.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.svc.Match(batch))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req infoRequest
	if !s.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.MedicineName)
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "medicine_name is required")
		return
	}
	info, err := s.svc.Lookup(r.Context(), name)
	switch {
	case errors.Is(err, druginfo.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "medicine not found")
	case err != nil:
		s.logger.Error("drug info lookup failed", zap.String("name", name), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "drug information service unavailable")
	default:
		s.respondJSON(w, http.StatusOK, info)
	}
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	var req alarmsRequest
	if !s.decode(w, r, &req) {
		return
	}
	meals, err := s.meals(req.Meals)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alarms": s.svc.Alarms(req.Medicines, meals),
	})
}

func (s *Server) handleLexiconSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "lexicon search not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	var opts *keyword.SearchOptions
	if fuzzy, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy")); fuzzy {
		opts = &keyword.SearchOptions{Fuzzy: true}
	}

	results, err := s.index.Search(q, limit, opts)
	if err != nil {
		s.logger.Error("lexicon search failed", zap.String("query", q), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := searchResponse{Query: q, Results: results}
	if s.spell != nil {
		check, err := s.spell.Check(q)
		if err != nil {
			s.logger.Warn("spell check failed", zap.String("query", q), zap.Error(err))
		} else if check.HasCorrections {
			resp.SpellCheck = check
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// meals merges request overrides into the service's meal times.
func (s *Server) meals(req *mealsRequest) (schedule.MealTimes, error) {
	base := s.svc.MealTimes()
	if req == nil {
		return base, nil
	}
	pick := func(v string, def schedule.Clock) string {
		if v == "" {
			return def.String()
		}
		return v
	}
	return schedule.ParseMealTimes(
		pick(req.Breakfast, base.Breakfast),
		pick(req.Lunch, base.Lunch),
		pick(req.Dinner, base.Dinner))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
