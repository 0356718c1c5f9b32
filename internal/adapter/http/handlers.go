package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/prediction"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	maxBodyBytes = 64 << 10
	defaultLimit = 20
	maxLimit     = 500
)

type predictRequest struct {
	Model    string             `json:"model"`
	Zone     string             `json:"zone"`
	Readings map[string]float64 `json:"readings"`
}

type zonesResponse struct {
	Zones       []string           `json:"zones"`
	Indicators  []string           `json:"indicators"`
	InputBounds domain.InputBounds `json:"input_bounds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]domain.Model{"models": s.predictor.Models()})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.predictor.Model(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, m)
}

func (s *Server) handleMetricsTable(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]prediction.MetricsRow{"models": s.predictor.MetricsTable()})
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, zonesResponse{
		Zones:       s.predictor.Zones(),
		Indicators:  s.predictor.Indicators(),
		InputBounds: s.predictor.Bounds(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req predictRequest
	if err := dec.Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Model == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "model is required"})
		return
	}

	rec := domain.RawRecord{Zone: req.Zone, Readings: req.Readings}
	if err := s.predictor.ValidateInput(rec); err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.predictor.Predict(r.Context(), req.Model, rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("limit must be 1-%d", maxLimit)})
			return
		}
		limit = n
	}

	ps, err := s.predictor.Recent(r.Context(), limit)
	if errors.Is(err, prediction.ErrHistoryDisabled) {
		ps, err = []domain.Prediction{}, nil
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]domain.Prediction{"predictions": ps})
}

// writeError maps domain errors to status codes. Anything unrecognized is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "status", status)
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		missing    *domain.MissingIndicatorError
		zone       *domain.UnknownZoneError
		outOfRange *domain.OutOfRangeError
		classifier *domain.ClassifierError
		label      *domain.InvalidLabelError
	)
	switch {
	case errors.Is(err, domain.ErrUnknownModel):
		return http.StatusNotFound
	case errors.As(err, &missing), errors.As(err, &zone), errors.As(err, &outOfRange):
		return http.StatusUnprocessableEntity
	case errors.As(err, &classifier), errors.As(err, &label):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
