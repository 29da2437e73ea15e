package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/loadlab/internal/simulation"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	base := simulation.Params{}
	if name := query.Get(simulation.ParamPreset); name != "" {
		preset, ok := s.presets.Lookup(name)
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown preset: " + name})
			return
		}
		base = preset.Params
	}

	params, err := simulation.ParseQuery(query, base)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := s.simulator.Run(r.Context(), params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, simulation.ErrSimulatedFailure):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: simulation.FailureMessage})
	case errors.Is(err, simulation.ErrInvalidParams):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "request cancelled"})
	default:
		log.WithError(err).Error("Simulation failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.presets.All())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}
