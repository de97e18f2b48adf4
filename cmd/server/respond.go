package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/skipq/internal/earnings"
	"github.com/Simplici0/skipq/internal/pricing"
	"github.com/Simplici0/skipq/internal/ratecard"
	"github.com/Simplici0/skipq/internal/requests"
	"github.com/Simplici0/skipq/internal/validation"
	"github.com/Simplici0/skipq/internal/waittime"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: unexpected trailing data")
	}
	return nil
}

// decodeAndValidate decodes the body and runs struct validation, writing the
// error response itself. It reports whether the handler should continue.
func (s *server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is a 500.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr)
		return
	case errors.Is(err, requests.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, requests.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, pricing.ErrInvalidConfig):
		writeJSON(w, http.StatusUnprocessableEntity, &validation.Error{Errors: map[string]string{"fare_config": err.Error()}})
		return
	case errors.Is(err, earnings.ErrUnknownPeriod):
		writeJSON(w, http.StatusUnprocessableEntity, &validation.Error{Errors: map[string]string{"period": err.Error()}})
		return
	case errors.Is(err, waittime.ErrInvalidEstimateInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, ratecard.ErrNotSeeded):
		s.log.Error("rate card missing", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "rate card is not configured"})
		return
	}

	if fields, ok := validation.FromPricing(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, fields)
		return
	}

	s.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}
