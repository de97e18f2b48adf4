package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/skipq/internal/pricing"
)

type jurisdictionRequest struct {
	Rate *float64 `json:"rate" validate:"required,gte=0,lt=1"`
}

func (s *server) handleGetFareConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.cards.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handlePutFareConfig replaces the whole rate card. Stored fare snapshots are untouched.
func (s *server) handlePutFareConfig(w http.ResponseWriter, r *http.Request) {
	var cfg pricing.Config
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.cards.Save(r.Context(), cfg); err != nil {
		s.writeError(w, r, err)
		return
	}

	saved, err := s.cards.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("rate card updated",
		zap.Int("tiers", len(saved.Tiers)),
		zap.Int("jurisdictions", len(saved.TaxRates)),
		zap.String("currency", saved.Currency),
	)
	writeJSON(w, http.StatusOK, saved)
}

func (s *server) handlePutJurisdiction(w http.ResponseWriter, r *http.Request) {
	var req jurisdictionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	code := chi.URLParam(r, "code")
	if err := s.cards.SetJurisdiction(r.Context(), code, *req.Rate); err != nil {
		s.writeError(w, r, err)
		return
	}

	cfg, err := s.cards.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("tax jurisdiction updated", zap.String("code", code), zap.Float64("rate", *req.Rate))
	writeJSON(w, http.StatusOK, cfg)
}
