package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/skipq/internal/earnings"
	"github.com/Simplici0/skipq/internal/pricing"
	"github.com/Simplici0/skipq/internal/requests"
	"github.com/Simplici0/skipq/internal/validation"
)

type createRequestRequest struct {
	Title        string   `json:"title" validate:"required,max=120"`
	Location     string   `json:"location" validate:"required,max=200"`
	City         string   `json:"city" validate:"omitempty,max=80"`
	Description  string   `json:"description" validate:"omitempty,max=2000"`
	RequesterID  string   `json:"requester_id" validate:"required,max=64"`
	ServiceTier  string   `json:"service_tier" validate:"required,service_tier"`
	WaitMinutes  *float64 `json:"wait_minutes" validate:"required,gte=0,lte=1440"`
	Rush         bool     `json:"rush"`
	Jurisdiction string   `json:"jurisdiction" validate:"omitempty,max=16"`
}

type acceptRequestRequest struct {
	WorkerID string `json:"worker_id" validate:"required,max=64"`
}

type completeRequestRequest struct {
	ActualWaitMinutes *float64 `json:"actual_wait_minutes" validate:"required,gte=0,lte=1440"`
}

func (s *server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	tier, err := pricing.ParseServiceTier(req.ServiceTier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.requests.Create(r.Context(), requests.NewRequest{
		Title:        req.Title,
		Location:     req.Location,
		City:         req.City,
		Description:  req.Description,
		RequesterID:  req.RequesterID,
		Tier:         tier,
		WaitMinutes:  *req.WaitMinutes,
		Rush:         req.Rush,
		Jurisdiction: req.Jurisdiction,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := requests.FeedFilter{
		Query: strings.TrimSpace(q.Get("q")),
		City:  strings.TrimSpace(q.Get("city")),
	}

	if raw := strings.TrimSpace(q.Get("tier")); raw != "" {
		tier, err := pricing.ParseServiceTier(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Tier = tier
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			verr := &validation.Error{}
			verr.Add("limit", "limit must be a positive whole number")
			s.writeError(w, r, verr)
			return
		}
		filter.Limit = limit
	}

	feed, err := s.requests.Feed(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	found, err := s.requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	var req acceptRequestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	accepted, err := s.requests.Accept(r.Context(), chi.URLParam(r, "id"), req.WorkerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accepted)
}

func (s *server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	var req completeRequestRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	completed, err := s.requests.Complete(r.Context(), chi.URLParam(r, "id"), *req.ActualWaitMinutes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, completed)
}

func (s *server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	cancelled, err := s.requests.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

func (s *server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	period, err := earnings.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.requests.Earnings(r.Context(), chi.URLParam(r, "id"), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
