package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/skipq/internal/pricing"
	"github.com/Simplici0/skipq/internal/validation"
	"github.com/Simplici0/skipq/internal/waittime"
)

type quoteRequest struct {
	ServiceTier  string   `json:"service_tier" validate:"required,service_tier"`
	WaitMinutes  *float64 `json:"wait_minutes" validate:"required,gte=0,lte=1440"`
	Rush         bool     `json:"rush"`
	Jurisdiction string   `json:"jurisdiction" validate:"omitempty,max=16"`
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	tier, err := pricing.ParseServiceTier(req.ServiceTier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	fare, err := s.requests.Quote(r.Context(), pricing.FareInput{
		Tier:          tier,
		WaitMinutes:   *req.WaitMinutes,
		RushRequested: req.Rush,
		Jurisdiction:  req.Jurisdiction,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fare)
}

func (s *server) handleWaitEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	peopleAhead := 0
	if raw := strings.TrimSpace(q.Get("people_ahead")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr := &validation.Error{}
			verr.Add("people_ahead", "people_ahead must be a whole number")
			s.writeError(w, r, verr)
			return
		}
		peopleAhead = n
	}

	estimator, err := s.locations.Estimator(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	estimate, err := estimator.Estimate(waittime.EstimateInput{
		LocationID:  strings.TrimSpace(q.Get("location")),
		TimeOfDay:   waittime.TimeOfDay(strings.TrimSpace(q.Get("time_of_day"))),
		PeopleAhead: peopleAhead,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (s *server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.locations.ListLocations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}
