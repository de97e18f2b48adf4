package requests

import (
	"errors"
	"time"

	"github.com/Simplici0/skipq/internal/pricing"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrInvalidTransition = errors.New("request cannot move to that status")
)

// Status is where a request is in its lifecycle:
// open -> in_progress -> completed, and open|in_progress -> cancelled.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Request is a posted line-waiting job. Estimate and Final are fare snapshots
// taken at posting and at completion; neither is recomputed after it is stored.
type Request struct {
	ID                   string                 `json:"id"`
	CreatedAt            time.Time              `json:"created_at"`
	Title                string                 `json:"title"`
	Location             string                 `json:"location"`
	City                 string                 `json:"city,omitempty"`
	Description          string                 `json:"description,omitempty"`
	RequesterID          string                 `json:"requester_id"`
	Tier                 pricing.ServiceTier    `json:"service_tier"`
	EstimatedWaitMinutes float64                `json:"estimated_wait_minutes"`
	Rush                 bool                   `json:"rush"`
	Jurisdiction         string                 `json:"jurisdiction,omitempty"`
	Status               Status                 `json:"status"`
	WorkerID             string                 `json:"worker_id,omitempty"`
	ActualWaitMinutes    *float64               `json:"actual_wait_minutes,omitempty"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
	Estimate             pricing.FareBreakdown  `json:"estimate"`
	Final                *pricing.FareBreakdown `json:"final,omitempty"`
}

// Charge is the fare that is (or will be) billed: the final one once the job is done.
func (r Request) Charge() pricing.FareBreakdown {
	if r.Final != nil {
		return *r.Final
	}
	return r.Estimate
}

type NewRequest struct {
	Title        string
	Location     string
	City         string
	Description  string
	RequesterID  string
	Tier         pricing.ServiceTier
	WaitMinutes  float64
	Rush         bool
	Jurisdiction string
}

// FeedFilter narrows the open-job feed workers browse.
type FeedFilter struct {
	// Query matches title or location, case-insensitively.
	Query string
	// City matches the city field exactly or appears in the location.
	City  string
	Tier  pricing.ServiceTier
	Limit int
}
