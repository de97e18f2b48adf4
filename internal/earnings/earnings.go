package earnings

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Simplici0/skipq/internal/pricing"
)

// Period is the window an earnings summary covers.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

var ErrUnknownPeriod = errors.New("period must be one of: week, month, year")

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return Week, nil
	case Week, Month, Year:
		return p, nil
	default:
		return "", ErrUnknownPeriod
	}
}

// Since returns the start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case Month:
		return now.AddDate(0, -1, 0)
	case Year:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

// Entry is one completed job from the worker's point of view.
type Entry struct {
	RequestID   string              `json:"request_id"`
	Amount      float64             `json:"amount"`
	Tier        pricing.ServiceTier `json:"service_tier"`
	WaitMinutes float64             `json:"wait_minutes"`
	CompletedAt time.Time           `json:"completed_at"`
	Location    string              `json:"location"`
}

// Bucket aggregates earnings for one chart label.
type Bucket struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Jobs   int     `json:"jobs"`
}

type Summary struct {
	Period           Period   `json:"period"`
	TotalEarnings    float64  `json:"total_earnings"`
	TotalWaitMinutes float64  `json:"total_wait_minutes"`
	JobsCompleted    int      `json:"jobs_completed"`
	HourlyRate       float64  `json:"hourly_rate"`
	Buckets          []Bucket `json:"buckets"`
	Entries          []Entry  `json:"entries"`
}

// Summarize totals entries and groups them by day of week, day of month or
// month depending on the period. Entries are returned newest first.
func Summarize(entries []Entry, period Period) Summary {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
	})

	s := Summary{Period: period, Entries: sorted, Buckets: make([]Bucket, 0)}
	index := make(map[string]int)
	// Walk oldest to newest so buckets come out chronologically.
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		s.TotalEarnings += e.Amount
		s.TotalWaitMinutes += e.WaitMinutes
		s.JobsCompleted++

		label := bucketLabel(period, e.CompletedAt)
		pos, ok := index[label]
		if !ok {
			pos = len(s.Buckets)
			index[label] = pos
			s.Buckets = append(s.Buckets, Bucket{Label: label})
		}
		s.Buckets[pos].Amount += e.Amount
		s.Buckets[pos].Jobs++
	}

	if s.TotalWaitMinutes > 0 {
		s.HourlyRate = pricing.Round2(s.TotalEarnings / (s.TotalWaitMinutes / 60))
	}
	s.TotalEarnings = pricing.Round2(s.TotalEarnings)
	for i := range s.Buckets {
		s.Buckets[i].Amount = pricing.Round2(s.Buckets[i].Amount)
	}
	return s
}

func bucketLabel(period Period, t time.Time) string {
	switch period {
	case Month:
		return t.Format("2 Jan")
	case Year:
		return t.Format("Jan 2006")
	default:
		return t.Format("Mon 2 Jan")
	}
}
