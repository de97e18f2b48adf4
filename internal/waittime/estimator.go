package waittime

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// MinWaitMinutes is the shortest wait a job can be posted with.
	MinWaitMinutes = 15
	// MaxWaitMinutes is the top of the request form's wait slider.
	MaxWaitMinutes = 240
	// SliderStepMinutes is the request form's wait slider step.
	SliderStepMinutes = 15

	minutesPerPerson = 2
	rangeSpread      = 10
)

var ErrInvalidEstimateInput = errors.New("invalid wait estimate input")

// TimeOfDay scales a location's typical wait.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Midday    TimeOfDay = "midday"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Weekend   TimeOfDay = "weekend"
)

var timeFactors = map[TimeOfDay]float64{
	Morning:   0.8,
	Midday:    1.3,
	Afternoon: 1.0,
	Evening:   1.2,
	Weekend:   1.5,
}

// Location is a place with a known typical wait.
type Location struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AvgWaitMinutes int    `json:"avg_wait_minutes"`
}

// DefaultLocations are the popular Toronto spots the estimator ships with.
func DefaultLocations() []Location {
	return []Location{
		{ID: "cn-tower", Name: "CN Tower", AvgWaitMinutes: 60},
		{ID: "passport-office", Name: "Passport Office", AvgWaitMinutes: 120},
		{ID: "service-ontario", Name: "Service Ontario", AvgWaitMinutes: 45},
		{ID: "apple-store", Name: "Apple Store", AvgWaitMinutes: 30},
		{ID: "chick-fil-a", Name: "Chick-fil-A", AvgWaitMinutes: 15},
	}
}

type EstimateInput struct {
	// LocationID of a known location; empty or "custom" uses the minimum base wait.
	LocationID  string
	TimeOfDay   TimeOfDay
	PeopleAhead int
}

type Estimate struct {
	Minutes    int    `json:"estimated_minutes"`
	RangeLow   int    `json:"range_low"`
	RangeHigh  int    `json:"range_high"`
	Range      string `json:"estimated_range"`
	Confidence string `json:"confidence"`
	// SliderMinutes is Minutes snapped onto the request form's slider.
	SliderMinutes int `json:"slider_minutes"`
}

// Estimator predicts how long a line will take. It is read-only after construction.
type Estimator struct {
	locations map[string]Location
}

func NewEstimator(locations []Location) *Estimator {
	byID := make(map[string]Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}
	return &Estimator{locations: byID}
}

// Estimate computes round((base + 2*peopleAhead) * timeFactor), floored at 15 minutes.
func (e *Estimator) Estimate(in EstimateInput) (Estimate, error) {
	if in.PeopleAhead < 0 {
		return Estimate{}, fmt.Errorf("%w: people ahead must be zero or more", ErrInvalidEstimateInput)
	}

	factor := 1.0
	if in.TimeOfDay != "" {
		f, ok := timeFactors[TimeOfDay(strings.ToLower(string(in.TimeOfDay)))]
		if !ok {
			return Estimate{}, fmt.Errorf("%w: unknown time of day %q", ErrInvalidEstimateInput, in.TimeOfDay)
		}
		factor = f
	}

	base := MinWaitMinutes
	confidence := "moderate"
	if loc, ok := e.locations[in.LocationID]; ok {
		base = loc.AvgWaitMinutes
		confidence = "high"
	}

	minutes := int(math.Round(float64(base+in.PeopleAhead*minutesPerPerson) * factor))
	minutes = max(minutes, MinWaitMinutes)

	low := max(minutes-rangeSpread, MinWaitMinutes)
	high := minutes + rangeSpread
	return Estimate{
		Minutes:       minutes,
		RangeLow:      low,
		RangeHigh:     high,
		Range:         fmt.Sprintf("%d-%d min", low, high),
		Confidence:    confidence,
		SliderMinutes: SnapToSlider(minutes),
	}, nil
}

// SnapToSlider clamps minutes to the slider bounds and rounds to the nearest step.
func SnapToSlider(minutes int) int {
	if minutes <= MinWaitMinutes {
		return MinWaitMinutes
	}
	if minutes >= MaxWaitMinutes {
		return MaxWaitMinutes
	}
	steps := int(math.Round(float64(minutes) / SliderStepMinutes))
	return steps * SliderStepMinutes
}
