package pricing

import "strings"

// ServiceTier selects the base price and time rate of a job.
type ServiceTier string

const (
	// HoldShare: the worker holds the spot and shares updates until the requester arrives.
	HoldShare ServiceTier = "hold-share"
	// HoldSwitch: the worker holds the spot and switches places with the requester.
	HoldSwitch ServiceTier = "hold-switch"
)

// Tiers lists the known service tiers in display order.
func Tiers() []ServiceTier {
	return []ServiceTier{HoldShare, HoldSwitch}
}

func (t ServiceTier) Valid() bool {
	return t == HoldShare || t == HoldSwitch
}

// ParseServiceTier accepts the canonical names, ignoring case and surrounding space.
func ParseServiceTier(raw string) (ServiceTier, error) {
	tier := ServiceTier(strings.ToLower(strings.TrimSpace(raw)))
	if !tier.Valid() {
		return "", invalid("service_tier", raw, ErrUnknownTier)
	}
	return tier, nil
}
