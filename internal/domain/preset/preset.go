package preset

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested preset does not exist.
var ErrNotFound = errors.New("preset not found")

// Preset holds a user's payment capabilities: owned payment methods,
// subscription benefits, and whether the user can complete QR payments.
// Presets are created and edited by the user; the pricing core only reads them.
type Preset struct {
	ID             string
	Name           string
	PaymentMethods []string
	Subscriptions  []Subscription
	QRPayment      bool
	UpdatedAt      time.Time
}

// Subscription links a preset to a subscription-backed discount rule,
// optionally bounded by a validity window and remaining-usage counters.
type Subscription struct {
	RuleID      string     `json:"rule_id"`
	Active      bool       `json:"active"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
	DailyRemain *int       `json:"daily_remain,omitempty"`
	TotalRemain *int       `json:"total_remain,omitempty"`
}

// Usable reports whether the subscription can back a discount right now:
// it must be active, inside its validity window, and not exhausted.
func (s *Subscription) Usable(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.ValidFrom != nil && now.Before(*s.ValidFrom) {
		return false
	}
	if s.ValidTo != nil && now.After(*s.ValidTo) {
		return false
	}
	if s.DailyRemain != nil && *s.DailyRemain <= 0 {
		return false
	}
	if s.TotalRemain != nil && *s.TotalRemain <= 0 {
		return false
	}
	return true
}

// Allowance returns how many discounted units this subscription still covers.
// The second return value is false when usage is unlimited.
func (s *Subscription) Allowance() (int, bool) {
	switch {
	case s.DailyRemain != nil && s.TotalRemain != nil:
		if *s.DailyRemain < *s.TotalRemain {
			return *s.DailyRemain, true
		}
		return *s.TotalRemain, true
	case s.DailyRemain != nil:
		return *s.DailyRemain, true
	case s.TotalRemain != nil:
		return *s.TotalRemain, true
	default:
		return 0, false
	}
}

// Subscription returns the subscription entry linked to the given rule ID,
// or nil when the preset has none.
func (p *Preset) Subscription(ruleID string) *Subscription {
	for i := range p.Subscriptions {
		if p.Subscriptions[i].RuleID == ruleID {
			return &p.Subscriptions[i]
		}
	}
	return nil
}

// HasPaymentMethod reports whether the preset owns any of the given methods.
// An empty required list always matches.
func (p *Preset) HasPaymentMethod(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, owned := range p.PaymentMethods {
			if owned == want {
				return true
			}
		}
	}
	return false
}

// Repository defines persistence operations for presets.
type Repository interface {
	List(ctx context.Context) ([]Preset, error)
	GetByID(ctx context.Context, id string) (*Preset, error)
	Create(ctx context.Context, p *Preset) error
	Update(ctx context.Context, p *Preset) error
	Delete(ctx context.Context, id string) error
}
