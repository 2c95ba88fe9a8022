package subscription

import (
	"fmt"
	"time"

	"formlens/internal/domain/metering"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/id"
)

// PlanTier is the named pricing tier of a plan
type PlanTier string

const (
	TierFree       PlanTier = "FREE"
	TierStarter    PlanTier = "STARTER"
	TierPro        PlanTier = "PRO"
	TierEnterprise PlanTier = "ENTERPRISE"
)

// IsValid checks if the plan tier is valid
func (t PlanTier) IsValid() bool {
	switch t {
	case TierFree, TierStarter, TierPro, TierEnterprise:
		return true
	default:
		return false
	}
}

var validCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
}

// Plan is a named tier with a price and a table of metric limits. Plans are
// immutable once referenced by an active subscription: new pricing creates a
// new plan row rather than mutating an existing one.
type Plan struct {
	id        uint
	sid       string
	name      string
	slug      string
	tier      PlanTier
	price     uint64
	currency  string
	limits    metering.LimitSet
	trialDays int
	isPublic  bool
	sortOrder int
	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewPlan creates a new plan with the given limit table. Price is in the
// currency's minor unit (cents).
func NewPlan(name, slug string, tier PlanTier, price uint64, currency string,
	limits metering.LimitSet, trialDays int) (*Plan, error) {

	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if slug == "" {
		return nil, fmt.Errorf("plan slug is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("plan name too long (max 100 characters)")
	}
	if !tier.IsValid() {
		return nil, fmt.Errorf("invalid plan tier: %s", tier)
	}
	if !validCurrencies[currency] {
		return nil, fmt.Errorf("invalid currency code: %s", currency)
	}
	if trialDays < 0 {
		return nil, fmt.Errorf("trial days cannot be negative")
	}
	for metric, limit := range limits {
		if !metric.IsValid() {
			return nil, fmt.Errorf("invalid metric type in limits: %s", metric)
		}
		if limit < metering.Unlimited {
			return nil, fmt.Errorf("invalid limit for %s: %d", metric, limit)
		}
	}

	sid, err := id.NewPlanID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Plan{
		sid:       sid,
		name:      name,
		slug:      slug,
		tier:      tier,
		price:     price,
		currency:  currency,
		limits:    limits.Clone(),
		trialDays: trialDays,
		isPublic:  true,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructPlan reconstructs a plan from persistence.
func ReconstructPlan(planID uint, sid, name, slug string, tier PlanTier,
	price uint64, currency string, limits metering.LimitSet, trialDays int,
	isPublic bool, sortOrder, version int, createdAt, updatedAt time.Time) (*Plan, error) {

	if planID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if !tier.IsValid() {
		return nil, fmt.Errorf("invalid plan tier: %s", tier)
	}
	if limits == nil {
		limits = metering.LimitSet{}
	}

	return &Plan{
		id:        planID,
		sid:       sid,
		name:      name,
		slug:      slug,
		tier:      tier,
		price:     price,
		currency:  currency,
		limits:    limits,
		trialDays: trialDays,
		isPublic:  isPublic,
		sortOrder: sortOrder,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the plan ID
func (p *Plan) ID() uint { return p.id }

// SID returns the Stripe-style ID
func (p *Plan) SID() string { return p.sid }

// Name returns the plan name
func (p *Plan) Name() string { return p.name }

// Slug returns the plan slug
func (p *Plan) Slug() string { return p.slug }

// Tier returns the pricing tier
func (p *Plan) Tier() PlanTier { return p.tier }

// Price returns the price in the currency's minor unit
func (p *Plan) Price() uint64 { return p.price }

// Currency returns the ISO currency code
func (p *Plan) Currency() string { return p.currency }

// Limits returns a copy of the plan's metric limit table
func (p *Plan) Limits() metering.LimitSet { return p.limits.Clone() }

// TrialDays returns the trial length granted on signup
func (p *Plan) TrialDays() int { return p.trialDays }

// IsPublic reports whether the plan is offered on the pricing page
func (p *Plan) IsPublic() bool { return p.isPublic }

// SortOrder returns the display ordering hint
func (p *Plan) SortOrder() int { return p.sortOrder }

// Version returns the aggregate version
func (p *Plan) Version() int { return p.version }

// CreatedAt returns when the plan was created
func (p *Plan) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns when the plan was last updated
func (p *Plan) UpdatedAt() time.Time { return p.updatedAt }

// SetID sets the plan ID (only for persistence layer use)
func (p *Plan) SetID(planID uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if planID == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = planID
	return nil
}

// LimitFor returns the plan's limit for a metric.
func (p *Plan) LimitFor(metric metering.MetricType) int64 {
	return p.limits.LimitFor(metric)
}

// SetVisibility updates whether the plan appears in public listings.
func (p *Plan) SetVisibility(isPublic bool) {
	p.isPublic = isPublic
	p.updatedAt = biztime.NowUTC()
}

// SetSortOrder updates the plan's position in public listings.
func (p *Plan) SetSortOrder(order int) {
	p.sortOrder = order
	p.updatedAt = biztime.NowUTC()
}
