// Package entitlement maps a subscription's plan and lifecycle status to the
// set of metric limits the team is currently entitled to.
package entitlement

import (
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	vo "formlens/internal/domain/subscription/valueobjects"
)

// FreeTierLimits is the fixed minimal limit set applied to teams without a
// subscription and to lapsed payers. Downgrading through limits instead of
// deleting data keeps historical usage auditable.
func FreeTierLimits() metering.LimitSet {
	return metering.LimitSet{
		metering.MetricActiveSurveys:   3,
		metering.MetricSurveyResponses: 100,
		metering.MetricTeamMembers:     2,
	}
}

// Resolver computes effective limits from (plan, status).
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// LimitsFor resolves the effective limit set. Effective statuses (active,
// trialing, past_due as grace period) grant the plan's full limits; every
// other status falls back to the free tier regardless of the plan purchased.
// A nil plan always resolves to the free tier.
func (r *Resolver) LimitsFor(plan *subscription.Plan, status vo.SubscriptionStatus) metering.LimitSet {
	if plan == nil || !status.IsEffective() {
		return FreeTierLimits()
	}
	return plan.Limits()
}

// LimitsForSubscription resolves limits for a team's subscription; a nil
// subscription (team never checked out) resolves to the free tier.
func (r *Resolver) LimitsForSubscription(sub *subscription.Subscription, plan *subscription.Plan) metering.LimitSet {
	if sub == nil {
		return FreeTierLimits()
	}
	return r.LimitsFor(plan, sub.Status())
}
