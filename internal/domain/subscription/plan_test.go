package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formlens/internal/domain/metering"
)

func TestNewPlan(t *testing.T) {
	limits := metering.LimitSet{
		metering.MetricActiveSurveys:   50,
		metering.MetricSurveyResponses: 10000,
		metering.MetricTeamMembers:     10,
	}

	tests := []struct {
		name     string
		planName string
		slug     string
		tier     PlanTier
		price    uint64
		currency string
		limits   metering.LimitSet
		trial    int
		wantErr  bool
	}{
		{
			name:     "valid plan",
			planName: "Pro",
			slug:     "pro",
			tier:     TierPro,
			price:    4900,
			currency: "USD",
			limits:   limits,
			trial:    14,
			wantErr:  false,
		},
		{
			name:     "empty name",
			planName: "",
			slug:     "pro",
			tier:     TierPro,
			price:    4900,
			currency: "USD",
			limits:   limits,
			wantErr:  true,
		},
		{
			name:     "empty slug",
			planName: "Pro",
			slug:     "",
			tier:     TierPro,
			price:    4900,
			currency: "USD",
			limits:   limits,
			wantErr:  true,
		},
		{
			name:     "invalid tier",
			planName: "Pro",
			slug:     "pro",
			tier:     PlanTier("PLATINUM"),
			price:    4900,
			currency: "USD",
			limits:   limits,
			wantErr:  true,
		},
		{
			name:     "invalid currency",
			planName: "Pro",
			slug:     "pro",
			tier:     TierPro,
			price:    4900,
			currency: "XXX",
			limits:   limits,
			wantErr:  true,
		},
		{
			name:     "negative trial days",
			planName: "Pro",
			slug:     "pro",
			tier:     TierPro,
			price:    4900,
			currency: "USD",
			limits:   limits,
			trial:    -1,
			wantErr:  true,
		},
		{
			name:     "unknown metric in limits",
			planName: "Pro",
			slug:     "pro",
			tier:     TierPro,
			price:    4900,
			currency: "USD",
			limits:   metering.LimitSet{metering.MetricType("widgets"): 5},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.planName, tt.slug, tt.tier, tt.price, tt.currency, tt.limits, tt.trial)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanLimitsAreCopied(t *testing.T) {
	limits := metering.LimitSet{metering.MetricActiveSurveys: 10}
	plan, err := NewPlan("Starter", "starter", TierStarter, 1900, "USD", limits, 0)
	require.NoError(t, err)

	// Mutating the input or the returned map must not leak into the plan
	limits[metering.MetricActiveSurveys] = 999
	got := plan.Limits()
	got[metering.MetricActiveSurveys] = 555

	assert.Equal(t, int64(10), plan.LimitFor(metering.MetricActiveSurveys))
}

func TestPlanUnlimitedMetric(t *testing.T) {
	limits := metering.LimitSet{
		metering.MetricActiveSurveys:   metering.Unlimited,
		metering.MetricSurveyResponses: metering.Unlimited,
		metering.MetricTeamMembers:     metering.Unlimited,
	}
	plan, err := NewPlan("Enterprise", "enterprise", TierEnterprise, 49900, "USD", limits, 0)
	require.NoError(t, err)
	assert.True(t, plan.Limits().IsUnlimited(metering.MetricActiveSurveys))
}
