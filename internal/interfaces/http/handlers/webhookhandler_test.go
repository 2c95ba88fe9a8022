package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formlens/internal/application/billing/usecases"
	"formlens/internal/application/metering/services"
	"formlens/internal/domain/metering"
	"formlens/internal/domain/subscription"
	"formlens/internal/infrastructure/billingprovider"
	"formlens/internal/shared/biztime"
	"formlens/internal/shared/logger"
)

const handlerTestSecret = "whsec_handler_test"

type memSubRepo struct {
	subs map[string]*subscription.Subscription
}

func (r *memSubRepo) Create(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *memSubRepo) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *memSubRepo) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *memSubRepo) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	return r.subs[externalID], nil
}
func (r *memSubRepo) GetEffectiveByTeamID(ctx context.Context, teamID uint) (*subscription.Subscription, error) {
	return nil, nil
}
func (r *memSubRepo) GetByTeamID(ctx context.Context, teamID uint) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *memSubRepo) Update(ctx context.Context, s *subscription.Subscription) error { return nil }
func (r *memSubRepo) FindDeferredCancellations(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	return nil, nil
}
func (r *memSubRepo) CountByPlanID(ctx context.Context, planID uint) (int64, error) { return 0, nil }

type memPlanRepo struct{}

func (r *memPlanRepo) Create(ctx context.Context, p *subscription.Plan) error { return nil }
func (r *memPlanRepo) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	return nil, nil
}
func (r *memPlanRepo) GetBySlug(ctx context.Context, slug string) (*subscription.Plan, error) {
	return nil, nil
}
func (r *memPlanRepo) GetByTier(ctx context.Context, tier subscription.PlanTier) (*subscription.Plan, error) {
	return nil, nil
}
func (r *memPlanRepo) GetPublicPlans(ctx context.Context) ([]*subscription.Plan, error) {
	return nil, nil
}
func (r *memPlanRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return false, nil
}

type memWebhookRepo struct {
	processed map[string]bool
}

func (r *memWebhookRepo) MarkProcessed(ctx context.Context, eventID, eventType string, subscriptionID uint) (bool, error) {
	if r.processed[eventID] {
		return false, nil
	}
	r.processed[eventID] = true
	return true, nil
}
func (r *memWebhookRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return r.processed[eventID], nil
}
func (r *memWebhookRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type noopStore struct{}

func (noopStore) Increment(ctx context.Context, teamID uint, metric metering.MetricType, periodStart, periodEnd time.Time, amount, limit int64) (*metering.IncrementResult, error) {
	return &metering.IncrementResult{Allowed: true}, nil
}
func (noopStore) Snapshot(ctx context.Context, teamID uint, metric metering.MetricType) (*metering.Snapshot, error) {
	return nil, nil
}
func (noopStore) Rollover(ctx context.Context, teamID uint, metric metering.MetricType, newPeriodStart, newPeriodEnd time.Time, newLimit int64) error {
	return nil
}
func (noopStore) History(ctx context.Context, teamID uint, metric metering.MetricType, limit int) ([]*metering.UsageCounter, error) {
	return nil, nil
}

func setupWebhookServer(t *testing.T) (*gin.Engine, *billingprovider.SignatureVerifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	anchor := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sub, err := subscription.NewSubscription(42, 1, metering.IntervalMonthly, "ext_sub_1", anchor)
	require.NoError(t, err)
	require.NoError(t, sub.SetID(1))

	subRepo := &memSubRepo{subs: map[string]*subscription.Subscription{"ext_sub_1": sub}}
	planRepo := &memPlanRepo{}
	webhookRepo := &memWebhookRepo{processed: make(map[string]bool)}
	verifier := billingprovider.NewSignatureVerifier(handlerTestSecret)
	log := logger.NewLogger()
	entitlements := services.NewEntitlementService(subRepo, planRepo, nil, log)

	ingestUC := usecases.NewIngestWebhookUseCase(
		subRepo, planRepo, webhookRepo, verifier, entitlements, noopStore{}, nil, log)

	engine := gin.New()
	handler := NewWebhookHandler(ingestUC)
	engine.POST("/billing/webhooks", handler.HandleBillingEvent)
	return engine, verifier
}

func postWebhook(engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/billing/webhooks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_AcceptsSignedEvent(t *testing.T) {
	engine, verifier := setupWebhookServer(t)

	body, err := json.Marshal(map[string]any{
		"id":              "evt_1",
		"type":            "payment_confirmed",
		"subscription_id": "ext_sub_1",
		"marker":          1,
	})
	require.NoError(t, err)

	w := postWebhook(engine, body, verifier.Sign(body, biztime.NowUTC()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"applied"`)
}

func TestWebhookHandler_DuplicateAcknowledgedWith200(t *testing.T) {
	engine, verifier := setupWebhookServer(t)

	body, err := json.Marshal(map[string]any{
		"id":              "evt_1",
		"type":            "payment_confirmed",
		"subscription_id": "ext_sub_1",
		"marker":          1,
	})
	require.NoError(t, err)

	first := postWebhook(engine, body, verifier.Sign(body, biztime.NowUTC()))
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(engine, body, verifier.Sign(body, biztime.NowUTC()))
	assert.Equal(t, http.StatusOK, second.Code, "duplicates must be acknowledged, not retried")
	assert.Contains(t, second.Body.String(), `"outcome":"duplicate_ignored"`)
}

func TestWebhookHandler_MissingSignatureForbidden(t *testing.T) {
	engine, _ := setupWebhookServer(t)

	body := []byte(`{"id":"evt_1","type":"payment_confirmed","subscription_id":"ext_sub_1","marker":1}`)
	w := postWebhook(engine, body, "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookHandler_TamperedBodyForbidden(t *testing.T) {
	engine, verifier := setupWebhookServer(t)

	body := []byte(`{"id":"evt_1","type":"payment_confirmed","subscription_id":"ext_sub_1","marker":1}`)
	signature := verifier.Sign(body, biztime.NowUTC())
	tampered := bytes.Replace(body, []byte("payment_confirmed"), []byte("payment_recovered"), 1)

	w := postWebhook(engine, tampered, signature)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookHandler_UnknownSubscriptionNotFound(t *testing.T) {
	engine, verifier := setupWebhookServer(t)

	body := []byte(`{"id":"evt_1","type":"payment_confirmed","subscription_id":"ext_ghost","marker":1}`)
	w := postWebhook(engine, body, verifier.Sign(body, biztime.NowUTC()))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
