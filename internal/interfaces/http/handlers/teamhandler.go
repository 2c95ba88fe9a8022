package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	billingusecases "formlens/internal/application/billing/usecases"
	"formlens/internal/application/team/usecases"
	"formlens/internal/shared/logger"
	"formlens/internal/shared/utils"
)

// TeamHandler serves team management and subscription checkout endpoints.
type TeamHandler struct {
	createTeamUC         *usecases.CreateTeamUseCase
	getTeamUC            *usecases.GetTeamUseCase
	createSubscriptionUC *billingusecases.CreateSubscriptionUseCase
	logger               logger.Interface
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(
	createTeamUC *usecases.CreateTeamUseCase,
	getTeamUC *usecases.GetTeamUseCase,
	createSubscriptionUC *billingusecases.CreateSubscriptionUseCase,
) *TeamHandler {
	return &TeamHandler{
		createTeamUC:         createTeamUC,
		getTeamUC:            getTeamUC,
		createSubscriptionUC: createSubscriptionUC,
		logger:               logger.NewLogger(),
	}
}

// CreateTeamRequest carries the team creation payload.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// CreateSubscriptionRequest carries the checkout payload.
type CreateSubscriptionRequest struct {
	PlanSlug        string `json:"plan_slug" binding:"required"`
	BillingInterval string `json:"billing_interval" binding:"required,oneof=monthly yearly"`
	ExternalID      string `json:"external_id" binding:"required"`
}

// CreateTeam handles POST /teams.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid create team request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createTeamUC.Execute(c.Request.Context(), usecases.CreateTeamCommand{Name: req.Name})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "team created", result)
}

// GetTeam handles GET /teams/:sid.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	result, err := h.getTeamUC.Execute(c.Request.Context(), c.Param("sid"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "team retrieved", result)
}

// CreateSubscription handles POST /teams/:sid/subscription.
func (h *TeamHandler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid create subscription request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createSubscriptionUC.Execute(c.Request.Context(), billingusecases.CreateSubscriptionCommand{
		TeamSID:         c.Param("sid"),
		PlanSlug:        req.PlanSlug,
		BillingInterval: req.BillingInterval,
		ExternalID:      req.ExternalID,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "subscription created", result)
}
