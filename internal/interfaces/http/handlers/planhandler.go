package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formlens/internal/application/billing/usecases"
	"formlens/internal/shared/logger"
	"formlens/internal/shared/utils"
)

// PlanHandler serves the public plan catalog.
type PlanHandler struct {
	getPublicPlansUC *usecases.GetPublicPlansUseCase
	logger           logger.Interface
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(getPublicPlansUC *usecases.GetPublicPlansUseCase) *PlanHandler {
	return &PlanHandler{
		getPublicPlansUC: getPublicPlansUC,
		logger:           logger.NewLogger(),
	}
}

// GetPublicPlans handles GET /plans.
func (h *PlanHandler) GetPublicPlans(c *gin.Context) {
	plans, err := h.getPublicPlansUC.Execute(c.Request.Context())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "plans retrieved", gin.H{"plans": plans})
}
