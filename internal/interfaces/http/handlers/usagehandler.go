package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formlens/internal/application/metering/usecases"
	"formlens/internal/shared/logger"
	"formlens/internal/shared/utils"
)

// UsageHandler serves the admission gate and usage snapshot endpoints.
type UsageHandler struct {
	tryConsumeUC *usecases.TryConsumeUseCase
	snapshotUC   *usecases.GetUsageSnapshotUseCase
	logger       logger.Interface
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(
	tryConsumeUC *usecases.TryConsumeUseCase,
	snapshotUC *usecases.GetUsageSnapshotUseCase,
) *UsageHandler {
	return &UsageHandler{
		tryConsumeUC: tryConsumeUC,
		snapshotUC:   snapshotUC,
		logger:       logger.NewLogger(),
	}
}

// ConsumeRequest asks to consume metered capacity before a gated action.
type ConsumeRequest struct {
	Metric string `json:"metric" binding:"required,metric"`
	Amount int64  `json:"amount" binding:"omitempty,min=1"`
}

// TryConsume handles POST /teams/:sid/consume. A denied admission is a
// successful request; the decision is in the body, not the status code.
func (h *UsageHandler) TryConsume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid consume request", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	result, err := h.tryConsumeUC.Execute(c.Request.Context(), usecases.TryConsumeCommand{
		TeamSID: c.Param("sid"),
		Metric:  req.Metric,
		Amount:  req.Amount,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "admission evaluated", result)
}

// GetUsage handles GET /teams/:sid/usage.
func (h *UsageHandler) GetUsage(c *gin.Context) {
	snapshot, err := h.snapshotUC.Execute(c.Request.Context(), usecases.GetUsageSnapshotCommand{
		TeamSID: c.Param("sid"),
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "usage retrieved", snapshot)
}
