package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"formlens/internal/application/billing/usecases"
	"formlens/internal/shared/logger"
	"formlens/internal/shared/utils"
)

// SignatureHeader is the billing provider's signature header name.
const SignatureHeader = "Formlens-Signature"

// maxWebhookBody caps webhook payload size at 256 KiB.
const maxWebhookBody = 256 << 10

// WebhookHandler receives billing provider event deliveries. The raw body is
// read before any parsing because the signature covers the exact bytes sent.
type WebhookHandler struct {
	ingestUC *usecases.IngestWebhookUseCase
	logger   logger.Interface
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingestUC *usecases.IngestWebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		ingestUC: ingestUC,
		logger:   logger.NewLogger(),
	}
}

// HandleBillingEvent processes one webhook delivery. Duplicates and stale
// events acknowledge with 200 so the provider stops redelivering them.
func (h *WebhookHandler) HandleBillingEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxWebhookBody {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "webhook payload too large")
		return
	}

	result, err := h.ingestUC.Execute(c.Request.Context(), usecases.IngestWebhookCommand{
		Body:            body,
		SignatureHeader: c.GetHeader(SignatureHeader),
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "event acknowledged", result)
}
