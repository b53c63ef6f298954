package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/internal/app/service/callback"
	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/pkg/logctx"
	"github.com/tierbill/tierbill/pkg/response"
	"github.com/tierbill/tierbill/pkg/types"
)

// webhookHandler processes a provider callback. A replayed delivery answers
// 200 so the provider stops retrying; a processing failure answers 500 so it
// retries later with the same payload.
func webhookHandler(h *callback.Handler, log *zap.SugaredLogger, p types.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		logctx.FromGin(c, log).Infow("webhook_received", "provider", p)

		_, err = h.Handle(c.Request.Context(), p, c.Request.Header, body)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OKT[any](nil))
		case errors.Is(err, orchestrator.ErrDuplicateConfirmation):
			c.JSON(http.StatusOK, response.OKT(map[string]bool{"already_processed": true}))
		case errors.Is(err, callback.ErrBadSignature):
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		case errors.Is(err, callback.ErrIgnoredEvent):
			c.JSON(http.StatusOK, response.OKT[any](nil))
		case errors.Is(err, orchestrator.ErrInvalidConfirmation),
			errors.Is(err, orchestrator.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
		default:
			logctx.FromGin(c, log).Errorw("webhook_handle_error", "provider", p, "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
		}
	}
}

// @Summary      Hosted Gateway Webhook
// @Description  Handles hosted gateway charge events. The body must carry a valid HMAC-SHA512 signature header.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Gateway event payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/hosted_gateway [post]
func ApiHostedGatewayWebhook(h *callback.Handler, log *zap.SugaredLogger) gin.HandlerFunc {
	return webhookHandler(h, log, types.PaymentProviderHostedGateway)
}

// @Summary      Card Processor Webhook
// @Description  Handles card processor charge events. The body is a JWS payload signed with the shared webhook secret.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Signed JWS payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/card_processor [post]
func ApiCardProcessorWebhook(h *callback.Handler, log *zap.SugaredLogger) gin.HandlerFunc {
	return webhookHandler(h, log, types.PaymentProviderCardProcessor)
}

func RegisterWebhookRoutes(r gin.IRouter, h *callback.Handler, log *zap.SugaredLogger) {
	r.POST("/hosted_gateway", ApiHostedGatewayWebhook(h, log))
	r.POST("/card_processor", ApiCardProcessorWebhook(h, log))
}
