package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tierbill/tierbill/internal/app/api/middleware"
	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/response"
	"github.com/tierbill/tierbill/pkg/types"
)

type initializePaymentRequest struct {
	Plan         string                `json:"plan" binding:"required"`
	BillingCycle types.BillingCycle    `json:"billing_cycle" binding:"required"`
	Provider     types.PaymentProvider `json:"provider" binding:"required"`
}

type initializePaymentResponse struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// writeOrchestratorError maps service errors onto the response envelope.
// Validation failures are the caller's fault; an unavailable provider is
// retryable and reported as a server-side error.
func writeOrchestratorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUserNotFound),
		errors.Is(err, orchestrator.ErrPlanNotFound),
		errors.Is(err, orchestrator.ErrSubscriptionNotActive),
		errors.Is(err, orchestrator.ErrInvalidConfirmation),
		errors.Is(err, provider.ErrProviderRejected):
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	default:
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	}
}

// @Summary      Initialize Payment
// @Description  Starts a provider checkout for the authenticated user. Nothing is activated until the provider confirms payment.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body initializePaymentRequest true "Checkout parameters"
// @Success      200  {object}  handlers.RespInitializePayment
// @Router       /api/v1/payments/initialize [post]
func ApiInitializePayment(orch *orchestrator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req initializePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		ref, err := orch.InitializePayment(c.Request.Context(), &orchestrator.InitializePaymentRequest{
			UserID:       middleware.AuthedUserID(c),
			Plan:         req.Plan,
			BillingCycle: req.BillingCycle,
			Provider:     req.Provider,
		})
		if err != nil {
			writeOrchestratorError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&initializePaymentResponse{
			Reference:   ref.Code,
			CheckoutURL: ref.CheckoutURL,
		}))
	}
}

// @Summary      Cancel Subscription
// @Description  Deactivates the authenticated user's subscription and best-effort disables provider-side recurring billing.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/cancel [post]
func ApiCancelSubscription(orch *orchestrator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := orch.CancelSubscription(c.Request.Context(), middleware.AuthedUserID(c)); err != nil {
			writeOrchestratorError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type changePlanRequest struct {
	NewPlan         string                `json:"new_plan" binding:"required"`
	NewBillingCycle types.BillingCycle    `json:"new_billing_cycle" binding:"required"`
	Provider        types.PaymentProvider `json:"provider"`
}

// @Summary      Change Subscription Plan
// @Description  Switches the authenticated user to a new plan. The subscription stays inactive until the new plan's payment is confirmed.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body changePlanRequest true "New plan parameters"
// @Success      200  {object}  handlers.RespInitializePayment
// @Router       /api/v1/payments/change_plan [post]
func ApiChangePlan(orch *orchestrator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		ref, err := orch.ChangePlan(c.Request.Context(), &orchestrator.ChangePlanRequest{
			UserID:          middleware.AuthedUserID(c),
			NewPlan:         req.NewPlan,
			NewBillingCycle: req.NewBillingCycle,
			Provider:        req.Provider,
		})
		if err != nil {
			writeOrchestratorError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&initializePaymentResponse{
			Reference:   ref.Code,
			CheckoutURL: ref.CheckoutURL,
		}))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, orch *orchestrator.Service) {
	r.POST("/initialize", ApiInitializePayment(orch))
	r.POST("/cancel", ApiCancelSubscription(orch))
	r.POST("/change_plan", ApiChangePlan(orch))
}
