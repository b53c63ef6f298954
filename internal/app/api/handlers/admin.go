package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tierbill/tierbill/internal/app/service/analytics"
	"github.com/tierbill/tierbill/internal/app/service/ledger"
	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/pkg/response"
	"github.com/tierbill/tierbill/pkg/types"
)

type recordManualPaymentRequest struct {
	UserID        string             `json:"user_id" binding:"required"`
	Amount        int64              `json:"amount" binding:"required"`
	Plan          string             `json:"plan" binding:"required"`
	BillingCycle  types.BillingCycle `json:"billing_cycle" binding:"required"`
	PaymentMethod string             `json:"payment_method" binding:"required"`
}

// @Summary      Record Manual Payment (Admin)
// @Description  Settles an offline payment for a user and activates the subscription immediately.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body recordManualPaymentRequest true "Manual payment details"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/manual_payment [post]
func ApiRecordManualPayment(orch *orchestrator.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordManualPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Amount <= 0 {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "amount must be positive"))
			return
		}

		res, err := orch.RecordManualPayment(c.Request.Context(), &orchestrator.ManualPaymentRequest{
			UserID:        req.UserID,
			Amount:        req.Amount,
			Plan:          req.Plan,
			BillingCycle:  req.BillingCycle,
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			writeOrchestratorError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res.Transaction))
	}
}

// @Summary      List Transactions (Admin)
// @Description  Retrieves a paginated, filterable view of the transaction ledger, newest first.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ledger.ListRequest true "Filter and pagination"
// @Success      200  {object}  handlers.RespListTransactions
// @Router       /api/v1/admin/transactions [post]
func ApiListTransactions(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.List(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Payment Analytics (Admin)
// @Description  Computes revenue and volume aggregates over the ledger. An empty metric list computes all metrics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body analytics.Request true "Metric selection and filter"
// @Success      200  {object}  handlers.RespAnalytics
// @Router       /api/v1/admin/analytics [post]
func ApiGetAnalytics(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analytics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetAnalytics(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Reconcile Ledger (Admin)
// @Description  Lists active subscriptions whose activating transaction has no successful ledger row.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/reconcile [post]
func ApiReconcile(rec *orchestrator.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := rec.DetectInconsistencies(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterAdminRoutes(r gin.IRouter, orch *orchestrator.Service, led *ledger.Service, ana *analytics.Service, rec *orchestrator.Reconciler) {
	r.POST("/manual_payment", ApiRecordManualPayment(orch))
	r.POST("/transactions", ApiListTransactions(led))
	r.POST("/analytics", ApiGetAnalytics(ana))
	r.POST("/reconcile", ApiReconcile(rec))
}
