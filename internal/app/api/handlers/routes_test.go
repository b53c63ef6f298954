package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func routeSet(r *gin.Engine) map[string]bool {
	set := map[string]bool{}
	for _, rt := range r.Routes() {
		set[rt.Method+" "+rt.Path] = true
	}
	return set
}

func TestRegisterPaymentRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/payments")
	RegisterPaymentRoutes(g, nil)

	routes := routeSet(r)
	require.True(t, routes["POST /api/v1/payments/initialize"])
	require.True(t, routes["POST /api/v1/payments/cancel"])
	require.True(t, routes["POST /api/v1/payments/change_plan"])
}

func TestRegisterWebhookRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/webhooks")
	RegisterWebhookRoutes(g, nil, nil)

	routes := routeSet(r)
	require.True(t, routes["POST /api/v1/webhooks/hosted_gateway"])
	require.True(t, routes["POST /api/v1/webhooks/card_processor"])
}

func TestRegisterAdminRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/admin")
	RegisterAdminRoutes(g, nil, nil, nil, nil)

	routes := routeSet(r)
	require.True(t, routes["POST /api/v1/admin/manual_payment"])
	require.True(t, routes["POST /api/v1/admin/transactions"])
	require.True(t, routes["POST /api/v1/admin/analytics"])
	require.True(t, routes["POST /api/v1/admin/reconcile"])
}

func TestRegisterHealthRoutes_RegistersEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHealthRoutes(r.Group("/"))

	require.True(t, routeSet(r)["GET /healthz"])
}
