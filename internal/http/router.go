// Package http registers the API routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"roadassist/internal/http/handlers"
	"roadassist/internal/http/middleware"
	"roadassist/internal/modules/matching"
	"roadassist/internal/modules/payment"
	"roadassist/internal/modules/provider"
	"roadassist/internal/modules/request"
)

type RouterDeps struct {
	Requests  *request.Service
	Providers *provider.Service
	Matching  *matching.Service
	Payments  *payment.Service
	Logger    *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(deps.Logger),
		middleware.Recovery(deps.Logger),
		middleware.Metrics(),
	)

	requestHandler := handlers.NewRequestHandler(deps.Requests)
	r.POST("/api/requests", requestHandler.Create)
	r.GET("/api/requests/:id", requestHandler.Get)
	r.POST("/api/requests/:id/cancel", requestHandler.Cancel)
	r.POST("/api/requests/:id/start", requestHandler.Start)
	r.POST("/api/requests/:id/complete", requestHandler.Complete)

	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	r.POST("/api/payments/initialize", paymentHandler.Initialize)
	r.POST("/api/payments/webhook", paymentHandler.Webhook)
	r.GET("/api/payments/:reference", paymentHandler.Get)

	providerHandler := handlers.NewProviderHandler(deps.Providers)
	r.POST("/api/providers", providerHandler.Register)
	r.GET("/api/providers/:id", providerHandler.Get)
	r.PUT("/api/providers/:id/availability", providerHandler.SetAvailability)
	r.PUT("/api/providers/:id/location", providerHandler.UpdateLocation)

	adminHandler := handlers.NewAdminHandler(deps.Requests, deps.Matching)
	r.POST("/api/admin/requests/:id/assign", adminHandler.Assign)
	r.POST("/api/admin/requests/:id/force-status", adminHandler.ForceStatus)
	r.GET("/api/admin/requests/pending", adminHandler.ListPending)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
