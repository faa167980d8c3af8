package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/reallocation-service/api"
	"github.com/wms-platform/reallocation-service/internal/application"
	"github.com/wms-platform/reallocation-service/pkg/logging"
	"github.com/wms-platform/reallocation-service/pkg/metrics"
	"github.com/wms-platform/reallocation-service/pkg/middleware"
)

// services bundles what the HTTP layer serves
type services struct {
	coordinator *application.ReallocationCoordinator
	queries     *application.AllocationQueryService
	planner     *application.BatchReallocationPlanner
	metrics     *metrics.Metrics
	logger      *logging.Logger
	ready       func(ctx context.Context) error
}

func newRouter(svc *services) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, middleware.DefaultConfig(serviceName, svc.logger.Logger))
	router.Use(middleware.MetricsMiddleware(svc.metrics))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())
	router.HandleMethodNotAllowed = true

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, svc.ready))
	router.GET("/metrics", middleware.MetricsEndpoint(svc.metrics))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/openapi.yaml", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/yaml", api.OpenAPI)
		})

		v1.GET("/materials/:materialId/allocations", getAllocationsHandler(svc.queries, svc.logger))
		v1.POST("/materials/:materialId/reallocations/batch", applyBatchHandler(svc.planner, svc.logger))

		v1.POST("/reallocations", requestReallocationHandler(svc.coordinator, svc.logger))
		v1.GET("/reallocations", listReallocationsHandler(svc.coordinator, svc.logger))
		v1.GET("/reallocations/:requestId", getReallocationHandler(svc.coordinator, svc.logger))
		v1.POST("/reallocations/:requestId/approval", approveReallocationHandler(svc.coordinator, svc.logger))
	}

	return router
}
