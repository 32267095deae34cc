package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"merchant-sim/internal/interfaces/http/handlers"
)

func setupRouter(statusHandler *handlers.StatusHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", statusHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/merchants", statusHandler.ListMerchants)
		v1.GET("/merchants/:id", statusHandler.GetMerchant)
	}

	return r
}
