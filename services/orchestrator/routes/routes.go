// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/groundline/services/orchestrator/handlers"
	"github.com/AleutianAI/groundline/services/qa"
)

// SetupRoutes registers the answer service routes.
func SetupRoutes(router *gin.Engine, engine *qa.Engine, enableMetrics bool) {
	// API group mirrors the public deployment path.
	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.POST("/generate", handlers.HandleGenerate(engine))
		api.POST("/session/reset", handlers.HandleSessionReset(engine.Sessions()))
	}

	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}
