// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
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

	"github.com/AleutianAI/DergiChat/services/gateway/handlers"
	"github.com/AleutianAI/DergiChat/services/gateway/middleware"
	"github.com/AleutianAI/DergiChat/services/gateway/observability"
	"github.com/AleutianAI/DergiChat/services/gateway/storage"
)

// SetupRoutes registers all gateway routes on the router.
//
// store may be nil when configuration was incomplete; the retrieval
// handlers then answer 500 enumerating the missing variable names.
func SetupRoutes(router *gin.Engine, store storage.ObjectStore, prefix string,
	missing []string, metrics *observability.GatewayMetrics) {

	router.Use(middleware.CORS())

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/user", handlers.GetUser)

		api.POST("/download", handlers.Download(store, prefix, missing, metrics))
		api.OPTIONS("/download", handlers.Preflight())

		api.POST("/download-redirect", handlers.DownloadRedirect(store, prefix, missing, metrics))
		api.OPTIONS("/download-redirect", handlers.Preflight())
	}
}
