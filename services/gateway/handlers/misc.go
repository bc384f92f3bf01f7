// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/DergiChat/services/gateway/datatypes"
)

// guestAvatar is a 1x1 transparent PNG, inlined so clients need no
// extra request for an avatar.
const guestAvatar = "data:image/png;base64," +
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk" +
	"YPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetUser handles GET /api/user.
//
// There is no account system; every caller receives the same guest
// profile.
func GetUser(c *gin.Context) {
	c.JSON(http.StatusOK, datatypes.UserResponse{
		Name:  "Guest",
		Email: "guest@dergichat.local",
		Image: guestAvatar,
	})
}
