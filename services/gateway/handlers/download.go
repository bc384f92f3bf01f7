// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides the HTTP handlers for the gateway service.
package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/DergiChat/services/gateway/datatypes"
	"github.com/AleutianAI/DergiChat/services/gateway/observability"
	"github.com/AleutianAI/DergiChat/services/gateway/storage"
)

// presignExpiry is the lifetime of redirect links. Successive calls
// always produce fresh signatures.
const presignExpiry = 300 * time.Second

// objectKey joins the configured prefix with a cited filename.
func objectKey(prefix, filename string) string {
	if prefix == "" {
		return filename
	}
	return strings.TrimSuffix(prefix, "/") + "/" + filename
}

// bindDownloadRequest validates the request body shared by both
// retrieval endpoints. Returns false after writing the 400 response.
func bindDownloadRequest(c *gin.Context) (datatypes.DownloadRequest, bool) {
	var req datatypes.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Filename) == "" {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error: "filename is required",
		})
		return req, false
	}
	return req, true
}

// storeUnavailable writes the configuration-error response when the
// object store could not be constructed at startup. The missing
// environment variable names are enumerated so operators can fix the
// deployment without reading gateway logs.
func storeUnavailable(c *gin.Context, missing []string) {
	c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
		Error: fmt.Sprintf("storage not configured: missing %s",
			strings.Join(missing, ", ")),
	})
}

// Download returns the handler for POST /api/download.
//
// # Description
//
// Resolves <prefix>/<filename> in the bucket, reads the object in full,
// and returns it inline as a data URL. Retrieval failures (missing key,
// empty object, store fault) are reported as 500 with a JSON error body;
// the gateway never retries store reads.
//
// # Inputs
//
//   - store: Object store, nil when configuration was incomplete.
//   - prefix: Bucket key prefix prepended to every filename.
//   - missing: Names of unset configuration variables (used when store is nil).
//   - metrics: Gateway metrics, may be nil.
func Download(store storage.ObjectStore, prefix string, missing []string,
	metrics *observability.GatewayMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		requestID := uuid.NewString()
		start := time.Now()

		if store == nil {
			metrics.RecordFailure(observability.EndpointDownload, observability.FailureConfig)
			storeUnavailable(c, missing)
			return
		}

		req, ok := bindDownloadRequest(c)
		if !ok {
			metrics.RecordFailure(observability.EndpointDownload, observability.FailureValidation)
			return
		}

		key := objectKey(prefix, req.Filename)
		obj, err := store.GetObject(c.Request.Context(), key)
		if err != nil {
			slog.Error("Object retrieval failed",
				"request_id", requestID,
				"key", key,
				"error", err)
			metrics.RecordFailure(observability.EndpointDownload, failureKind(err))
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: fmt.Sprintf("failed to retrieve %s", req.Filename),
			})
			return
		}

		dataURL := fmt.Sprintf("data:%s;base64,%s",
			obj.ContentType, base64.StdEncoding.EncodeToString(obj.Body))

		metrics.RecordRequest(observability.EndpointDownload, time.Since(start))
		metrics.RecordObjectBytes(obj.Size)
		slog.Info("Object served inline",
			"request_id", requestID,
			"key", key,
			"bytes", obj.Size)

		c.JSON(http.StatusOK, datatypes.DownloadResponse{
			Data:        dataURL,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			Filename:    req.Filename,
			Success:     true,
		})
	}
}

// DownloadRedirect returns the handler for POST /api/download-redirect.
//
// # Description
//
// Resolves the same key as Download but returns a presigned GET URL
// instead of reading any object bytes. The link expires after five
// minutes; clients needing the object later must request a new link.
func DownloadRedirect(store storage.ObjectStore, prefix string, missing []string,
	metrics *observability.GatewayMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		requestID := uuid.NewString()
		start := time.Now()

		if store == nil {
			metrics.RecordFailure(observability.EndpointRedirect, observability.FailureConfig)
			storeUnavailable(c, missing)
			return
		}

		req, ok := bindDownloadRequest(c)
		if !ok {
			metrics.RecordFailure(observability.EndpointRedirect, observability.FailureValidation)
			return
		}

		key := objectKey(prefix, req.Filename)
		url, err := store.PresignGetObject(c.Request.Context(), key, presignExpiry)
		if err != nil {
			slog.Error("Presigning failed",
				"request_id", requestID,
				"key", key,
				"error", err)
			metrics.RecordFailure(observability.EndpointRedirect, failureKind(err))
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: fmt.Sprintf("failed to create link for %s", req.Filename),
			})
			return
		}

		metrics.RecordRequest(observability.EndpointRedirect, time.Since(start))
		slog.Info("Presigned link issued",
			"request_id", requestID,
			"key", key,
			"expiry", presignExpiry.String())

		c.JSON(http.StatusOK, datatypes.RedirectResponse{
			URL:     url,
			Success: true,
		})
	}
}

// Preflight returns the handler for OPTIONS on the retrieval endpoints.
// Browsers expect an empty JSON object with a 200 here.
func Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	}
}

// failureKind maps a store error onto a metrics label.
func failureKind(err error) observability.FailureKind {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return observability.FailureNotFound
	case errors.Is(err, storage.ErrEmptyObject):
		return observability.FailureEmptyObject
	default:
		return observability.FailureStore
	}
}
