package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/study-vault-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := ReadinessCheck{Name: "catalog", Ping: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "cache", Ping: func(context.Context) error { return errors.New("connection refused") }}

	c, w := newTestContext(http.MethodGet, "/ready", nil, "")
	NewMetricsHandler(nil, ok).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"catalog":"ok"}}`, w.Body.String())

	c, w = newTestContext(http.MethodGet, "/ready", nil, "")
	NewMetricsHandler(nil, ok, down).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveUpload(2048)

	c, w := newTestContext(http.MethodGet, "/metrics", nil, "")
	NewMetricsHandler(metrics).Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "study_vault_upload_size_bytes")
}
