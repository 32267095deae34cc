package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"merchant-sim/internal/infrastructure/metrics"
)

// StatusHandler serves the read-only dashboard feed
type StatusHandler struct {
	sink *metrics.Sink
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(sink *metrics.Sink) *StatusHandler {
	return &StatusHandler{sink: sink}
}

// Health reports process liveness
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListMerchants returns every merchant's simulation counters
func (h *StatusHandler) ListMerchants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"merchants": h.sink.Snapshot()})
}

// GetMerchant returns one merchant's simulation counters
func (h *StatusHandler) GetMerchant(c *gin.Context) {
	merchantID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{
		"merchantId": merchantID,
		"counters":   h.sink.Get(merchantID),
	})
}
