package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/magicianlee007/tpn-subnet/internal/config"
	"github.com/magicianlee007/tpn-subnet/internal/provision"
)

// maxLeaseMinutes caps caller-requested lease lengths at one day.
const maxLeaseMinutes = 1440

type handler struct {
	cfg  *config.Config
	deps Dependencies
}

// newConfig leases one credential to the caller.
// GET /api/config/new?lease_minutes=n
func (h *handler) newConfig(c *gin.Context) {
	minutes := h.cfg.Pool.DefaultLeaseMinutes
	if raw := c.Query("lease_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLeaseMinutes {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "lease_minutes must be an integer between 1 and 1440",
			})
			return
		}
		minutes = n
	}

	grant, err := h.deps.Provisioner.Acquire(c.Request.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		if errors.Is(err, provision.ErrPoolExhausted) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("credential provisioning failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, grant)
}

// health reports endpoint reachability and store health.
// GET /healthz
func (h *handler) health(c *gin.Context) {
	ctx := c.Request.Context()

	reachable := h.deps.Probe.IsReachable(ctx, 2*time.Second)
	storeErr := h.deps.Store.Health(ctx)

	status := http.StatusOK
	if !reachable || storeErr != nil {
		status = http.StatusServiceUnavailable
	}

	body := gin.H{
		"endpoint_reachable": reachable,
		"store_healthy":      storeErr == nil,
	}
	if storeErr != nil {
		body["store_error"] = storeErr.Error()
	}
	c.JSON(status, body)
}
