package handlers

import (
	"fmt"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type AvailabilityRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetAvailability reports the maintenance gate state. Long-lived clients
// poll this to decide whether to show the maintenance overlay.
func GetAvailability(c *gin.Context) {
	c.JSON(200, gin.H{"cacheEnabled": gate.IsEnabled()})
}

// UpdateAvailability toggles the gate: enabling re-warms the cache from
// the store, disabling clears it and refuses new connections
func UpdateAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, `Invalid "enabled" value, must be a boolean`)
		return
	}

	if *req.Enabled {
		if err := gate.Enable(); err != nil {
			// The gate is open; warming can be retried by toggling again
			utils.InternalErrorResponse(c, "Service enabled but cache warm failed")
			return
		}
	} else {
		gate.Disable()
	}

	state := "disabled"
	if *req.Enabled {
		state = "enabled"
	}
	utils.SuccessMessageResponse(c, fmt.Sprintf("Service %s", state), gin.H{"cacheEnabled": gate.IsEnabled()})
}
