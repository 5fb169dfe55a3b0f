package handlers

import (
	"errors"
	"strconv"
	"trip-counter-service/services"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type AddCounterRequest struct {
	RegionID        uint   `json:"region_id" binding:"required"`
	CounterTime     string `json:"counter_time" binding:"required"`
	Date            string `json:"date" binding:"required"`
	MaxCounterValue int    `json:"max_counter_value" binding:"required,min=1"`
}

type UpdateCounterRequest struct {
	CounterTime     *string `json:"counter_time"`
	Date            *string `json:"date"`
	CounterValue    *int    `json:"counter_value"`
	MaxCounterValue *int    `json:"max_counter_value"`
	State           *bool   `json:"state"`
}

type SetStateRequest struct {
	Date     string `json:"date" binding:"required"`
	RegionID uint   `json:"region_id"`
	State    *bool  `json:"state" binding:"required"`
}

// AddCounter creates one counter row seeded at its bound
func AddCounter(c *gin.Context) {
	var req AddCounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "region_id, counter_time, date and max_counter_value are required")
		return
	}
	if !utils.ValidDateKey(req.Date) {
		utils.BadRequestResponse(c, "Date must be YYYY-MM-DD")
		return
	}
	if !utils.ValidSlot(req.CounterTime) {
		utils.BadRequestResponse(c, "counter_time must be HH:MM")
		return
	}

	counter, err := counterStore.CreateCounter(req.RegionID, req.CounterTime, req.Date, req.MaxCounterValue)
	if err != nil {
		if errors.Is(err, services.ErrRegionNotFound) {
			utils.NotFoundResponse(c, "Region not found")
			return
		}
		utils.ConflictResponse(c, "Counter for this region, slot and date already exists")
		return
	}

	refreshCachedDate(req.Date)
	utils.CreatedResponse(c, counter)
}

// UpdateCounter edits one counter row; bound edits keep the value within
// range per the store's delta rules
func UpdateCounter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	var req UpdateCounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if req.Date != nil && !utils.ValidDateKey(*req.Date) {
		utils.BadRequestResponse(c, "Date must be YYYY-MM-DD")
		return
	}
	if req.CounterTime != nil && !utils.ValidSlot(*req.CounterTime) {
		utils.BadRequestResponse(c, "counter_time must be HH:MM")
		return
	}

	// Resolve the row first so cache entries for both old and new dates
	// can be refreshed after a date move
	existing, err := counterStore.CounterByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrCounterNotFound) {
			utils.NotFoundResponse(c, "Counter not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to fetch counter")
		return
	}

	update := services.CounterUpdate{
		CounterTime:     req.CounterTime,
		Date:            req.Date,
		CounterValue:    req.CounterValue,
		MaxCounterValue: req.MaxCounterValue,
		State:           req.State,
	}
	if err := counterStore.UpdateCounter(uint(id), update); err != nil {
		if errors.Is(err, services.ErrCounterNotFound) {
			utils.NotFoundResponse(c, "Counter not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to update counter")
		return
	}

	refreshCachedDate(existing.Date)
	if req.Date != nil && *req.Date != existing.Date {
		refreshCachedDate(*req.Date)
	}

	utils.SuccessMessageResponse(c, "Counter updated", nil)
}

// DeleteCounter removes one counter row
func DeleteCounter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	existing, err := counterStore.CounterByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrCounterNotFound) {
			utils.NotFoundResponse(c, "Counter not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to fetch counter")
		return
	}

	deleted, err := counterStore.DeleteCounter(uint(id))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to delete counter")
		return
	}
	if !deleted {
		utils.NotFoundResponse(c, "Counter not found")
		return
	}

	refreshCachedDate(existing.Date)
	utils.SuccessMessageResponse(c, "Counter deleted", nil)
}

// SearchCounters returns counter rows matching query-string filters
func SearchCounters(c *gin.Context) {
	var filter services.CounterFilter

	if raw := c.Query("region_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.BadRequestResponse(c, "region_id must be a valid integer")
			return
		}
		filter.RegionID = uint(id)
	}
	if raw := c.Query("date"); raw != "" {
		if !utils.ValidDateKey(raw) {
			utils.BadRequestResponse(c, "date must be YYYY-MM-DD")
			return
		}
		filter.Date = raw
	}
	if raw := c.Query("counter_time"); raw != "" {
		filter.CounterTime = raw
	}
	if raw := c.Query("state"); raw != "" {
		state, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequestResponse(c, "state must be a boolean")
			return
		}
		filter.State = &state
	}
	if raw := c.Query("max_counter_value"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequestResponse(c, "max_counter_value must be an integer")
			return
		}
		filter.MaxValueAtMost = max
	}

	counters, err := counterStore.SearchCounters(filter)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to search counters")
		return
	}

	utils.SuccessResponse(c, counters)
}

// SetCountersState bulk-toggles the enabled flag of a date's counters,
// optionally narrowed to one region
func SetCountersState(c *gin.Context) {
	var req SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "date and state are required")
		return
	}
	if !utils.ValidDateKey(req.Date) {
		utils.BadRequestResponse(c, "Date must be YYYY-MM-DD")
		return
	}

	changed, err := counterStore.SetStateByDate(req.Date, req.RegionID, *req.State)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to update counter state")
		return
	}
	if !changed {
		utils.NotFoundResponse(c, "No counters matched the given date")
		return
	}

	refreshCachedDate(req.Date)
	utils.SuccessMessageResponse(c, "Counter state updated", nil)
}
