package handlers

import (
	"strconv"
	"trip-counter-service/services"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type CreateRecordRequest struct {
	RecordDate string `json:"record_date" binding:"required"`
	TimePeriod string `json:"time_period" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// CreateRecord appends a manually written audit record
func CreateRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "record_date, time_period and content are required")
		return
	}
	if !utils.ValidDateKey(req.RecordDate) {
		utils.BadRequestResponse(c, "record_date must be YYYY-MM-DD")
		return
	}

	id, err := counterStore.AppendRecord(req.RecordDate, req.TimePeriod, req.Content)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to create record")
		return
	}

	utils.CreatedResponse(c, map[string]interface{}{"record_id": id})
}

// GetRecords returns audit records filtered by date range and slot
func GetRecords(c *gin.Context) {
	filter := services.RecordFilter{
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
		TimePeriod: c.Query("timePeriod"),
	}
	if (filter.StartDate == "") != (filter.EndDate == "") {
		utils.BadRequestResponse(c, "startDate and endDate must be provided together")
		return
	}
	if filter.StartDate != "" && (!utils.ValidDateKey(filter.StartDate) || !utils.ValidDateKey(filter.EndDate)) {
		utils.BadRequestResponse(c, "Dates must be YYYY-MM-DD")
		return
	}

	records, err := counterStore.RecordsByConditions(filter)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch records")
		return
	}

	utils.SuccessResponse(c, records)
}

// DeleteRecord removes one audit record by id
func DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	deleted, err := counterStore.DeleteRecord(uint(id))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to delete record")
		return
	}
	if !deleted {
		utils.NotFoundResponse(c, "Record not found")
		return
	}

	utils.SuccessMessageResponse(c, "Record deleted", nil)
}
