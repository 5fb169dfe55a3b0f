package handlers

import (
	"strconv"
	"trip-counter-service/database"
	"trip-counter-service/models"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type TimePeriodRequest struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// GetTimePeriods returns every recurring daily slot
func GetTimePeriods(c *gin.Context) {
	db := database.GetDB()

	var periods []models.TimePeriod
	if err := db.Order("start_time").Find(&periods).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch time periods")
		return
	}

	utils.SuccessResponse(c, periods)
}

// AddTimePeriod creates a recurring daily slot
func AddTimePeriod(c *gin.Context) {
	var req TimePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "start_time and end_time are required")
		return
	}
	if !utils.ValidSlot(req.StartTime) || !utils.ValidSlot(req.EndTime) {
		utils.BadRequestResponse(c, "Times must be HH:MM")
		return
	}
	if req.EndTime <= req.StartTime {
		utils.BadRequestResponse(c, "end_time must be after start_time")
		return
	}

	db := database.GetDB()

	var existing int64
	db.Model(&models.TimePeriod{}).Where("start_time = ?", req.StartTime).Count(&existing)
	if existing > 0 {
		utils.ConflictResponse(c, "A time period with this start time already exists")
		return
	}

	period := models.TimePeriod{StartTime: req.StartTime, EndTime: req.EndTime}
	if err := db.Create(&period).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to create time period")
		return
	}

	utils.CreatedResponse(c, period)
}

// DeleteTimePeriod removes a slot definition. Already-provisioned counter
// rows keep their slot label; only future provisioning is affected.
func DeleteTimePeriod(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	db := database.GetDB()

	result := db.Delete(&models.TimePeriod{}, id)
	if result.Error != nil {
		utils.InternalErrorResponse(c, "Failed to delete time period")
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFoundResponse(c, "Time period not found")
		return
	}

	utils.SuccessMessageResponse(c, "Time period deleted", nil)
}
