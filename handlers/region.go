package handlers

import (
	"strconv"
	"trip-counter-service/database"
	"trip-counter-service/models"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type RegionRequest struct {
	Area     string `json:"area" binding:"required"`
	MaxCount int    `json:"max_count" binding:"required,min=1"`
}

// GetDayCounters returns the counter listing for one date. This is the
// public read used by the dashboard's date views; 404 when the date has
// no rows.
func GetDayCounters(c *gin.Context) {
	date := c.Query("date")
	if !utils.ValidDateKey(date) {
		utils.BadRequestResponse(c, "Query parameter date must be YYYY-MM-DD")
		return
	}

	counters, err := counterStore.SnapshotsByDate(date)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch counters")
		return
	}
	if len(counters) == 0 {
		utils.NotFoundResponse(c, "No counter data for the requested date")
		return
	}

	utils.SuccessResponse(c, counters)
}

// GetAllRegions returns every region
func GetAllRegions(c *gin.Context) {
	db := database.GetDB()

	var regions []models.Region
	if err := db.Order("id").Find(&regions).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch regions")
		return
	}

	utils.SuccessResponse(c, regions)
}

// AddRegion creates a region with its default trip bound
func AddRegion(c *gin.Context) {
	var req RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Area and max_count are required")
		return
	}

	db := database.GetDB()

	region := models.Region{Area: req.Area, MaxCount: req.MaxCount}
	if err := db.Create(&region).Error; err != nil {
		utils.ConflictResponse(c, "Region already exists")
		return
	}

	utils.CreatedResponse(c, region)
}

// UpdateRegion renames a region and/or changes its default bound. The
// bound applies to counters provisioned from now on; existing rows keep
// theirs until edited individually.
func UpdateRegion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	var req RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Area and max_count are required")
		return
	}

	db := database.GetDB()

	var region models.Region
	if err := db.First(&region, id).Error; err != nil {
		utils.NotFoundResponse(c, "Region not found")
		return
	}

	region.Area = req.Area
	region.MaxCount = req.MaxCount
	if err := db.Save(&region).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to update region")
		return
	}

	utils.SuccessResponse(c, region)
}

// DeleteRegion removes a region. Regions still referenced by counter rows
// are refused so no snapshot loses its name mid-flight.
func DeleteRegion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "ID must be a valid integer")
		return
	}

	db := database.GetDB()

	var referencing int64
	if err := db.Model(&models.RegionCounter{}).Where("region_id = ?", id).Count(&referencing).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to check region usage")
		return
	}
	if referencing > 0 {
		utils.ConflictResponse(c, "Region still has counters; delete them first")
		return
	}

	result := db.Delete(&models.Region{}, id)
	if result.Error != nil {
		utils.InternalErrorResponse(c, "Failed to delete region")
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFoundResponse(c, "Region not found")
		return
	}

	utils.SuccessMessageResponse(c, "Region deleted", nil)
}
