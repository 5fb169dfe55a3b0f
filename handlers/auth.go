package handlers

import (
	"regexp"
	"time"
	"trip-counter-service/config"
	"trip-counter-service/database"
	"trip-counter-service/middleware"
	"trip-counter-service/models"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Role         string `json:"role"`
}

// Register handles user registration
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	// Validate username (alphanumeric and underscore, 3-20 characters)
	if !regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`).MatchString(req.Username) {
		utils.BadRequestResponse(c, "Username must be 3-20 alphanumeric characters or underscore")
		return
	}

	// Validate password (minimum 6 characters)
	if len(req.Password) < 6 {
		utils.BadRequestResponse(c, "Password must be at least 6 characters")
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	if role != "user" && role != "admin" {
		utils.BadRequestResponse(c, "Role must be user or admin")
		return
	}

	db := database.GetDB()

	// Check if username exists
	var existingUser models.User
	if err := db.Where("username = ?", req.Username).First(&existingUser).Error; err == nil {
		utils.ConflictResponse(c, "Username already exists")
		return
	}

	credential, err := utils.EncodeCredential(req.Password)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to hash password")
		return
	}

	user := models.User{
		Username: req.Username,
		Password: credential,
		Role:     role,
	}

	if err := db.Create(&user).Error; err != nil {
		utils.InternalErrorResponse(c, "Failed to create user")
		return
	}

	issueTokens(c, &user)
}

// Login handles user login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	db := database.GetDB()

	// Find user
	var user models.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.UnauthorizedResponse(c, "Invalid username or password")
		return
	}

	if !utils.VerifyCredential(req.Password, user.Password) {
		utils.UnauthorizedResponse(c, "Invalid username or password")
		return
	}

	issueTokens(c, &user)
}

// RefreshToken exchanges a valid refresh token for a fresh token pair
func RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	claims, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid or expired refresh token")
		return
	}

	db := database.GetDB()

	// The stored token must still exist; logout revokes it
	var stored models.RefreshToken
	hashed := utils.HashRefreshToken(req.RefreshToken)
	if err := db.Where("user_id = ? AND token = ?", claims.UserID, hashed).First(&stored).Error; err != nil {
		utils.UnauthorizedResponse(c, "Refresh token revoked")
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		db.Delete(&stored)
		utils.UnauthorizedResponse(c, "Refresh token expired")
		return
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		utils.UnauthorizedResponse(c, "User no longer exists")
		return
	}

	// Rotate: the old refresh token is spent
	db.Delete(&stored)
	issueTokens(c, &user)
}

// Logout revokes all refresh tokens of the authenticated user
func Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	db := database.GetDB()

	result := db.Where("user_id = ?", userID).Delete(&models.RefreshToken{})

	utils.SuccessMessageResponse(c, "Logged out successfully", map[string]interface{}{
		"revoked_count": result.RowsAffected,
	})
}

func issueTokens(c *gin.Context, user *models.User) {
	accessToken, err := utils.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to generate access token")
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to generate refresh token")
		return
	}

	// Store refresh token (hashed)
	db := database.GetDB()
	db.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     utils.HashRefreshToken(refreshToken),
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	})

	utils.SuccessResponse(c, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    config.AppConfig.AccessTokenExpireHours * 3600,
		Role:         user.Role,
	})
}
