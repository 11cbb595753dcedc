package handlers

import (
	"errors"
	"net/http"

	"pickup-kitchen/accounts"
	"pickup-kitchen/middleware"
	"pickup-kitchen/models"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	RequestID   string `json:"request_id" binding:"required"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func userSummary(user *models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"email":       user.Email,
		"role":        user.Role,
		"is_verified": user.IsVerified,
	}
}

// Register creates a new user account
func (h *Handler) Register(c *gin.Context) {
	var req accounts.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "register", err)
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.respondError(c, "register", err)
		return
	}

	msg := "Account created successfully"
	if !user.IsVerified {
		msg = "Account created. An administrator must verify it before you can manage the restaurant"
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
		"token":   token,
		"user":    userSummary(user),
	})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	case errors.Is(err, accounts.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is disabled"})
		return
	case err != nil:
		h.respondError(c, "login", err)
		return
	}

	token, err := h.tokens.GenerateToken(user)
	if err != nil {
		h.respondError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userSummary(user),
	})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, "get_profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ForgotPassword mails a reset link. The answer is the same whether or not
// the address is registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, "forgot_password", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "If the address is registered, a reset link is on its way"})
}

// ResetPassword sets a new password using the emailed link
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), req.RequestID, req.Token, req.NewPassword); err != nil {
		h.respondError(c, "reset_password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated, please sign in"})
}
