package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Annibadakh/notes-taking-backend/internal/accounts"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type federatedRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username, email and password are required"})
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), accounts.RegisterInput{
		DisplayName: request.Username,
		Email:       request.Email,
		Password:    request.Password,
	})
	if err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please verify your email with the OTP sent.",
		"user":    result,
	})
}

func (h *httpHandler) handleVerifyRegistrationOTP(c *gin.Context) {
	var request otpRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and otp are required"})
		return
	}

	if err := h.accounts.VerifyRegistrationOTP(c.Request.Context(), request.Email, request.OTP); err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully. You can now log in."})
}

func (h *httpHandler) handleResendRegistrationOTP(c *gin.Context) {
	var request emailRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}

	if err := h.accounts.ResendRegistrationOTP(c.Request.Context(), request.Email); err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A new OTP has been sent to your email."})
}

func (h *httpHandler) handleOAuthRegister(c *gin.Context) {
	var request federatedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "token is required"})
		return
	}

	result, err := h.accounts.FederatedRegister(c.Request.Context(), request.Token)
	if err != nil {
		h.respondAccountError(c, err)
		return
	}

	if result.AlreadyRegistered {
		c.JSON(http.StatusOK, gin.H{
			"message": "Account already registered. Please log in.",
			"user":    result.Profile,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please log in.",
		"user":    result.Profile,
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "An OTP has been sent to your email.",
		"email":      result.Email,
		"expires_at": result.ExpiresAt,
	})
}

func (h *httpHandler) handleVerifyLoginOTP(c *gin.Context) {
	var request otpRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and otp are required"})
		return
	}

	result, err := h.accounts.VerifyLoginOTP(c.Request.Context(), request.Email, request.OTP)
	if err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful.",
		"token":      result.Token,
		"expires_in": result.ExpiresIn,
		"user":       result.Profile,
	})
}

func (h *httpHandler) handleOAuthLogin(c *gin.Context) {
	var request federatedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "token is required"})
		return
	}

	result, err := h.accounts.FederatedLogin(c.Request.Context(), request.Token)
	if err != nil {
		h.respondAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful.",
		"token":      result.Token,
		"expires_in": result.ExpiresIn,
		"user":       result.Profile,
	})
}

// respondAccountError maps account sentinels onto HTTP statuses. Unexpected
// failures stay opaque to the client.
func (h *httpHandler) respondAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidInput),
		errors.Is(err, accounts.ErrDuplicateAccount),
		errors.Is(err, accounts.ErrAlreadyVerified),
		errors.Is(err, accounts.ErrOTPExpired),
		errors.Is(err, accounts.ErrOTPMismatch),
		errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrInvalidIDToken):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, accounts.ErrIdentityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, accounts.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	default:
		h.logger.Error("account operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
