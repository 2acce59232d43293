package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h HandlerSet) VerifyEmail(c *gin.Context) {
	var req otpRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.VerifyEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully. You can now log in."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logout exists for clients that call it. Tokens are stateless, so the
// client discarding its token is the whole operation.
func (h HandlerSet) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	message, err := h.auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset. You can now log in with your new password."})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.auth.InitiatePasswordChange(c.Request.Context(), identity.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A confirmation code has been sent to your email."})
}

func (h HandlerSet) ConfirmPasswordChange(c *gin.Context) {
	var req otpRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.auth.ConfirmPasswordChange(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully."})
}

type resendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (h HandlerSet) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if !h.bind(c, &req) {
		return
	}
	h.resend(c, req.Email, req.Purpose)
}

func (h HandlerSet) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}
	h.resend(c, req.Email, string(models.PurposeVerification))
}

func (h HandlerSet) resend(c *gin.Context, email, purpose string) {
	if err := h.auth.ResendOTP(c.Request.Context(), email, purpose); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A new code has been sent to your email."})
}

type changeUsernameRequest struct {
	NewUsername string `json:"newUsername"`
}

func (h HandlerSet) ChangeUsername(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req changeUsernameRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.auth.ChangeUsername(c.Request.Context(), identity.UserID, req.NewUsername)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Username updated.", "user": user})
}

func (h HandlerSet) Me(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
