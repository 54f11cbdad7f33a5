package handlers

import (
	"net/http"

	"nine-pos/internal/middleware"
	"nine-pos/internal/models"
	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin cashier"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// authResponse is returned by register and login.
type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input: "+err.Error())
		return
	}

	user, err := h.Users.Create(c.Request.Context(), service.UserInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
	})
	if err != nil {
		h.respondError(c, "Register", err)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		h.respondError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input")
		return
	}

	user, err := h.Users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, "Login", err)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		h.respondError(c, "Login", err)
		return
	}
	h.Log.WithField("userId", user.ID).Info("user logged in")
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.Get(c.Request.Context(), c.GetUint(middleware.CtxUserID))
	if err != nil {
		h.respondError(c, "Me", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var input ForgotPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Valid email is required")
		return
	}
	if err := h.Users.RequestPasswordReset(c.Request.Context(), input.Email); err != nil {
		h.respondError(c, "ForgotPassword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent to your email"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var input ResetPasswordRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input")
		return
	}
	if err := h.Users.ResetPassword(c.Request.Context(), c.Param("token"), input.NewPassword); err != nil {
		h.respondError(c, "ResetPassword", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}
