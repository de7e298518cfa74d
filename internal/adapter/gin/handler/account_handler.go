package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flyte-gateway/internal/usecase/user"
	"flyte-gateway/pkg/logger"
)

// AccountHandler handles HTTP requests for sign-up, login and profile edits
type AccountHandler struct {
	uc  user.AccountUsecase
	log *zap.Logger
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(uc user.AccountUsecase, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		uc:  uc,
		log: log,
	}
}

// Signup handles POST /api/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req user.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.Signup(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Login handles POST /api/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateUser handles POST /api/update-user
func (h *AccountHandler) UpdateUser(c *gin.Context) {
	var req user.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, err)
		return
	}
	req.Actor = logger.GetUsername(c.Request.Context())

	resp, err := h.uc.UpdateUser(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetProfile handles GET /api/users/:username
func (h *AccountHandler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.uc.GetProfile(ctx, user.GetProfileRequest{
		Username: c.Param("username"),
		Actor:    logger.GetUsername(ctx),
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
