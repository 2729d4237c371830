package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"siraqemir/internal/models"
	"siraqemir/internal/services"
)

type AuthHandler struct {
	userService services.UserService
}

func NewAuthHandler(userService services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// @Summary     Register a user
// @Description Creates an account and signs it in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       credentials  body      models.Credentials  true  "Email and password"
// @Success     201          {object}  models.AuthResponse
// @Failure     400          {object}  map[string]string
// @Failure     409          {object}  map[string]string
// @Security    ApiKeyAuth
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][register] bad request: bind json failed: err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)
	log.Printf("[auth][register] attempt email=%q", email)

	resp, err := h.userService.Register(c.Request.Context(), email, req.Password)
	if err != nil {
		log.Printf("[auth][register][err] email=%q: %v", email, err)
		abortWithError(c, err)
		return
	}
	log.Printf("[auth][register][ok] userID=%s", resp.User.ID)
	c.JSON(http.StatusCreated, resp)
}

// @Summary     Sign in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       credentials  body      models.Credentials  true  "Email and password"
// @Success     200          {object}  models.AuthResponse
// @Failure     400          {object}  map[string]string
// @Failure     401          {object}  map[string]string
// @Security    ApiKeyAuth
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()

	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][login] bad request: bind json failed: err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.TrimSpace(req.Email)
	log.Printf("[auth][login] attempt email=%q", email)

	resp, err := h.userService.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		log.Printf("[auth][login][err] email=%q: %v", email, err)
		abortWithError(c, err)
		return
	}
	// значение токенов не логируем
	log.Printf("[auth][login] success userID=%s took=%s", resp.User.ID, time.Since(start).Truncate(time.Millisecond))
	c.JSON(http.StatusOK, resp)
}

// @Summary     Rotate the refresh token
// @Description The old refresh token stops working once a new pair is issued
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      object  true  "{\"refresh_token\": \"...\"}"
// @Success     200   {object}  models.AuthResponse
// @Failure     401   {object}  map[string]string
// @Security    ApiKeyAuth
// @Router      /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.userService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Printf("[auth][refresh][err] %v", err)
		abortWithError(c, err)
		return
	}
	log.Printf("[auth][refresh][ok] userID=%s", resp.User.ID)
	c.JSON(http.StatusOK, resp)
}

// @Summary     Sign out
// @Tags        Auth
// @Success     204
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := getUserID(c)
	if err := h.userService.Logout(c.Request.Context(), userID); err != nil {
		log.Printf("[auth][logout][err] userID=%s: %v", userID, err)
		abortWithError(c, err)
		return
	}
	log.Printf("[auth][logout][ok] userID=%s", userID)
	c.Status(http.StatusNoContent)
}

// @Summary     Current user
// @Tags        Auth
// @Produce     json
// @Success     200  {object}  models.User
// @Failure     401  {object}  map[string]string
// @Security    ApiKeyAuth
// @Security    BearerAuth
// @Router      /auth/user [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := getUserID(c)
	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[auth][me][err] userID=%s: %v", userID, err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
