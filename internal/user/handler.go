package user

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gio21sr/oberfit/internal/api"
	"github.com/Gio21sr/oberfit/internal/auth"
)

type Handler struct {
	service Service
	now     func() time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
		now:     time.Now,
	}
}

// Register godoc
// @Summary      Register new member
// @Description  Creates a member with the full monthly quota and returns access & refresh tokens.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Registration data"
// @Success      201      {object}  LoginResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	u, accessToken, refreshToken, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *u,
	})
}

// Login godoc
// @Summary      Login user
// @Description  Authenticates user by email and password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "User credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	u, accessToken, refreshToken, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *u,
	})
}

// RefreshToken godoc
// @Summary      Refresh access token
// @Description  Returns new access token using a valid refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RefreshRequest  true  "Refresh token payload"
// @Success      200      {object}  RefreshResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "refresh_token is required")
		return
	}

	accessToken, u, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken: accessToken,
		User:        *u,
	})
}

// GetMe godoc
// @Summary      Get current user
// @Description  Returns the authenticated user's profile, including the effective monthly quota for members.
// @Tags         user
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Profile
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	p, err := h.service.GetProfile(c.Request.Context(), userID, h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// CreateUser godoc
// @Summary      Create employee or member
// @Tags         admin,user
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateUserRequest  true  "New user"
// @Success      201      {object}  User
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	caller, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	u, err := h.service.CreateByAdmin(c.Request.Context(), caller, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, u)
}

// ListUsers godoc
// @Summary      List employees and members
// @Tags         admin,user
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UsersByRole
// @Router       /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	caller, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	users, err := h.service.ListByRole(c.Request.Context(), caller)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// DeleteUser godoc
// @Summary      Delete employee or member
// @Description  Under the cascade policy the member's enrollments are removed and seats restored; under block any enrollment prevents deletion.
// @Tags         admin,user
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path  int  true  "User ID"
// @Success      200  {object}  DeleteResult
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/users/{userID} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	caller, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil || userID <= 0 {
		api.BadRequest(c, "Invalid user ID")
		return
	}

	res, err := h.service.Delete(c.Request.Context(), caller, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
