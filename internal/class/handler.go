package class

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gio21sr/oberfit/internal/api"
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

func classID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("classID"))
	if err != nil || id <= 0 {
		api.BadRequest(c, "Invalid class ID")
		return 0, false
	}
	return id, true
}

// @Summary      Create a class
// @Description  Staff only. The start time must be in the future, on the hour and inside operating hours.
// @Tags         staff,classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body class.CreateClassRequest true "Class payload"
// @Success      201 {object} class.Class
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /staff/classes [post]
func (h *Handler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req, h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

// @Summary      Update a class
// @Tags         staff,classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        classID path int true "Class ID"
// @Param        request body class.UpdateClassRequest true "Class payload"
// @Success      200 {object} class.Class
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /staff/classes/{classID} [put]
func (h *Handler) UpdateClass(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	var req UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	class, err := h.service.UpdateClass(c.Request.Context(), id, req, h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

// @Summary      Delete a class
// @Description  Admin only. Removes the class with its member and visitor enrollments.
// @Tags         admin,classes
// @Produce      json
// @Security     BearerAuth
// @Param        classID path int true "Class ID"
// @Success      200 {object} class.DeleteResult
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/classes/{classID} [delete]
func (h *Handler) DeleteClass(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	res, err := h.service.DeleteClass(c.Request.Context(), id, h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// @Summary      List all classes
// @Tags         staff,classes
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} class.Class
// @Router       /staff/classes [get]
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

// @Summary      List upcoming classes
// @Description  Full classes are listed too, flagged with is_full.
// @Tags         classes
// @Produce      json
// @Success      200 {array} class.ClassWithAvailability
// @Router       /classes [get]
func (h *Handler) ListUpcoming(c *gin.Context) {
	classes, err := h.service.ListUpcoming(c.Request.Context(), h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	out := make([]ClassWithAvailability, 0, len(classes))
	for _, class := range classes {
		out = append(out, WithAvailability(class))
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Get a class
// @Tags         classes
// @Produce      json
// @Param        classID path int true "Class ID"
// @Success      200 {object} class.ClassWithAvailability
// @Failure      404 {object} api.ErrorResponse
// @Router       /classes/{classID} [get]
func (h *Handler) GetClass(c *gin.Context) {
	id, ok := classID(c)
	if !ok {
		return
	}

	class, err := h.service.GetClass(c.Request.Context(), id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, WithAvailability(*class))
}
