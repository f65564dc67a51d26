package enrollment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gio21sr/oberfit/internal/api"
	"github.com/Gio21sr/oberfit/internal/auth"
	"github.com/Gio21sr/oberfit/internal/schedule"
)

const reportDateLayout = "2006-01-02"

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

func pathID(c *gin.Context, name, label string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		api.BadRequest(c, "Invalid "+label)
		return 0, false
	}
	return id, true
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return auth.Identity{}, false
	}
	return id, true
}

// @Summary      Enroll in a class
// @Description  Books a seat for the authenticated member and spends one class of the monthly quota.
// @Tags         members,enrollments
// @Produce      json
// @Security     BearerAuth
// @Param        classID path int true "Class ID"
// @Success      201 {object} enrollment.MemberEnrollmentResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      422 {object} api.ErrorResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /classes/{classID}/enroll [post]
func (h *Handler) EnrollMember(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	classID, ok := pathID(c, "classID", "class ID")
	if !ok {
		return
	}

	res, err := h.service.EnrollMember(c.Request.Context(), caller, caller.UserID, classID, h.now())
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// @Summary      Enroll as a visitor
// @Description  Walk-in booking without an account. Bank details are returned for transfers only.
// @Tags         visitors,enrollments
// @Accept       json
// @Produce      json
// @Param        request body enrollment.EnrollVisitorRequest true "Visitor payload"
// @Success      201 {object} enrollment.VisitorConfirmation
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      429 {object} api.ErrorResponse
// @Router       /visitor/enrollments [post]
func (h *Handler) EnrollVisitor(c *gin.Context) {
	var req EnrollVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, err.Error())
		return
	}

	conf, err := h.service.EnrollVisitor(c.Request.Context(), req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conf)
}

// @Summary      List class attendees
// @Tags         staff,enrollments
// @Produce      json
// @Security     BearerAuth
// @Param        classID path int true "Class ID"
// @Success      200 {array} enrollment.Attendee
// @Failure      403 {object} api.ErrorResponse
// @Router       /staff/classes/{classID}/attendees [get]
func (h *Handler) ListAttendees(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	classID, ok := pathID(c, "classID", "class ID")
	if !ok {
		return
	}

	attendees, err := h.service.ListAttendees(c.Request.Context(), caller, classID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, attendees)
}

// @Summary      List my enrollments
// @Tags         members,enrollments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} enrollment.EnrollmentWithClass
// @Router       /me/enrollments [get]
func (h *Handler) ListMyEnrollments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	enrollments, err := h.service.ListMemberEnrollments(c.Request.Context(), caller, caller.UserID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// @Summary      List a member's enrollments
// @Tags         staff,enrollments
// @Produce      json
// @Security     BearerAuth
// @Param        memberID path int true "Member ID"
// @Success      200 {array} enrollment.EnrollmentWithClass
// @Router       /staff/members/{memberID}/enrollments [get]
func (h *Handler) ListMemberEnrollments(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}
	memberID, ok := pathID(c, "memberID", "member ID")
	if !ok {
		return
	}

	enrollments, err := h.service.ListMemberEnrollments(c.Request.Context(), caller, memberID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// @Summary      Occupancy report
// @Description  Enrollments per gym-local day and fill per class. Dates are inclusive; defaults to the last 30 days.
// @Tags         admin,reports
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "First day (YYYY-MM-DD)"
// @Param        to   query string false "Last day (YYYY-MM-DD)"
// @Success      200 {object} enrollment.OccupancyReport
// @Failure      400 {object} api.ErrorResponse
// @Router       /admin/reports/occupancy [get]
func (h *Handler) Occupancy(c *gin.Context) {
	now := h.now().In(schedule.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, schedule.Location)

	from := today.AddDate(0, 0, -30)
	to := today.AddDate(0, 0, 1)

	if v := c.Query("from"); v != "" {
		d, err := time.ParseInLocation(reportDateLayout, v, schedule.Location)
		if err != nil {
			api.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.ParseInLocation(reportDateLayout, v, schedule.Location)
		if err != nil {
			api.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		to = d.AddDate(0, 0, 1)
	}

	report, err := h.service.Occupancy(c.Request.Context(), from, to)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
