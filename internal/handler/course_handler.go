package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/service"
	appErrors "github.com/noah-isme/tarpaulin-api/pkg/errors"
	"github.com/noah-isme/tarpaulin-api/pkg/response"
)

// CourseHandler handles course, enrollment and roster endpoints.
type CourseHandler struct {
	courses     *service.CourseService
	assignments *service.AssignmentService
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(courses *service.CourseService, assignments *service.AssignmentService) *CourseHandler {
	return &CourseHandler{courses: courses, assignments: assignments}
}

// List godoc
// @Summary List courses
// @Description Paginated course catalog, optionally filtered by subject, number and term
// @Tags Courses
// @Produce json
// @Param page query int false "Page number"
// @Param subject query string false "Subject code"
// @Param number query string false "Course number"
// @Param term query string false "Academic term"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Subject: c.Query("subject"),
		Number:  c.Query("number"),
		Term:    c.Query("term"),
		Page:    1,
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			filter.Page = page
		}
	}

	courses, pagination, links, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSONWithLinks(c, http.StatusOK, gin.H{"courses": courses}, pagination, links)
}

// Create godoc
// @Summary Create course
// @Description Create a new course; admin only
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body does not contain a valid course"))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.CreatedWithLinks(c, gin.H{"id": course.ID}, map[string]string{
		"course": fmt.Sprintf("/courses/%d", course.ID),
	})
}

// Get godoc
// @Summary Get course
// @Description Fetch a course with its enrolled students and assignments
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	detail, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update course
// @Description Partially update course fields; admin or owning instructor
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.UpdateCourseRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [patch]
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	var req service.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body does not contain valid course fields"))
		return
	}

	if err := h.courses.Update(c.Request.Context(), id, req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSONWithLinks(c, http.StatusOK, nil, nil, map[string]string{
		"course": fmt.Sprintf("/courses/%d", id),
	})
}

// Delete godoc
// @Summary Delete course
// @Description Remove a course along with its enrollments and assignments; admin only
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	if err := h.courses.Delete(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Assignments godoc
// @Summary List course assignments
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/assignments [get]
func (h *CourseHandler) Assignments(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	assignments, err := h.assignments.ListByCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"assignments": assignments}, nil)
}

// Students godoc
// @Summary List enrolled students
// @Description Student IDs enrolled in the course; admin or owning instructor
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Students(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	students, err := h.courses.Students(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"students": students}, nil)
}

// UpdateEnrollment godoc
// @Summary Update enrollment
// @Description Enroll and unenroll students atomically; admin or owning instructor
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body models.EnrollmentUpdate true "Students to add and remove"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students [post]
func (h *CourseHandler) UpdateEnrollment(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	var update models.EnrollmentUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body needs an add or remove field"))
		return
	}
	if len(update.Add) == 0 && len(update.Remove) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "request body needs an add or remove field"))
		return
	}

	if err := h.courses.UpdateEnrollment(c.Request.Context(), id, update, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, nil)
}

// Roster godoc
// @Summary Download course roster
// @Description Roster of enrolled students as CSV, or PDF with ?format=pdf; admin or owning instructor
// @Tags Courses
// @Produce text/csv
// @Param id path int true "Course ID"
// @Param format query string false "Export format" Enums(csv, pdf)
// @Success 200 {string} string "roster export"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid course id"))
		return
	}

	if c.Query("format") == "pdf" {
		data, err := h.courses.RosterPDF(c.Request.Context(), id, claimsFromContext(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename=roster.pdf`)
		c.Data(http.StatusOK, "application/pdf", data)
		return
	}

	data, err := h.courses.RosterCSV(c.Request.Context(), id, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename=roster.csv`)
	c.Data(http.StatusOK, "text/csv", data)
}
