package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tarpaulin-api/internal/service"
	appErrors "github.com/noah-isme/tarpaulin-api/pkg/errors"
	"github.com/noah-isme/tarpaulin-api/pkg/response"
)

// AssignmentHandler handles assignment and submission endpoints.
type AssignmentHandler struct {
	assignments    *service.AssignmentService
	maxUploadBytes int64
}

// NewAssignmentHandler creates a new assignment handler. maxUploadBytes
// bounds submission uploads; values <= 0 disable the check.
func NewAssignmentHandler(assignments *service.AssignmentService, maxUploadBytes int64) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, maxUploadBytes: maxUploadBytes}
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}

	assignment, err := h.assignments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Create assignment
// @Description Create an assignment; admin or the course's instructor
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req service.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body does not contain a valid assignment"))
		return
	}

	assignment, err := h.assignments.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"id": assignment.ID})
}

// Update godoc
// @Summary Update assignment
// @Description Partially update assignment fields; admin or the course's instructor
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body service.UpdateAssignmentRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [patch]
func (h *AssignmentHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}

	var req service.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body does not contain valid assignment fields"))
		return
	}

	if err := h.assignments.Update(c.Request.Context(), id, req, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSONWithLinks(c, http.StatusOK, nil, nil, map[string]string{
		"assignment": fmt.Sprintf("/assignments/%d", id),
	})
}

// Delete godoc
// @Summary Delete assignment
// @Description Remove an assignment and its submissions; admin or the course's instructor
// @Tags Assignments
// @Param id path int true "Assignment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}

	if err := h.assignments.Delete(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListSubmissions godoc
// @Summary List submissions
// @Description Submissions for an assignment, optionally filtered by student; admin or the course's instructor
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Param student_id query int false "Filter by student"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}

	var studentID *int64
	if raw := c.Query("student_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student_id filter"))
			return
		}
		studentID = &parsed
	}

	submissions, err := h.assignments.ListSubmissions(c.Request.Context(), id, studentID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"submissions": submissions}, nil)
}

// CreateSubmission godoc
// @Summary Submit assignment
// @Description Upload a PDF submission for an assignment as multipart form data
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Assignment ID"
// @Param student_id formData int true "Submitting student"
// @Param file formData file true "Submission PDF"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) CreateSubmission(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment id"))
		return
	}

	var req service.CreateSubmissionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request body does not contain a valid submission"))
		return
	}
	// The path is authoritative for the assignment.
	req.AssignmentID = id

	claims := claimsFromContext(c)
	if claims == nil || claims.UserID() != req.StudentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only submit as themselves"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "submission file is required"))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "submission file exceeds the maximum upload size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read submission file"))
		return
	}
	defer file.Close()

	submission, err := h.assignments.CreateSubmission(c.Request.Context(), req, service.SubmissionUpload{
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"id": submission.ID})
}

// Download godoc
// @Summary Download submission file
// @Description Stream a stored submission PDF by its server-generated filename
// @Tags Assignments
// @Produce application/pdf
// @Param filename path string true "Stored filename"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /assignments/download/{filename} [get]
func (h *AssignmentHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "filename is required"))
		return
	}

	path, err := h.assignments.SubmissionFilePath(c.Request.Context(), filename)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, filename)
}
