package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/repository"
	appErrors "github.com/noah-isme/tarpaulin-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, id int64, update repository.AssignmentUpdate) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListSubmissions(ctx context.Context, assignmentID int64, studentID *int64) ([]models.Submission, error)
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	FindSubmissionPath(ctx context.Context, filename string) (string, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type uploadStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// CreateAssignmentRequest represents the payload for creating assignments.
type CreateAssignmentRequest struct {
	Title    string    `json:"title" validate:"required"`
	Points   int       `json:"points" validate:"gte=0"`
	DueDate  time.Time `json:"due_date" validate:"required"`
	CourseID int64     `json:"course_id" validate:"required"`
}

// UpdateAssignmentRequest carries the recognized fields of a partial update.
type UpdateAssignmentRequest struct {
	Title    *string    `json:"title"`
	Points   *int       `json:"points"`
	DueDate  *time.Time `json:"due_date"`
	CourseID *int64     `json:"course_id"`
}

// CreateSubmissionRequest is the form-field part of a submission upload.
type CreateSubmissionRequest struct {
	AssignmentID int64 `form:"assignment_id" validate:"required"`
	StudentID    int64 `form:"student_id" validate:"required"`
}

// SubmissionUpload is the file part of a submission upload.
type SubmissionUpload struct {
	ContentType string
	Reader      io.Reader
}

// Only PDF uploads are accepted; the stored name is server-generated.
const submissionMIME = "application/pdf"

// AssignmentService handles assignment CRUD and submission workflows.
type AssignmentService struct {
	repo      assignmentRepository
	courses   courseFinder
	storage   uploadStorage
	cache     *CourseDetailCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService creates an instance of AssignmentService.
func NewAssignmentService(repo assignmentRepository, courses courseFinder, storage uploadStorage, cache *CourseDetailCache, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, courses: courses, storage: storage, cache: cache, validator: validate, logger: logger}
}

// Get returns an assignment by id.
func (s *AssignmentService) Get(ctx context.Context, id int64) (*models.Assignment, error) {
	return s.findAssignment(ctx, id)
}

// ListByCourse returns a course's assignments.
func (s *AssignmentService) ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Create inserts a new assignment. Admins and the target course's owning
// instructor only.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest, claims *models.JWTClaims) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	course, err := s.findCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(claims, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to post a new assignment")
	}

	assignment := &models.Assignment{
		Title:    req.Title,
		Points:   req.Points,
		DueDate:  req.DueDate,
		CourseID: req.CourseID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.cache.Invalidate(ctx, req.CourseID)
	return assignment, nil
}

// Update applies a partial update. Admins and the owning instructor only.
func (s *AssignmentService) Update(ctx context.Context, id int64, req UpdateAssignmentRequest, claims *models.JWTClaims) error {
	assignment, err := s.findAssignment(ctx, id)
	if err != nil {
		return err
	}
	course, err := s.findCourse(ctx, assignment.CourseID)
	if err != nil {
		return err
	}
	if !canManageCourse(claims, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to update this assignment")
	}

	updated, err := s.repo.Update(ctx, id, repository.AssignmentUpdate{
		Title:    req.Title,
		Points:   req.Points,
		DueDate:  req.DueDate,
		CourseID: req.CourseID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrValidation, "no recognized assignment fields in request body")
	}

	s.cache.Invalidate(ctx, assignment.CourseID)
	return nil
}

// Delete removes an assignment. Admins and the owning instructor only.
func (s *AssignmentService) Delete(ctx context.Context, id int64, claims *models.JWTClaims) error {
	assignment, err := s.findAssignment(ctx, id)
	if err != nil {
		return err
	}
	course, err := s.findCourse(ctx, assignment.CourseID)
	if err != nil {
		return err
	}
	if !canManageCourse(claims, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to delete this assignment")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	s.cache.Invalidate(ctx, assignment.CourseID)
	return nil
}

// ListSubmissions returns an assignment's submissions shaped with download
// URLs, optionally filtered to a single student. Admins and the owning
// instructor only.
func (s *AssignmentService) ListSubmissions(ctx context.Context, assignmentID int64, studentID *int64, claims *models.JWTClaims) ([]models.SubmissionInfo, error) {
	assignment, err := s.findAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	course, err := s.findCourse(ctx, assignment.CourseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(claims, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to view these submissions")
	}

	submissions, err := s.repo.ListSubmissions(ctx, assignmentID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	infos := make([]models.SubmissionInfo, 0, len(submissions))
	for _, sub := range submissions {
		infos = append(infos, models.SubmissionInfo{
			ID:           sub.ID,
			Date:         sub.SubmissionDate,
			FileURL:      fmt.Sprintf("/assignments/download/%s", sub.FileName),
			AssignmentID: sub.AssignmentID,
			StudentID:    sub.StudentID,
		})
	}
	return infos, nil
}

// CreateSubmission stores the uploaded PDF under a random server-generated
// filename and records the submission row.
func (s *AssignmentService) CreateSubmission(ctx context.Context, req CreateSubmissionRequest, upload SubmissionUpload) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if upload.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submission file is required")
	}
	if upload.ContentType != submissionMIME {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedUpload, "only PDF submissions are accepted")
	}

	if _, err := s.findAssignment(ctx, req.AssignmentID); err != nil {
		return nil, err
	}

	filename, err := randomFilename()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to name submission file")
	}

	path, err := s.storage.SaveStream(filename, upload.Reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission file")
	}

	submission := &models.Submission{
		AssignmentID:   req.AssignmentID,
		StudentID:      req.StudentID,
		SubmissionDate: time.Now().UTC(),
		FileName:       filename,
		FilePath:       path,
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	return submission, nil
}

// SubmissionFilePath resolves a stored filename to its path on disk.
func (s *AssignmentService) SubmissionFilePath(ctx context.Context, filename string) (string, error) {
	path, err := s.repo.FindSubmissionPath(ctx, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "submission file not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submission file")
	}
	return path, nil
}

func (s *AssignmentService) findAssignment(ctx context.Context, id int64) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) findCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// randomFilename returns a 16-byte hex name with a pdf extension, decoupled
// from whatever the client called the file.
func randomFilename() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + ".pdf", nil
}
