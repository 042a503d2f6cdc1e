package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/repository"
	appErrors "github.com/noah-isme/tarpaulin-api/pkg/errors"
	"github.com/noah-isme/tarpaulin-api/pkg/export"
)

type courseRepository interface {
	Count(ctx context.Context, filter models.CourseFilter) (int, error)
	List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, id int64, update repository.CourseUpdate) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	StudentIDs(ctx context.Context, courseID int64) ([]int64, error)
	AssignmentIDs(ctx context.Context, courseID int64) ([]int64, error)
	Roster(ctx context.Context, courseID int64) ([]models.RosterRow, error)
	UpdateEnrollment(ctx context.Context, courseID int64, add, remove []int64) error
}

// CreateCourseRequest represents the payload for creating courses.
type CreateCourseRequest struct {
	SubjectCode  string `json:"subject_code" validate:"required"`
	CourseNumber string `json:"course_number" validate:"required"`
	CourseTitle  string `json:"course_title" validate:"required"`
	Term         string `json:"term" validate:"required"`
	InstructorID int64  `json:"instructor_id" validate:"required"`
}

// UpdateCourseRequest carries the recognized fields of a partial course
// update; unknown client fields never reach the database.
type UpdateCourseRequest struct {
	SubjectCode  *string `json:"subject_code"`
	CourseNumber *string `json:"course_number"`
	CourseTitle  *string `json:"course_title"`
	Term         *string `json:"term"`
	InstructorID *int64  `json:"instructor_id"`
}

// CourseService handles course listing, CRUD and enrollment management.
type CourseService struct {
	repo      courseRepository
	cache     *CourseDetailCache
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// NewCourseService creates an instance of CourseService.
func NewCourseService(repo courseRepository, cache *CourseDetailCache, validate *validator.Validate, logger *zap.Logger, pageSize int) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger, pageSize: pageSize}
}

// List returns one page of courses with pagination metadata and navigation
// links. The requested page is clamped into [1, lastPage].
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, map[string]string, error) {
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}

	lastPage := (total + s.pageSize - 1) / s.pageSize
	if lastPage < 1 {
		lastPage = 1
	}
	page := filter.Page
	if page > lastPage {
		page = lastPage
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * s.pageSize

	courses, err := s.repo.List(ctx, filter, s.pageSize, offset)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: lastPage,
		TotalCount: total,
	}

	links := map[string]string{}
	if page < lastPage {
		links["next_page"] = fmt.Sprintf("/courses?page=%d", page+1)
		links["last_page"] = fmt.Sprintf("/courses?page=%d", lastPage)
	}
	if page > 1 {
		links["prev_page"] = fmt.Sprintf("/courses?page=%d", page-1)
		links["first_page"] = "/courses?page=1"
	}

	return courses, pagination, links, nil
}

// Get returns the course detail (fields plus enrolled student ids and
// assignment ids), served cache-aside.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.CourseDetail, error) {
	if detail, ok := s.cache.Get(ctx, id); ok {
		return detail, nil
	}

	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	students, err := s.repo.StudentIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	assignments, err := s.repo.AssignmentIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment ids")
	}

	detail := &models.CourseDetail{Course: *course, Students: students, Assignments: assignments}
	s.cache.Set(ctx, detail)
	return detail, nil
}

// Create inserts a new course. Only admins may create courses.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, claims *models.JWTClaims) (*models.Course, error) {
	if claims == nil || claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only an admin can create new courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		SubjectCode:  req.SubjectCode,
		CourseNumber: req.CourseNumber,
		CourseTitle:  req.CourseTitle,
		Term:         req.Term,
		InstructorID: req.InstructorID,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update applies a partial update. Admins and the owning instructor only.
func (s *CourseService) Update(ctx context.Context, id int64, req UpdateCourseRequest, claims *models.JWTClaims) error {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return err
	}
	if !canManageCourse(claims, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to update this course")
	}

	updated, err := s.repo.Update(ctx, id, repository.CourseUpdate{
		SubjectCode:  req.SubjectCode,
		CourseNumber: req.CourseNumber,
		CourseTitle:  req.CourseTitle,
		Term:         req.Term,
		InstructorID: req.InstructorID,
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrValidation, "no recognized course fields in request body")
	}

	s.cache.Invalidate(ctx, id)
	return nil
}

// Delete removes a course. Admin only.
func (s *CourseService) Delete(ctx context.Context, id int64, claims *models.JWTClaims) error {
	if claims == nil || claims.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only an admin can remove courses")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	s.cache.Invalidate(ctx, id)
	return nil
}

// Students returns the enrolled student ids. Admins and the owning
// instructor only.
func (s *CourseService) Students(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]int64, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(claims, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to view this student list")
	}

	students, err := s.repo.StudentIDs(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled students")
	}
	return students, nil
}

// UpdateEnrollment applies bulk add/remove lists in a single transaction.
// Admins and the owning instructor only.
func (s *CourseService) UpdateEnrollment(ctx context.Context, courseID int64, update models.EnrollmentUpdate, claims *models.JWTClaims) error {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !canManageCourse(claims, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to manage this enrollment")
	}

	if err := s.repo.UpdateEnrollment(ctx, courseID, update.Add, update.Remove); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	s.cache.Invalidate(ctx, courseID)
	return nil
}

// RosterCSV renders the roster as headerless CSV, one id,name,email line per
// enrolled student. Admins and the owning instructor only.
func (s *CourseService) RosterCSV(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]byte, error) {
	rows, err := s.roster(ctx, courseID, claims)
	if err != nil {
		return nil, err
	}
	data, err := export.NewCSVExporter().Render(rosterDataset(rows))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return data, nil
}

// RosterPDF renders the same roster as a tabular PDF.
func (s *CourseService) RosterPDF(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]byte, error) {
	rows, err := s.roster(ctx, courseID, claims)
	if err != nil {
		return nil, err
	}
	dataset := rosterDataset(rows)
	dataset.WriteHeader = true
	data, err := export.NewPDFExporter().Render(dataset, fmt.Sprintf("course %d roster", courseID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	return data, nil
}

func (s *CourseService) roster(ctx context.Context, courseID int64, claims *models.JWTClaims) ([]models.RosterRow, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(claims, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to get this roster")
	}

	rows, err := s.repo.Roster(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return rows, nil
}

func (s *CourseService) findCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func rosterDataset(rows []models.RosterRow) export.Dataset {
	dataset := export.Dataset{Columns: []string{"id", "name", "email"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":    strconv.FormatInt(row.ID, 10),
			"name":  row.Name,
			"email": row.Email,
		})
	}
	return dataset
}

// canManageCourse reports whether the caller is an admin or the course's
// owning instructor.
func canManageCourse(claims *models.JWTClaims, course *models.Course) bool {
	if claims == nil {
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	return claims.Role == models.RoleInstructor && claims.UserID() == course.InstructorID
}
