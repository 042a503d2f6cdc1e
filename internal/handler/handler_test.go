package handler

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/repository"
	"github.com/noah-isme/tarpaulin-api/internal/service"
)

// In-memory repository doubles; handlers are exercised through real service
// instances built on top of them.

type userRepoStub struct {
	userByEmail *models.User
	userByID    *models.User
	enrollments []int64
	taught      []models.Course
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = 101
	return nil
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if s.userByID == nil {
		return nil, sql.ErrNoRows
	}
	return s.userByID, nil
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return s.userByEmail, nil
}

func (s *userRepoStub) EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	return s.enrollments, nil
}

func (s *userRepoStub) TaughtCourses(ctx context.Context, instructorID int64) ([]models.Course, error) {
	return s.taught, nil
}

type courseRepoStub struct {
	total       int
	courses     []models.Course
	course      *models.Course
	students    []int64
	assignments []int64
	roster      []models.RosterRow

	enrollAdded   []int64
	enrollRemoved []int64
}

func (s *courseRepoStub) Count(ctx context.Context, filter models.CourseFilter) (int, error) {
	return s.total, nil
}

func (s *courseRepoStub) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error) {
	return s.courses, nil
}

func (s *courseRepoStub) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if s.course == nil {
		return nil, sql.ErrNoRows
	}
	return s.course, nil
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	course.ID = 21
	return nil
}

func (s *courseRepoStub) Update(ctx context.Context, id int64, update repository.CourseUpdate) (bool, error) {
	return true, nil
}

func (s *courseRepoStub) Delete(ctx context.Context, id int64) (bool, error) {
	return s.course != nil, nil
}

func (s *courseRepoStub) StudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return s.students, nil
}

func (s *courseRepoStub) AssignmentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	return s.assignments, nil
}

func (s *courseRepoStub) Roster(ctx context.Context, courseID int64) ([]models.RosterRow, error) {
	return s.roster, nil
}

func (s *courseRepoStub) UpdateEnrollment(ctx context.Context, courseID int64, add, remove []int64) error {
	s.enrollAdded = add
	s.enrollRemoved = remove
	return nil
}

type assignmentRepoStub struct {
	assignment  *models.Assignment
	assignments []models.Assignment
	submissions []models.Submission
	path        string

	createdSubmission *models.Submission
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	if s.assignment == nil {
		return nil, sql.ErrNoRows
	}
	return s.assignment, nil
}

func (s *assignmentRepoStub) ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	return s.assignments, nil
}

func (s *assignmentRepoStub) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = 8
	return nil
}

func (s *assignmentRepoStub) Update(ctx context.Context, id int64, update repository.AssignmentUpdate) (bool, error) {
	return true, nil
}

func (s *assignmentRepoStub) Delete(ctx context.Context, id int64) (bool, error) {
	return s.assignment != nil, nil
}

func (s *assignmentRepoStub) ListSubmissions(ctx context.Context, assignmentID int64, studentID *int64) ([]models.Submission, error) {
	return s.submissions, nil
}

func (s *assignmentRepoStub) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	submission.ID = 1
	s.createdSubmission = submission
	return nil
}

func (s *assignmentRepoStub) FindSubmissionPath(ctx context.Context, filename string) (string, error) {
	if s.path == "" {
		return "", sql.ErrNoRows
	}
	return s.path, nil
}

type storageStub struct {
	savedName string
}

func (s *storageStub) SaveStream(filename string, r io.Reader) (string, error) {
	s.savedName = filename
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "/uploads/" + filename, nil
}

func testClaims(id string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
}

func newTestCourseService(repo *courseRepoStub) *service.CourseService {
	cache := service.NewCourseDetailCache(nil, 0, nil, zap.NewNop())
	return service.NewCourseService(repo, cache, validator.New(), zap.NewNop(), 10)
}

func newTestAssignmentService(repo *assignmentRepoStub, courses *courseRepoStub, storage *storageStub) *service.AssignmentService {
	cache := service.NewCourseDetailCache(nil, 0, nil, zap.NewNop())
	return service.NewAssignmentService(repo, courses, storage, cache, validator.New(), zap.NewNop())
}

func newTestAuthService(repo *userRepoStub) *service.AuthService {
	return service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{
		Secret:     "secret",
		Expiration: time.Hour,
		Issuer:     "tarpaulin-api",
	})
}
