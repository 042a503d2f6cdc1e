package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tarpaulin-api/internal/models"
	"github.com/noah-isme/tarpaulin-api/internal/repository"
	appErrors "github.com/noah-isme/tarpaulin-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignment  *models.Assignment
	assignments []models.Assignment
	submissions []models.Submission
	created     *models.Submission

	lastStudentFilter *int64
	deleteReturned    bool
	deleted           bool
	path              string
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	if m.assignment == nil {
		return nil, sql.ErrNoRows
	}
	return m.assignment, nil
}

func (m *mockAssignmentRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	return m.assignments, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = 8
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, id int64, update repository.AssignmentUpdate) (bool, error) {
	return true, nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	m.deleted = true
	return m.deleteReturned, nil
}

func (m *mockAssignmentRepo) ListSubmissions(ctx context.Context, assignmentID int64, studentID *int64) ([]models.Submission, error) {
	m.lastStudentFilter = studentID
	return m.submissions, nil
}

func (m *mockAssignmentRepo) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	submission.ID = 1
	m.created = submission
	return nil
}

func (m *mockAssignmentRepo) FindSubmissionPath(ctx context.Context, filename string) (string, error) {
	if m.path == "" {
		return "", sql.ErrNoRows
	}
	return m.path, nil
}

type mockCourseFinder struct {
	course *models.Course
}

func (m *mockCourseFinder) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

type mockStorage struct {
	savedName string
	saved     []byte
}

func (m *mockStorage) SaveStream(filename string, r io.Reader) (string, error) {
	m.savedName = filename
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved = data
	return "/uploads/" + filename, nil
}

func newAssignmentService(repo *mockAssignmentRepo, courses *mockCourseFinder, storage *mockStorage) *AssignmentService {
	cache := NewCourseDetailCache(nil, 0, nil, zap.NewNop())
	return NewAssignmentService(repo, courses, storage, cache, validator.New(), zap.NewNop())
}

func TestAssignmentServiceCreateOwnership(t *testing.T) {
	repo := &mockAssignmentRepo{}
	courses := &mockCourseFinder{course: &models.Course{ID: 21, InstructorID: 3}}
	svc := newAssignmentService(repo, courses, &mockStorage{})

	req := CreateAssignmentRequest{Title: "Final Project", Points: 100, DueDate: time.Now().Add(time.Hour), CourseID: 21}

	_, err := svc.Create(context.Background(), req, instructorClaims("4"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	assignment, err := svc.Create(context.Background(), req, instructorClaims("3"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), assignment.ID)
}

func TestAssignmentServiceCreateCourseMissing(t *testing.T) {
	svc := newAssignmentService(&mockAssignmentRepo{}, &mockCourseFinder{}, &mockStorage{})

	req := CreateAssignmentRequest{Title: "Final Project", DueDate: time.Now(), CourseID: 99}
	_, err := svc.Create(context.Background(), req, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceDeleteOwnership(t *testing.T) {
	repo := &mockAssignmentRepo{assignment: &models.Assignment{ID: 8, CourseID: 21}, deleteReturned: true}
	courses := &mockCourseFinder{course: &models.Course{ID: 21, InstructorID: 3}}
	svc := newAssignmentService(repo, courses, &mockStorage{})

	err := svc.Delete(context.Background(), 8, instructorClaims("4"))
	require.Error(t, err)
	assert.False(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), 8, adminClaims()))
	assert.True(t, repo.deleted)
}

func TestAssignmentServiceListSubmissionsBuildsFileURLs(t *testing.T) {
	when := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := &mockAssignmentRepo{
		assignment: &models.Assignment{ID: 8, CourseID: 21},
		submissions: []models.Submission{
			{ID: 1, AssignmentID: 8, StudentID: 5, SubmissionDate: when, FileName: "abc123.pdf", FilePath: "/uploads/abc123.pdf"},
		},
	}
	svc := newAssignmentService(repo, &mockCourseFinder{course: &models.Course{ID: 21}}, &mockStorage{})

	infos, err := svc.ListSubmissions(context.Background(), 8, nil, adminClaims())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "/assignments/download/abc123.pdf", infos[0].FileURL)
	assert.Nil(t, repo.lastStudentFilter)
}

func TestAssignmentServiceListSubmissionsStudentFilter(t *testing.T) {
	repo := &mockAssignmentRepo{assignment: &models.Assignment{ID: 8, CourseID: 21}}
	svc := newAssignmentService(repo, &mockCourseFinder{course: &models.Course{ID: 21}}, &mockStorage{})

	student := int64(5)
	_, err := svc.ListSubmissions(context.Background(), 8, &student, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, repo.lastStudentFilter)
	assert.Equal(t, int64(5), *repo.lastStudentFilter)
}

func TestAssignmentServiceListSubmissionsForbidden(t *testing.T) {
	repo := &mockAssignmentRepo{assignment: &models.Assignment{ID: 8, CourseID: 21}}
	svc := newAssignmentService(repo, &mockCourseFinder{course: &models.Course{ID: 21, InstructorID: 3}}, &mockStorage{})

	_, err := svc.ListSubmissions(context.Background(), 8, nil, instructorClaims("4"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceCreateSubmissionStoresPDF(t *testing.T) {
	repo := &mockAssignmentRepo{assignment: &models.Assignment{ID: 8, CourseID: 21}}
	storage := &mockStorage{}
	svc := newAssignmentService(repo, &mockCourseFinder{course: &models.Course{ID: 21}}, storage)

	upload := SubmissionUpload{ContentType: "application/pdf", Reader: bytes.NewReader([]byte("%PDF-1.4"))}
	submission, err := svc.CreateSubmission(context.Background(), CreateSubmissionRequest{AssignmentID: 8, StudentID: 5}, upload)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(submission.FileName, ".pdf"))
	assert.Len(t, strings.TrimSuffix(submission.FileName, ".pdf"), 32)
	assert.Equal(t, submission.FileName, storage.savedName)
	assert.Equal(t, []byte("%PDF-1.4"), storage.saved)
	assert.Equal(t, "/uploads/"+submission.FileName, submission.FilePath)
	assert.WithinDuration(t, time.Now().UTC(), submission.SubmissionDate, time.Minute)
}

func TestAssignmentServiceCreateSubmissionRejectsNonPDF(t *testing.T) {
	repo := &mockAssignmentRepo{assignment: &models.Assignment{ID: 8, CourseID: 21}}
	svc := newAssignmentService(repo, &mockCourseFinder{course: &models.Course{ID: 21}}, &mockStorage{})

	upload := SubmissionUpload{ContentType: "image/png", Reader: bytes.NewReader([]byte("not a pdf"))}
	_, err := svc.CreateSubmission(context.Background(), CreateSubmissionRequest{AssignmentID: 8, StudentID: 5}, upload)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnsupportedUpload.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestAssignmentServiceCreateSubmissionMissingFile(t *testing.T) {
	svc := newAssignmentService(&mockAssignmentRepo{}, &mockCourseFinder{}, &mockStorage{})

	_, err := svc.CreateSubmission(context.Background(), CreateSubmissionRequest{AssignmentID: 8, StudentID: 5}, SubmissionUpload{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceCreateSubmissionMissingAssignment(t *testing.T) {
	svc := newAssignmentService(&mockAssignmentRepo{}, &mockCourseFinder{}, &mockStorage{})

	upload := SubmissionUpload{ContentType: "application/pdf", Reader: bytes.NewReader([]byte("%PDF-1.4"))}
	_, err := svc.CreateSubmission(context.Background(), CreateSubmissionRequest{AssignmentID: 99, StudentID: 5}, upload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceSubmissionFilePath(t *testing.T) {
	repo := &mockAssignmentRepo{path: "/uploads/abc123.pdf"}
	svc := newAssignmentService(repo, &mockCourseFinder{}, &mockStorage{})

	path, err := svc.SubmissionFilePath(context.Background(), "abc123.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc123.pdf", path)

	repo.path = ""
	_, err = svc.SubmissionFilePath(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
