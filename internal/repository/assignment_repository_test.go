package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

func TestAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	due := time.Date(2026, 6, 14, 17, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments (title, points, due_date, course_id)")).
		WithArgs("Final Project", 100, due, int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	assignment := &models.Assignment{Title: "Final Project", Points: 100, DueDate: due, CourseID: 21}
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.Equal(t, int64(8), assignment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	due := time.Date(2026, 6, 14, 17, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "title", "points", "due_date", "course_id"}).
		AddRow(int64(8), "Final Project", 100, due, int64(21))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, points, due_date, course_id FROM assignments WHERE course_id = $1 ORDER BY id")).
		WithArgs(int64(21)).
		WillReturnRows(rows)

	assignments, err := repo.ListByCourse(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Final Project", assignments[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListSubmissionsAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	when := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "submission_date", "file_name", "file_path"}).
		AddRow(int64(1), int64(8), int64(5), when, "a1.pdf", "/uploads/a1.pdf").
		AddRow(int64(2), int64(8), int64(6), when, "a2.pdf", "/uploads/a2.pdf")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, assignment_id, student_id, submission_date, file_name, file_path FROM submissions WHERE assignment_id = $1 ORDER BY id")).
		WithArgs(int64(8)).
		WillReturnRows(rows)

	submissions, err := repo.ListSubmissions(context.Background(), 8, nil)
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListSubmissionsByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	when := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "assignment_id", "student_id", "submission_date", "file_name", "file_path"}).
		AddRow(int64(1), int64(8), int64(5), when, "a1.pdf", "/uploads/a1.pdf")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, assignment_id, student_id, submission_date, file_name, file_path FROM submissions WHERE assignment_id = $1 AND student_id = $2 ORDER BY id")).
		WithArgs(int64(8), int64(5)).
		WillReturnRows(rows)

	student := int64(5)
	submissions, err := repo.ListSubmissions(context.Background(), 8, &student)
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	assert.Equal(t, int64(5), submissions[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindSubmissionPath(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM submissions WHERE file_name = $1 LIMIT 1")).
		WithArgs("a1.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("/uploads/a1.pdf"))

	path, err := repo.FindSubmissionPath(context.Background(), "a1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a1.pdf", path)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindSubmissionPathMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM submissions WHERE file_name = $1 LIMIT 1")).
		WithArgs("missing.pdf").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindSubmissionPath(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryUpdatePartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments SET points = $1 WHERE id = $2")).
		WithArgs(50, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	points := 50
	updated, err := repo.Update(context.Background(), 8, AssignmentUpdate{Points: &points})
	require.NoError(t, err)
	assert.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}
