package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

func TestCourseRepositoryCountWithFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE subject_code = $1 AND term = $2")).
		WithArgs("CS", "sp26").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14))

	total, err := repo.Count(context.Background(), models.CourseFilter{Subject: "CS", Term: "sp26"})
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListPage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "subject_code", "course_number", "course_title", "term", "instructor_id"}).
		AddRow(int64(11), "CS", "493", "Cloud Application Development", "sp26", int64(3)).
		AddRow(int64(12), "CS", "492", "Mobile Development", "sp26", int64(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject_code, course_number, course_title, term, instructor_id FROM courses ORDER BY id LIMIT 10 OFFSET 10")).
		WillReturnRows(rows)

	courses, err := repo.List(context.Background(), models.CourseFilter{}, 10, 10)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, int64(11), courses[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses (subject_code, course_number, course_title, term, instructor_id)")).
		WithArgs("CS", "493", "Cloud Application Development", "sp26", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))

	course := &models.Course{SubjectCode: "CS", CourseNumber: "493", CourseTitle: "Cloud Application Development", Term: "sp26", InstructorID: 3}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, int64(21), course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdatePartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET course_title = $1, term = $2 WHERE id = $3")).
		WithArgs("New Title", "fa26", int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	title := "New Title"
	term := "fa26"
	updated, err := repo.Update(context.Background(), 21, CourseUpdate{CourseTitle: &title, Term: &term})
	require.NoError(t, err)
	assert.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateNoFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	updated, err := repo.Update(context.Background(), 21, CourseUpdate{})
	require.NoError(t, err)
	assert.False(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email"}).
		AddRow(int64(5), "Jane Doe", "jane@example.com").
		AddRow(int64(6), "John Roe", "john@example.com")
	mock.ExpectQuery("SELECT u.id, u.name, u.email").
		WithArgs(int64(21)).
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "jane@example.com", roster[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateEnrollmentCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(pq.Array([]int64{5, 6}), int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE course_id = $1 AND student_id = ANY($2)")).
		WithArgs(int64(21), pq.Array([]int64{7})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateEnrollment(context.Background(), 21, []int64{5, 6}, []int64{7})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateEnrollmentRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(pq.Array([]int64{5}), int64(21)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.UpdateEnrollment(context.Background(), 21, []int64{5}, []int64{7})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
