package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

// AssignmentRepository handles persistence of assignments and submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// AssignmentUpdate carries the recognized mutable fields of an assignment;
// nil fields are left untouched.
type AssignmentUpdate struct {
	Title    *string
	Points   *int
	DueDate  *time.Time
	CourseID *int64
}

// FindByID returns an assignment by its id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	const query = `SELECT id, title, points, due_date, course_id FROM assignments WHERE id = $1 LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// ListByCourse returns the assignments belonging to a course.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	const query = `SELECT id, title, points, due_date, course_id FROM assignments WHERE course_id = $1 ORDER BY id`
	assignments := []models.Assignment{}
	if err := r.db.SelectContext(ctx, &assignments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return assignments, nil
}

// Create inserts a new assignment and fills in the generated id.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	const query = `INSERT INTO assignments (title, points, due_date, course_id)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &assignment.ID, query,
		assignment.Title, assignment.Points, assignment.DueDate, assignment.CourseID); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update applies a partial update and reports whether a row was affected.
func (r *AssignmentRepository) Update(ctx context.Context, id int64, update AssignmentUpdate) (bool, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Points != nil {
		add("points", *update.Points)
	}
	if update.DueDate != nil {
		add("due_date", *update.DueDate)
	}
	if update.CourseID != nil {
		add("course_id", *update.CourseID)
	}
	if len(sets) == 0 {
		return false, nil
	}

	query := fmt.Sprintf("UPDATE assignments SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)+1)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update assignment rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an assignment and reports whether a row was affected.
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete assignment rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListSubmissions returns submissions for an assignment, optionally narrowed
// to a single student.
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64, studentID *int64) ([]models.Submission, error) {
	query := `SELECT id, assignment_id, student_id, submission_date, file_name, file_path FROM submissions WHERE assignment_id = $1`
	args := []interface{}{assignmentID}
	if studentID != nil {
		query += " AND student_id = $2"
		args = append(args, *studentID)
	}
	query += " ORDER BY id"

	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// CreateSubmission inserts a new submission row and fills in the generated id.
func (r *AssignmentRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	const query = `INSERT INTO submissions (assignment_id, student_id, submission_date, file_name, file_path)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &submission.ID, query,
		submission.AssignmentID, submission.StudentID, submission.SubmissionDate, submission.FileName, submission.FilePath); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindSubmissionPath returns the stored file path for a generated filename.
func (r *AssignmentRepository) FindSubmissionPath(ctx context.Context, filename string) (string, error) {
	const query = `SELECT file_path FROM submissions WHERE file_name = $1 LIMIT 1`
	var path string
	if err := r.db.GetContext(ctx, &path, query, filename); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find submission path: %w", err)
	}
	return path, nil
}
