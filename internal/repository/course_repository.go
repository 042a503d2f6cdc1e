package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

// CourseRepository handles persistence of courses and their enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// CourseUpdate carries the recognized mutable fields of a course; nil fields
// are left untouched.
type CourseUpdate struct {
	SubjectCode  *string
	CourseNumber *string
	CourseTitle  *string
	Term         *string
	InstructorID *int64
}

func courseFilterClause(filter models.CourseFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject_code = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Number != "" {
		conditions = append(conditions, fmt.Sprintf("course_number = $%d", len(args)+1))
		args = append(args, filter.Number)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	return clause, args
}

// Count returns the number of courses matching the filter.
func (r *CourseRepository) Count(ctx context.Context, filter models.CourseFilter) (int, error) {
	clause, args := courseFilterClause(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+clause, args...); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// List returns one page of courses matching the filter.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, limit, offset int) ([]models.Course, error) {
	clause, args := courseFilterClause(filter)
	query := fmt.Sprintf("SELECT id, subject_code, course_number, course_title, term, instructor_id FROM courses%s ORDER BY id LIMIT %d OFFSET %d", clause, limit, offset)

	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by its id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, subject_code, course_number, course_title, term, instructor_id FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// Create inserts a new course and fills in the generated id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (subject_code, course_number, course_title, term, instructor_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &course.ID, query,
		course.SubjectCode, course.CourseNumber, course.CourseTitle, course.Term, course.InstructorID); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update applies a partial update and reports whether a row was affected.
func (r *CourseRepository) Update(ctx context.Context, id int64, update CourseUpdate) (bool, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	if update.SubjectCode != nil {
		add("subject_code", *update.SubjectCode)
	}
	if update.CourseNumber != nil {
		add("course_number", *update.CourseNumber)
	}
	if update.CourseTitle != nil {
		add("course_title", *update.CourseTitle)
	}
	if update.Term != nil {
		add("term", *update.Term)
	}
	if update.InstructorID != nil {
		add("instructor_id", *update.InstructorID)
	}
	if len(sets) == 0 {
		return false, nil
	}

	query := fmt.Sprintf("UPDATE courses SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args)+1)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update course rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a course and reports whether a row was affected.
func (r *CourseRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete course rows affected: %w", err)
	}
	return affected > 0, nil
}

// StudentIDs returns the ids of students enrolled in the course.
func (r *CourseRepository) StudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT student_id FROM enrollments WHERE course_id = $1 ORDER BY student_id`
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return ids, nil
}

// AssignmentIDs returns the ids of the course's assignments.
func (r *CourseRepository) AssignmentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT id FROM assignments WHERE course_id = $1 ORDER BY id`
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignment ids: %w", err)
	}
	return ids, nil
}

// Roster returns id, name and email for every student enrolled in the course.
func (r *CourseRepository) Roster(ctx context.Context, courseID int64) ([]models.RosterRow, error) {
	const query = `SELECT u.id, u.name, u.email
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY u.id`
	rows := []models.RosterRow{}
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("load course roster: %w", err)
	}
	return rows, nil
}

// UpdateEnrollment applies the add and remove lists atomically. Partial
// application is not possible: either both lists land or neither does.
func (r *CourseRepository) UpdateEnrollment(ctx context.Context, courseID int64, add, remove []int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(add) > 0 {
		const insertQuery = `INSERT INTO enrollments (student_id, course_id)
            SELECT unnest($1::bigint[]), $2
            ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, insertQuery, pq.Array(add), courseID); err != nil {
			return fmt.Errorf("add enrollments: %w", err)
		}
	}

	if len(remove) > 0 {
		const deleteQuery = `DELETE FROM enrollments WHERE course_id = $1 AND student_id = ANY($2)`
		if _, err = tx.ExecContext(ctx, deleteQuery, courseID, pq.Array(remove)); err != nil {
			return fmt.Errorf("remove enrollments: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment update: %w", err)
	}
	return nil
}
