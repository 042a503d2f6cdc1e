package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated id.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &user.ID, query, user.Name, user.Email, user.PasswordHash, user.Role); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, role FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, name, email, password_hash, role FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// EnrolledCourseIDs returns the ids of courses a student is enrolled in.
func (r *UserRepository) EnrolledCourseIDs(ctx context.Context, studentID int64) ([]int64, error) {
	const query = `SELECT course_id FROM enrollments WHERE student_id = $1 ORDER BY course_id`
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrolled course ids: %w", err)
	}
	return ids, nil
}

// TaughtCourses returns the courses an instructor teaches.
func (r *UserRepository) TaughtCourses(ctx context.Context, instructorID int64) ([]models.Course, error) {
	const query = `SELECT id, subject_code, course_number, course_title, term, instructor_id FROM courses WHERE instructor_id = $1 ORDER BY id`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("list taught courses: %w", err)
	}
	return courses, nil
}
