package models

import "time"

// Assignment represents a graded task belonging to a course.
type Assignment struct {
	ID       int64     `db:"id" json:"id"`
	Title    string    `db:"title" json:"title"`
	Points   int       `db:"points" json:"points"`
	DueDate  time.Time `db:"due_date" json:"due_date"`
	CourseID int64     `db:"course_id" json:"course_id"`
}
