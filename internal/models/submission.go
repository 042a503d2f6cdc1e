package models

import "time"

// Submission is a student's uploaded file against an assignment. Rows are
// immutable once created. The storage path stays server-side.
type Submission struct {
	ID             int64     `db:"id" json:"id"`
	AssignmentID   int64     `db:"assignment_id" json:"assignment_id"`
	StudentID      int64     `db:"student_id" json:"student_id"`
	SubmissionDate time.Time `db:"submission_date" json:"submission_date"`
	FileName       string    `db:"file_name" json:"file_name"`
	FilePath       string    `db:"file_path" json:"-"`
}

// SubmissionInfo is the list-response shape with a constructed download URL.
type SubmissionInfo struct {
	ID           int64     `json:"id"`
	Date         time.Time `json:"date"`
	FileURL      string    `json:"file_url"`
	AssignmentID int64     `json:"assignment_id"`
	StudentID    int64     `json:"student_id"`
}
