package models

// Course represents a single course offering in a given term.
type Course struct {
	ID           int64  `db:"id" json:"id"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	CourseNumber string `db:"course_number" json:"course_number"`
	CourseTitle  string `db:"course_title" json:"course_title"`
	Term         string `db:"term" json:"term"`
	InstructorID int64  `db:"instructor_id" json:"instructor_id"`
}

// CourseDetail enriches a course with enrolled student ids and assignment ids.
type CourseDetail struct {
	Course
	Students    []int64 `json:"students"`
	Assignments []int64 `json:"assignments"`
}

// CourseFilter captures the optional query parameters of the course listing.
type CourseFilter struct {
	Subject string
	Number  string
	Term    string
	Page    int
}

// RosterRow is one enrolled student in a course roster export.
type RosterRow struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}
