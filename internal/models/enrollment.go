package models

// EnrollmentUpdate is the bulk add/remove payload for a course's student
// list. Both lists apply in a single transaction.
type EnrollmentUpdate struct {
	Add    []int64 `json:"add"`
	Remove []int64 `json:"remove"`
}
