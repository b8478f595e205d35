package school

import "time"

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ClassID     string    `json:"class_id"`
	// ExpectedKeywords is curated upstream; size is validated there (25-30 terms).
	ExpectedKeywords []string  `json:"expected_keywords"`
	DueDate          time.Time `json:"due_date"` // date precision, UTC
	CreatedAt        time.Time `json:"created_at"`
}

// DueDatePassed reports whether submissions for the assignment are closed at `now`.
func (a Assignment) DueDatePassed(now time.Time) bool {
	return a.DueDate.Before(truncateToDay(now))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewAssignment is the payload for creating an Assignment.
type NewAssignment struct {
	Title            string    `json:"title" validate:"required"`
	Description      string    `json:"description" validate:"required"`
	ClassID          string    `json:"class_id" validate:"required"`
	ExpectedKeywords []string  `json:"expected_keywords" validate:"required,min=25,max=30"`
	DueDate          time.Time `json:"due_date" validate:"required"`
}
