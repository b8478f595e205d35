package essay

import (
	"time"

	"github.com/allii5/TextInsight/core/analysis"
)

// Submission lifecycle states. Status transitions are owned by the gate and
// the orchestrator only.
type Status string

const (
	StatusPending     Status = "pending"
	StatusReviewed    Status = "reviewed"
	StatusResubmitted Status = "resubmitted"
)

// MaxSubmissions is the per-(student, assignment) submission limit.
const MaxSubmissions = 2

// Submission is one admitted essay. Content is immutable once created; a
// resubmission is a new Submission, the prior one only changes status.
type Submission struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StudentID    string    `json:"student_id"`
	AssignmentID string    `json:"assignment_id"`
	Introduction string    `json:"introduction"`
	Middle       string    `json:"middle"`
	Conclusion   string    `json:"conclusion"`
	Count        int       `json:"submission_count"` // 1 or 2
	Status       Status    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC
}

// FullText is the whole essay, sections joined in order.
func (s Submission) FullText() string {
	return s.Introduction + " " + s.Middle + " " + s.Conclusion
}

// VisualRefs holds the renderer references produced during analysis.
type VisualRefs struct {
	KeywordGraph string `json:"keyword_graph"`
	VennDiagram  string `json:"venn_diagram"`
	WordCloud    string `json:"wordcloud"`
}

// Feedback is the stored analysis outcome for one Submission; recomputing it
// for the same submission deterministically overwrites the previous row.
type Feedback struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	StudentID    string `json:"student_id"`
	AssignmentID string `json:"assignment_id"`

	Keywords      analysis.KeywordSet `json:"keywords"`
	Scores        analysis.Scores     `json:"scores"`
	OverallScore  int                 `json:"overall_score"`
	IntraFeedback string              `json:"intra_essay_feedback"`
	Visuals       VisualRefs          `json:"visuals"`

	// CohortComparison is set once the class has enough scored submissions.
	CohortComparison *analysis.Comparison `json:"cohort_comparison,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
}

// HasCohortComparison reports whether non-empty cohort-comparative feedback
// exists, the precondition a first submission must meet before resubmission.
func (f Feedback) HasCohortComparison() bool {
	return f.CohortComparison != nil && f.CohortComparison.Feedback != ""
}

// Progress is the stored comparison between a student's two submissions for
// one assignment. At most one row per (student, assignment).
type Progress struct {
	ID                 string              `json:"id"`
	StudentID          string              `json:"student_id"`
	AssignmentID       string              `json:"assignment_id"`
	FirstSubmissionID  string              `json:"first_submission_id"`
	SecondSubmissionID string              `json:"second_submission_id"`
	Comparison         analysis.Comparison `json:"comparison"`
	CreatedAt          time.Time           `json:"created_at"` // UTC
}

// PendingAssignment is a dashboard row: an assignment the student can still
// submit for.
type PendingAssignment struct {
	AssignmentID   string    `json:"assignment_id"`
	Title          string    `json:"assignment_name"`
	ClassID        string    `json:"class_id"`
	DueDate        time.Time `json:"due_date"`
	Count          int       `json:"submission_count"`
	LastSubmission time.Time `json:"last_submission,omitempty"`
}

// NewSubmission is the payload for submitting an essay.
type NewSubmission struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	Introduction string `json:"introduction" validate:"required"`
	Middle       string `json:"middle" validate:"required"`
	Conclusion   string `json:"conclusion" validate:"required"`
}
