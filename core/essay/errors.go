package essay

import "errors"

// Admission errors. All are expected, user-facing business-rule violations;
// they propagate to the caller verbatim and are never swallowed.
var (
	ErrAssignmentNotFound      = errors.New("assignment not found or does not belong to a class")
	ErrDueDatePassed           = errors.New("the assignment's due date has passed; submissions are no longer allowed")
	ErrUserNotInClass          = errors.New("user is not part of the class")
	ErrFeedbackNotAvailable    = errors.New("comparative feedback not generated yet; cannot submit again")
	ErrSubmissionLimitExceeded = errors.New("an essay cannot be submitted more than two times")
)

var (
	ErrNotFound         = errors.New("submission not found")
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrProgressNotFound = errors.New("progress comparison not found")
)
