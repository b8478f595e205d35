package inmemdb

import (
	"sync"

	"github.com/allii5/TextInsight/core/essay"
	"github.com/allii5/TextInsight/core/school"
	"github.com/allii5/TextInsight/core/user"
)

// DB is a mutex-protected in-memory store. It backs the dev server in debug
// mode and the service tests.
type DB struct {
	user       *userTable
	class      *classTable
	enrollment *enrollmentTable
	assignment *assignmentTable
	submission *submissionTable
	feedback   *feedbackTable
	progress   *progressTable
}

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		class:      &classTable{table: make(map[string]*school.Class)},
		enrollment: &enrollmentTable{table: make(map[string][]string)},
		assignment: &assignmentTable{table: make(map[string]*school.Assignment)},
		submission: &submissionTable{table: make(map[string]*essay.Submission)},
		feedback:   &feedbackTable{table: make(map[string]*essay.Feedback)},
		progress:   &progressTable{table: make(map[string]*essay.Progress)},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type classTable struct {
	mutex sync.RWMutex
	table map[string]*school.Class
}

// enrollmentTable maps classID to enrolled studentIDs.
type enrollmentTable struct {
	mutex sync.RWMutex
	table map[string][]string
}

type assignmentTable struct {
	mutex sync.RWMutex
	table map[string]*school.Assignment
}

type submissionTable struct {
	mutex sync.RWMutex
	table map[string]*essay.Submission
}

// feedbackTable is keyed on SubmissionID.
type feedbackTable struct {
	mutex sync.RWMutex
	table map[string]*essay.Feedback
}

// progressTable is keyed on studentID + "|" + assignmentID.
type progressTable struct {
	mutex sync.RWMutex
	table map[string]*essay.Progress
}
