package inmemdb

import (
	"context"
	"sort"

	"github.com/allii5/TextInsight/core/essay"
)

type essayRepository struct {
	submissions *submissionTable
	feedbacks   *feedbackTable
	progresses  *progressTable
}

var _ essay.Repository = (*essayRepository)(nil)

func NewEssayRepository(db *DB) essay.Repository {
	return &essayRepository{
		submissions: db.submission,
		feedbacks:   db.feedback,
		progresses:  db.progress,
	}
}

func (repo *essayRepository) CreateSubmission(ctx context.Context, sub essay.Submission) (essay.Submission, error) {
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()

	repo.submissions.table[sub.ID] = &sub
	return sub, nil
}

func (repo *essayRepository) GetSubmissionByID(ctx context.Context, id string) (essay.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	if sub, ok := repo.submissions.table[id]; ok {
		return *sub, nil
	}
	return essay.Submission{}, essay.ErrNotFound
}

func (repo *essayRepository) GetSubmissionsByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]essay.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	subs := make([]essay.Submission, 0, essay.MaxSubmissions)
	for _, sub := range repo.submissions.table {
		if sub.StudentID == studentID && sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Count < subs[j].Count })
	return subs, nil
}

func (repo *essayRepository) GetSubmissionsByStudentID(ctx context.Context, studentID string) ([]essay.Submission, error) {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	subs := make([]essay.Submission, 0)
	for _, sub := range repo.submissions.table {
		if sub.StudentID == studentID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *essayRepository) UpdateSubmissionStatus(ctx context.Context, id string, status essay.Status) error {
	repo.submissions.mutex.Lock()
	defer repo.submissions.mutex.Unlock()

	sub, ok := repo.submissions.table[id]
	if !ok {
		return essay.ErrNotFound
	}
	sub.Status = status
	return nil
}

func (repo *essayRepository) SaveFeedback(ctx context.Context, fb essay.Feedback) (essay.Feedback, error) {
	repo.feedbacks.mutex.Lock()
	defer repo.feedbacks.mutex.Unlock()

	// upsert; an existing row keeps its identity
	if prev, ok := repo.feedbacks.table[fb.SubmissionID]; ok {
		fb.ID = prev.ID
		fb.CreatedAt = prev.CreatedAt
	}
	repo.feedbacks.table[fb.SubmissionID] = &fb
	return fb, nil
}

func (repo *essayRepository) GetFeedbackBySubmissionID(ctx context.Context, submissionID string) (essay.Feedback, error) {
	repo.feedbacks.mutex.RLock()
	defer repo.feedbacks.mutex.RUnlock()

	if fb, ok := repo.feedbacks.table[submissionID]; ok {
		return *fb, nil
	}
	return essay.Feedback{}, essay.ErrFeedbackNotFound
}

func (repo *essayRepository) GetFeedbacksByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]essay.Feedback, error) {
	repo.feedbacks.mutex.RLock()
	defer repo.feedbacks.mutex.RUnlock()

	fbs := make([]essay.Feedback, 0, essay.MaxSubmissions)
	for _, fb := range repo.feedbacks.table {
		if fb.StudentID == studentID && fb.AssignmentID == assignmentID {
			fbs = append(fbs, *fb)
		}
	}
	counts := repo.submissionCounts()
	sort.Slice(fbs, func(i, j int) bool { return counts[fbs[i].SubmissionID] < counts[fbs[j].SubmissionID] })
	return fbs, nil
}

func (repo *essayRepository) LatestCohortFeedbacks(ctx context.Context, assignmentID, excludeStudentID string) ([]essay.Feedback, error) {
	repo.feedbacks.mutex.RLock()
	defer repo.feedbacks.mutex.RUnlock()

	counts := repo.submissionCounts()
	latest := make(map[string]essay.Feedback) // per student
	for _, fb := range repo.feedbacks.table {
		if fb.AssignmentID != assignmentID || fb.StudentID == excludeStudentID {
			continue
		}
		if prev, ok := latest[fb.StudentID]; !ok || counts[fb.SubmissionID] > counts[prev.SubmissionID] {
			latest[fb.StudentID] = *fb
		}
	}

	fbs := make([]essay.Feedback, 0, len(latest))
	for _, fb := range latest {
		fbs = append(fbs, fb)
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].StudentID < fbs[j].StudentID })
	return fbs, nil
}

func (repo *essayRepository) FeedbacksWithoutCohortComparison(ctx context.Context, assignmentID string) ([]essay.Feedback, error) {
	repo.feedbacks.mutex.RLock()
	defer repo.feedbacks.mutex.RUnlock()

	fbs := make([]essay.Feedback, 0)
	for _, fb := range repo.feedbacks.table {
		if fb.AssignmentID == assignmentID && !fb.HasCohortComparison() {
			fbs = append(fbs, *fb)
		}
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].StudentID < fbs[j].StudentID })
	return fbs, nil
}

func (repo *essayRepository) SaveProgress(ctx context.Context, p essay.Progress) (essay.Progress, error) {
	repo.progresses.mutex.Lock()
	defer repo.progresses.mutex.Unlock()

	key := p.StudentID + "|" + p.AssignmentID
	if prev, ok := repo.progresses.table[key]; ok {
		p.ID = prev.ID
		p.CreatedAt = prev.CreatedAt
	}
	repo.progresses.table[key] = &p
	return p, nil
}

func (repo *essayRepository) GetProgressByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (essay.Progress, error) {
	repo.progresses.mutex.RLock()
	defer repo.progresses.mutex.RUnlock()

	if p, ok := repo.progresses.table[studentID+"|"+assignmentID]; ok {
		return *p, nil
	}
	return essay.Progress{}, essay.ErrProgressNotFound
}

func (repo *essayRepository) submissionCounts() map[string]int {
	repo.submissions.mutex.RLock()
	defer repo.submissions.mutex.RUnlock()

	counts := make(map[string]int, len(repo.submissions.table))
	for id, sub := range repo.submissions.table {
		counts[id] = sub.Count
	}
	return counts
}
