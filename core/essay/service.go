package essay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/analysis"
	"github.com/allii5/TextInsight/core/school"
)

// cohortThreshold is the number of other scored students an assignment needs
// before cohort-comparative feedback is generated.
const cohortThreshold = 5

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		// GetSubmissionsByStudentAndAssignment returns the student's
		// submissions for the assignment ordered by submission count ascending.
		GetSubmissionsByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]Submission, error)
		GetSubmissionsByStudentID(ctx context.Context, studentID string) ([]Submission, error)
		UpdateSubmissionStatus(ctx context.Context, id string, status Status) error

		// SaveFeedback upserts, keyed on SubmissionID.
		SaveFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetFeedbackBySubmissionID(ctx context.Context, submissionID string) (Feedback, error)
		// GetFeedbacksByStudentAndAssignment is ordered by submission count ascending.
		GetFeedbacksByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]Feedback, error)
		// LatestCohortFeedbacks returns, per distinct other student with a
		// scored submission for the assignment, that student's most recent Feedback.
		LatestCohortFeedbacks(ctx context.Context, assignmentID, excludeStudentID string) ([]Feedback, error)
		FeedbacksWithoutCohortComparison(ctx context.Context, assignmentID string) ([]Feedback, error)

		// SaveProgress upserts, keyed on (StudentID, AssignmentID).
		SaveProgress(ctx context.Context, p Progress) (Progress, error)
		GetProgressByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (Progress, error)
	}

	// Notifier delivers a message to a student. Fire-and-forget: failures are
	// logged by the implementation, never propagated.
	Notifier interface {
		Notify(studentID, message string)
	}

	Service struct {
		repo     Repository
		school   school.Repository
		scorer   *analysis.Scorer
		renderer analysis.Renderer
		notifier Notifier
		logger   core.Logger

		nowFunc    func() time.Time // mockable
		admissions keyedMutex
	}
)

func NewService(
	repo Repository,
	schoolRepo school.Repository,
	scorer *analysis.Scorer,
	renderer analysis.Renderer,
	notifier Notifier,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		school:   schoolRepo,
		scorer:   scorer,
		renderer: renderer,
		notifier: notifier,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the service clock. Intended for tests.
func (svc *Service) SetNowFunc(now func() time.Time) { svc.nowFunc = now }

// Submit runs the admission gate for one submission request and, when
// admitted, the full analysis pipeline. The check-then-act sequence is
// serialized per (student, assignment) key so two concurrent requests cannot
// both be admitted as the second submission.
func (svc *Service) Submit(ctx context.Context, studentID string, ns NewSubmission) (Feedback, error) {
	unlock := svc.admissions.lock(studentID + "|" + ns.AssignmentID)
	defer unlock()

	assignment, err := svc.fetchAssignment(ctx, ns.AssignmentID)
	if err != nil {
		return Feedback{}, err
	}
	if assignment.DueDatePassed(svc.nowFunc()) {
		return Feedback{}, ErrDueDatePassed
	}
	enrolled, err := svc.school.IsEnrolled(ctx, assignment.ClassID, studentID)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Feedback{}, ErrUserNotInClass
	}

	count, err := svc.admissionCount(ctx, studentID, assignment.ID)
	if err != nil {
		return Feedback{}, err
	}

	sub := Submission{
		ID:           uuid.New().String(),
		Title:        assignment.Title,
		StudentID:    studentID,
		AssignmentID: assignment.ID,
		Introduction: ns.Introduction,
		Middle:       ns.Middle,
		Conclusion:   ns.Conclusion,
		Count:        count,
		Status:       StatusPending,
		SubmittedAt:  svc.nowFunc().UTC(),
	}
	if sub, err = svc.repo.CreateSubmission(ctx, sub); err != nil {
		return Feedback{}, errors.Wrap(err, "creating submission")
	}

	fb, err := svc.Analyze(ctx, sub, assignment)
	if err != nil {
		// submission stays pending; Reprocess can retry it idempotently
		svc.logger.Error("essay analysis failed", err, map[string]interface{}{"submission_id": sub.ID})
		return Feedback{}, err
	}

	svc.runComparisons(ctx, sub, assignment, &fb)
	return fb, nil
}

// fetchAssignment resolves an assignment for the gate. A missing or classless
// assignment is the business-rule rejection; any other failure propagates as-is.
func (svc *Service) fetchAssignment(ctx context.Context, id string) (school.Assignment, error) {
	assignment, err := svc.school.GetAssignmentByID(ctx, id)
	if err != nil {
		if err == school.ErrAssignmentNotFound {
			return school.Assignment{}, ErrAssignmentNotFound
		}
		return school.Assignment{}, errors.Wrap(err, "fetching assignment")
	}
	if assignment.ClassID == "" {
		return school.Assignment{}, ErrAssignmentNotFound
	}
	return assignment, nil
}

// admissionCount applies rule 4 of the gate: returns the submission count the
// new submission is admitted with, or the admission error.
func (svc *Service) admissionCount(ctx context.Context, studentID, assignmentID string) (int, error) {
	priors, err := svc.repo.GetSubmissionsByStudentAndAssignment(ctx, studentID, assignmentID)
	if err != nil {
		return 0, errors.Wrap(err, "fetching prior submissions")
	}
	if len(priors) == 0 {
		return 1, nil
	}

	latest := priors[len(priors)-1]
	if latest.Count >= MaxSubmissions {
		return 0, ErrSubmissionLimitExceeded
	}

	fb, err := svc.repo.GetFeedbackBySubmissionID(ctx, latest.ID)
	if err != nil && err != ErrFeedbackNotFound {
		return 0, errors.Wrap(err, "fetching prior feedback")
	}
	if err == ErrFeedbackNotFound || !fb.HasCohortComparison() {
		return 0, ErrFeedbackNotAvailable
	}

	if err := svc.repo.UpdateSubmissionStatus(ctx, latest.ID, StatusResubmitted); err != nil {
		return 0, errors.Wrap(err, "marking prior submission resubmitted")
	}
	return latest.Count + 1, nil
}

// Analyze runs the per-submission pipeline: section and combined keyword
// extraction, the five quality metrics and the intra-essay review run
// concurrently behind one join barrier; no partial results are merged. The
// result upserts by submission ID, so reprocessing is idempotent.
func (svc *Service) Analyze(ctx context.Context, sub Submission, assignment school.Assignment) (Feedback, error) {
	var (
		keywords analysis.KeywordSet
		scores   analysis.Scores
		intra    string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keywords, err = analysis.ExtractSections(gctx, sub.Introduction, sub.Middle, sub.Conclusion)
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = svc.scorer.ScoreAll(gctx, sub.FullText(), assignment.ExpectedKeywords)
		return err
	})
	g.Go(func() error {
		var err error
		intra, err = svc.scorer.IntraFeedback(gctx, sub.Introduction, sub.Middle, sub.Conclusion)
		return err
	})
	if err := g.Wait(); err != nil {
		return Feedback{}, errors.Wrap(err, "analysis stage")
	}

	visuals, err := svc.renderVisuals(ctx, sub, keywords)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "rendering visuals")
	}

	fb := Feedback{
		ID:            uuid.New().String(),
		SubmissionID:  sub.ID,
		StudentID:     sub.StudentID,
		AssignmentID:  sub.AssignmentID,
		Keywords:      keywords,
		Scores:        scores,
		OverallScore:  scores.Overall(),
		IntraFeedback: intra,
		Visuals:       visuals,
		CreatedAt:     svc.nowFunc().UTC(),
	}
	if fb, err = svc.repo.SaveFeedback(ctx, fb); err != nil {
		return Feedback{}, errors.Wrap(err, "saving feedback")
	}
	if err = svc.repo.UpdateSubmissionStatus(ctx, sub.ID, StatusReviewed); err != nil {
		return Feedback{}, errors.Wrap(err, "updating submission status")
	}

	svc.notifier.Notify(sub.StudentID, notification(sub.Title, "Essay feedback", svc.nowFunc()))
	return fb, nil
}

// renderVisuals requests the three per-submission artifacts from the external
// renderer; the renders are independent and run concurrently.
func (svc *Service) renderVisuals(ctx context.Context, sub Submission, ks analysis.KeywordSet) (VisualRefs, error) {
	var refs VisualRefs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		edges := analysis.KeywordGraphEdges(sub.FullText(), ks.Combined)
		ref, err := svc.renderer.Render(gctx, analysis.VizKeywordGraph, edges)
		refs.KeywordGraph = ref
		return err
	})
	g.Go(func() error {
		ref, err := svc.renderer.Render(gctx, analysis.VizVenn, map[string][]string{
			"introduction": ks.Introduction,
			"middle":       ks.Middle,
			"conclusion":   ks.Conclusion,
		})
		refs.VennDiagram = ref
		return err
	})
	g.Go(func() error {
		ref, err := svc.renderer.Render(gctx, analysis.VizWordCloud, ks.Combined)
		refs.WordCloud = ref
		return err
	})
	if err := g.Wait(); err != nil {
		return VisualRefs{}, err
	}
	return refs, nil
}

// runComparisons applies the post-analysis triggers: cohort comparison once
// enough other students are scored, the retroactive sweep for students the
// threshold left behind, and the progress comparison when both of a student's
// submissions are scored. Best-effort: failures are logged, the admitted
// submission is already reviewed.
func (svc *Service) runComparisons(ctx context.Context, sub Submission, assignment school.Assignment, fb *Feedback) {
	cohort, err := svc.repo.LatestCohortFeedbacks(ctx, assignment.ID, sub.StudentID)
	if err != nil {
		svc.logger.Error("fetching cohort feedbacks", err)
		return
	}
	if len(cohort) <= cohortThreshold {
		return
	}

	if !fb.HasCohortComparison() {
		if err := svc.compareWithCohort(ctx, fb, cohort, sub.Title); err != nil {
			svc.logger.Error("cohort comparison failed", err, map[string]interface{}{"submission_id": sub.ID})
		}
	}

	// the threshold may have just been crossed: sweep every already-scored,
	// not-yet-compared student so nobody is left without feedback
	uncompared, err := svc.repo.FeedbacksWithoutCohortComparison(ctx, assignment.ID)
	if err != nil {
		svc.logger.Error("fetching uncompared feedbacks", err)
		return
	}
	for i := range uncompared {
		other := &uncompared[i]
		otherCohort, err := svc.repo.LatestCohortFeedbacks(ctx, assignment.ID, other.StudentID)
		if err != nil || len(otherCohort) <= cohortThreshold {
			continue
		}
		if err := svc.compareWithCohort(ctx, other, otherCohort, sub.Title); err != nil {
			svc.logger.Error("retroactive cohort comparison failed", err, map[string]interface{}{"submission_id": other.SubmissionID})
			continue
		}
		svc.maybeCompareProgress(ctx, other.StudentID, assignment.ID, sub.Title)
	}

	svc.maybeCompareProgress(ctx, sub.StudentID, assignment.ID, sub.Title)
}

func (svc *Service) compareWithCohort(ctx context.Context, fb *Feedback, cohort []Feedback, title string) error {
	refs := make([]analysis.Scores, 0, len(cohort))
	for _, c := range cohort {
		refs = append(refs, c.Scores)
	}
	comp, err := analysis.CompareWithCohort(ctx, svc.renderer, fb.Scores, refs)
	if err != nil {
		return err
	}
	fb.CohortComparison = &comp
	if _, err := svc.repo.SaveFeedback(ctx, *fb); err != nil {
		return err
	}
	svc.notifier.Notify(fb.StudentID, notification(title, "Class comparison feedback", svc.nowFunc()))
	return nil
}

// maybeCompareProgress runs the progress comparison once a student has two
// scored submissions with cohort feedback on the first. Upserting makes
// recomputation a deterministic overwrite.
func (svc *Service) maybeCompareProgress(ctx context.Context, studentID, assignmentID, title string) {
	fbs, err := svc.repo.GetFeedbacksByStudentAndAssignment(ctx, studentID, assignmentID)
	if err != nil {
		svc.logger.Error("fetching student feedbacks", err)
		return
	}
	if len(fbs) != MaxSubmissions || !fbs[0].HasCohortComparison() {
		return
	}

	comp, err := analysis.CompareProgress(ctx, svc.renderer, fbs[0].Scores, fbs[1].Scores)
	if err != nil {
		svc.logger.Error("progress comparison failed", err, map[string]interface{}{"student_id": studentID})
		return
	}
	p := Progress{
		ID:                 uuid.New().String(),
		StudentID:          studentID,
		AssignmentID:       assignmentID,
		FirstSubmissionID:  fbs[0].SubmissionID,
		SecondSubmissionID: fbs[1].SubmissionID,
		Comparison:         comp,
		CreatedAt:          svc.nowFunc().UTC(),
	}
	if _, err := svc.repo.SaveProgress(ctx, p); err != nil {
		svc.logger.Error("saving progress comparison", err)
		return
	}
	svc.notifier.Notify(studentID, notification(title, "Progress analysis", svc.nowFunc()))
}

// Reprocess re-runs analysis for a submission left pending by an earlier
// failure. Safe to call repeatedly.
func (svc *Service) Reprocess(ctx context.Context, submissionID string) (Feedback, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Feedback{}, err
	}
	assignment, err := svc.fetchAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return Feedback{}, err
	}
	fb, err := svc.Analyze(ctx, sub, assignment)
	if err != nil {
		return Feedback{}, err
	}
	svc.runComparisons(ctx, sub, assignment, &fb)
	return fb, nil
}

// PendingAssignments lists the assignments the student can still submit for:
// in one of their classes, due date not passed, fewer than two submissions.
func (svc *Service) PendingAssignments(ctx context.Context, studentID string) ([]PendingAssignment, error) {
	classIDs, err := svc.school.GetClassIDsByStudentID(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "fetching classes")
	}
	if len(classIDs) == 0 {
		return nil, nil
	}
	assignments, err := svc.school.GetAssignmentsByClassIDs(ctx, classIDs)
	if err != nil {
		return nil, errors.Wrap(err, "fetching assignments")
	}

	now := svc.nowFunc()
	var pending []PendingAssignment
	for _, a := range assignments {
		if a.DueDatePassed(now) {
			continue
		}
		subs, err := svc.repo.GetSubmissionsByStudentAndAssignment(ctx, studentID, a.ID)
		if err != nil {
			return nil, errors.Wrap(err, "fetching submissions")
		}
		if len(subs) >= MaxSubmissions {
			continue
		}
		pa := PendingAssignment{
			AssignmentID: a.ID,
			Title:        a.Title,
			ClassID:      a.ClassID,
			DueDate:      a.DueDate,
			Count:        len(subs),
		}
		if len(subs) > 0 {
			pa.LastSubmission = subs[len(subs)-1].SubmittedAt
		}
		pending = append(pending, pa)
	}
	return pending, nil
}

func (svc *Service) SubmissionHistory(ctx context.Context, studentID string) ([]Submission, error) {
	return svc.repo.GetSubmissionsByStudentID(ctx, studentID)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

// FeedbackForSubmission returns the feedback for one of the student's own
// submissions.
func (svc *Service) FeedbackForSubmission(ctx context.Context, studentID, submissionID string) (Feedback, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Feedback{}, err
	}
	if sub.StudentID != studentID {
		return Feedback{}, ErrNotFound
	}
	return svc.repo.GetFeedbackBySubmissionID(ctx, submissionID)
}

func (svc *Service) ProgressForAssignment(ctx context.Context, studentID, assignmentID string) (Progress, error) {
	return svc.repo.GetProgressByStudentAndAssignment(ctx, studentID, assignmentID)
}

func notification(title, kind string, at time.Time) string {
	return fmt.Sprintf("%s has been successfully generated for %s at %s.", kind, title, at.UTC().Format("2006-01-02 15:04:05"))
}

// keyedMutex serializes admissions per (student, assignment) key. Entries are
// reference-counted and removed once released and uncontended, so the map only
// holds keys with in-flight admissions.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (km *keyedMutex) lock(key string) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*keyedLock)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
