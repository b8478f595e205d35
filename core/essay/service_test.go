package essay_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/analysis"
	"github.com/allii5/TextInsight/core/essay"
	"github.com/allii5/TextInsight/core/school"
	embedsvc "github.com/allii5/TextInsight/services/embedder"
	notifsvc "github.com/allii5/TextInsight/services/notifier"
	rendersvc "github.com/allii5/TextInsight/services/renderer"
	inmemdb "github.com/allii5/TextInsight/storage/database/inmem"
)

type fixture struct {
	svc        *essay.Service
	essayRepo  essay.Repository
	schoolRepo school.Repository
	schoolSvc  *school.Service
	notifier   *notifsvc.RecordingNotifier
	assignment school.Assignment
	class      school.Class
}

var testKeywords = func() []string {
	kws := make([]string, 25)
	for i := range kws {
		kws[i] = fmt.Sprintf("keyword%d", i)
	}
	kws[0] = "climate"
	kws[1] = "agriculture"
	return kws
}()

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.NewDB()
	essayRepo := inmemdb.NewEssayRepository(db)
	schoolRepo := inmemdb.NewSchoolRepository(db)
	notifier := &notifsvc.RecordingNotifier{}

	svc := essay.NewService(
		essayRepo,
		schoolRepo,
		analysis.NewScorer(embedsvc.NewDummyEmbedder()),
		rendersvc.NewDummyRenderer(),
		notifier,
		core.NewStdLogger(),
	)

	schoolSvc := school.NewService(schoolRepo)
	ctx := context.Background()

	cls, err := schoolSvc.CreateClass(ctx, "Essay Writing", "ew-101", "teacher-1")
	if err != nil {
		t.Fatalf("creating class: %v", err)
	}
	a, err := schoolSvc.CreateAssignment(ctx, "teacher-1", school.NewAssignment{
		Title:            "Climate Essay",
		Description:      "Write about climate change.",
		ClassID:          cls.ID,
		ExpectedKeywords: testKeywords,
		DueDate:          time.Now().Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("creating assignment: %v", err)
	}

	return &fixture{
		svc:        svc,
		essayRepo:  essayRepo,
		schoolRepo: schoolRepo,
		schoolSvc:  schoolSvc,
		notifier:   notifier,
		assignment: a,
		class:      cls,
	}
}

func (f *fixture) enroll(t *testing.T, studentIDs ...string) {
	t.Helper()
	for _, id := range studentIDs {
		if err := f.schoolRepo.Enroll(context.Background(), f.class.ID, id); err != nil {
			t.Fatalf("enrolling %s: %v", id, err)
		}
	}
}

func (f *fixture) newSubmission(text string) essay.NewSubmission {
	return essay.NewSubmission{
		AssignmentID: f.assignment.ID,
		Introduction: "Climate change is a pressing issue. " + text,
		Middle:       "Agriculture adapts to new conditions. Farmers change their methods. " + text,
		Conclusion:   "In conclusion climate action matters. " + text,
	}
}

func TestService_Submit_firstSubmission(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	fb, err := f.svc.Submit(ctx, "student-1", f.newSubmission("Unique view."))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if fb.StudentID != "student-1" || fb.AssignmentID != f.assignment.ID {
		t.Errorf("feedback keys = (%s, %s)", fb.StudentID, fb.AssignmentID)
	}
	if len(fb.Keywords.Combined) == 0 {
		t.Error("expected combined keywords")
	}
	if fb.OverallScore < 0 || fb.OverallScore > 10 {
		t.Errorf("overall score = %d; want within [0,10]", fb.OverallScore)
	}
	if fb.IntraFeedback == "" {
		t.Error("expected intra-essay feedback")
	}
	if fb.Visuals.KeywordGraph == "" || fb.Visuals.VennDiagram == "" || fb.Visuals.WordCloud == "" {
		t.Errorf("missing visual refs: %+v", fb.Visuals)
	}
	if fb.HasCohortComparison() {
		t.Error("first lone submission should not have cohort comparison")
	}

	sub, err := f.svc.GetSubmission(ctx, fb.SubmissionID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if sub.Count != 1 {
		t.Errorf("submission count = %d; want 1", sub.Count)
	}
	if sub.Status != essay.StatusReviewed {
		t.Errorf("status = %q; want %q", sub.Status, essay.StatusReviewed)
	}

	if sent := f.notifier.Sent(); len(sent) != 1 || sent[0].StudentID != "student-1" {
		t.Errorf("notifications = %+v; want 1 for student-1", sent)
	}
}

func TestService_Submit_gateRejections(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	t.Run("unknown assignment", func(t *testing.T) {
		ns := f.newSubmission("x")
		ns.AssignmentID = "nope"
		if _, err := f.svc.Submit(ctx, "student-1", ns); err != essay.ErrAssignmentNotFound {
			t.Errorf("err = %v; want ErrAssignmentNotFound", err)
		}
	})

	t.Run("not enrolled", func(t *testing.T) {
		if _, err := f.svc.Submit(ctx, "outsider", f.newSubmission("x")); err != essay.ErrUserNotInClass {
			t.Errorf("err = %v; want ErrUserNotInClass", err)
		}
	})

	t.Run("due date passed", func(t *testing.T) {
		f.svc.SetNowFunc(func() time.Time { return f.assignment.DueDate.Add(48 * time.Hour) })
		defer f.svc.SetNowFunc(time.Now)
		if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("x")); err != essay.ErrDueDatePassed {
			t.Errorf("err = %v; want ErrDueDatePassed", err)
		}
	})

	t.Run("due date boundary, same day still open", func(t *testing.T) {
		f.svc.SetNowFunc(func() time.Time { return f.assignment.DueDate })
		defer f.svc.SetNowFunc(time.Now)
		if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("on the day")); err != nil {
			t.Errorf("err = %v; want admitted on due date", err)
		}
	})
}

func TestService_Submit_resubmitWithoutCohortFeedback(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("first")); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// the lone submission has no cohort-comparative feedback yet
	if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("second")); err != essay.ErrFeedbackNotAvailable {
		t.Errorf("err = %v; want ErrFeedbackNotAvailable", err)
	}
}

func TestService_Submit_cohortThresholdAndResubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	students := make([]string, 7)
	for i := range students {
		students[i] = fmt.Sprintf("student-%d", i+1)
	}
	f.enroll(t, students...)

	// six students submit; none crosses the >5 cohort threshold
	for _, sid := range students[:6] {
		fb, err := f.svc.Submit(ctx, sid, f.newSubmission("essay by "+sid))
		if err != nil {
			t.Fatalf("Submit(%s) error = %v", sid, err)
		}
		if fb.HasCohortComparison() {
			t.Errorf("%s: unexpected cohort comparison before threshold", sid)
		}
	}

	// the seventh sees a cohort of 6 other scored students
	fb7, err := f.svc.Submit(ctx, students[6], f.newSubmission("essay by seven"))
	if err != nil {
		t.Fatalf("Submit(seventh) error = %v", err)
	}
	if !fb7.HasCohortComparison() {
		t.Fatal("seventh student should get cohort comparison")
	}
	if fb7.CohortComparison.Kind != analysis.ReferenceClassAverage {
		t.Errorf("Kind = %q; want class_average", fb7.CohortComparison.Kind)
	}

	// the threshold crossing swept every earlier student retroactively
	for _, sid := range students[:6] {
		fbs, err := f.essayRepo.GetFeedbacksByStudentAndAssignment(ctx, sid, f.assignment.ID)
		if err != nil {
			t.Fatalf("fetching feedbacks for %s: %v", sid, err)
		}
		if len(fbs) != 1 || !fbs[0].HasCohortComparison() {
			t.Errorf("%s: retroactive cohort comparison missing", sid)
		}
	}

	// with cohort feedback in place, a second submission is admitted
	fb2, err := f.svc.Submit(ctx, students[0], f.newSubmission("revised essay"))
	if err != nil {
		t.Fatalf("resubmission error = %v", err)
	}
	sub2, err := f.svc.GetSubmission(ctx, fb2.SubmissionID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if sub2.Count != 2 {
		t.Errorf("resubmission count = %d; want 2", sub2.Count)
	}

	// the prior submission flips to resubmitted
	subs, err := f.essayRepo.GetSubmissionsByStudentAndAssignment(ctx, students[0], f.assignment.ID)
	if err != nil {
		t.Fatalf("fetching submissions: %v", err)
	}
	if len(subs) != 2 || subs[0].Status != essay.StatusResubmitted {
		t.Errorf("prior submission status = %+v; want resubmitted", subs[0].Status)
	}

	// both submissions scored with cohort feedback on the first: progress exists
	p, err := f.svc.ProgressForAssignment(ctx, students[0], f.assignment.ID)
	if err != nil {
		t.Fatalf("ProgressForAssignment() error = %v", err)
	}
	if p.FirstSubmissionID != subs[0].ID || p.SecondSubmissionID != subs[1].ID {
		t.Errorf("progress submissions = (%s, %s); want (%s, %s)",
			p.FirstSubmissionID, p.SecondSubmissionID, subs[0].ID, subs[1].ID)
	}
	if p.Comparison.Kind != analysis.ReferencePriorSubmission {
		t.Errorf("progress kind = %q; want prior_submission", p.Comparison.Kind)
	}

	// a third submission is over the limit
	if _, err := f.svc.Submit(ctx, students[0], f.newSubmission("third try")); err != essay.ErrSubmissionLimitExceeded {
		t.Errorf("err = %v; want ErrSubmissionLimitExceeded", err)
	}
}

func TestService_Reprocess(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	// a renderer that fails once leaves the submission pending
	flaky := &flakyRenderer{failures: 1}
	failing := essay.NewService(
		f.essayRepo,
		f.schoolRepo,
		analysis.NewScorer(embedsvc.NewDummyEmbedder()),
		flaky,
		f.notifier,
		core.NewStdLogger(),
	)

	if _, err := failing.Submit(ctx, "student-1", f.newSubmission("flaky run")); err == nil {
		t.Fatal("Submit() should fail when rendering fails")
	}

	subs, err := f.essayRepo.GetSubmissionsByStudentAndAssignment(ctx, "student-1", f.assignment.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("submissions = %v (err %v); want 1 pending", subs, err)
	}
	if subs[0].Status != essay.StatusPending {
		t.Fatalf("status = %q; want pending", subs[0].Status)
	}

	// retry succeeds and reviews the same submission
	fb, err := failing.Reprocess(ctx, subs[0].ID)
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if fb.SubmissionID != subs[0].ID {
		t.Errorf("feedback submission = %s; want %s", fb.SubmissionID, subs[0].ID)
	}
	sub, _ := f.svc.GetSubmission(ctx, subs[0].ID)
	if sub.Status != essay.StatusReviewed {
		t.Errorf("status = %q; want reviewed", sub.Status)
	}
}

func TestService_PendingAssignments(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	pending, err := f.svc.PendingAssignments(ctx, "student-1")
	if err != nil {
		t.Fatalf("PendingAssignments() error = %v", err)
	}
	if len(pending) != 1 || pending[0].AssignmentID != f.assignment.ID || pending[0].Count != 0 {
		t.Fatalf("pending = %+v; want the one open assignment", pending)
	}

	if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("one")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	pending, _ = f.svc.PendingAssignments(ctx, "student-1")
	if len(pending) != 1 || pending[0].Count != 1 {
		t.Fatalf("pending after submit = %+v; want count 1", pending)
	}
	if pending[0].LastSubmission.IsZero() {
		t.Error("expected last submission time")
	}

	// past due assignments disappear
	f.svc.SetNowFunc(func() time.Time { return f.assignment.DueDate.Add(48 * time.Hour) })
	pending, _ = f.svc.PendingAssignments(ctx, "student-1")
	if len(pending) != 0 {
		t.Errorf("pending past due = %+v; want none", pending)
	}

	// students with no classes see nothing
	if pending, err := f.svc.PendingAssignments(ctx, "nobody"); err != nil || len(pending) != 0 {
		t.Errorf("pending for outsider = %+v (err %v); want none", pending, err)
	}
}

func TestService_FeedbackForSubmission_ownership(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1", "student-2")
	ctx := context.Background()

	fb, err := f.svc.Submit(ctx, "student-1", f.newSubmission("mine"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if _, err := f.svc.FeedbackForSubmission(ctx, "student-1", fb.SubmissionID); err != nil {
		t.Errorf("owner fetch error = %v", err)
	}
	if _, err := f.svc.FeedbackForSubmission(ctx, "student-2", fb.SubmissionID); err != essay.ErrNotFound {
		t.Errorf("foreign fetch err = %v; want ErrNotFound", err)
	}
}

func TestService_SubmissionHistory(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "student-1", f.newSubmission("only one")); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	history, err := f.svc.SubmissionHistory(ctx, "student-1")
	if err != nil {
		t.Fatalf("SubmissionHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].Title != f.assignment.Title {
		t.Errorf("history = %+v; want the one submission", history)
	}
}

func TestService_Submit_schoolRepoFailure(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	repoErr := errors.New("pq: connection refused")
	broken := essay.NewService(
		f.essayRepo,
		&failingSchoolRepo{Repository: f.schoolRepo, err: repoErr},
		analysis.NewScorer(embedsvc.NewDummyEmbedder()),
		rendersvc.NewDummyRenderer(),
		f.notifier,
		core.NewStdLogger(),
	)

	_, err := broken.Submit(ctx, "student-1", f.newSubmission("x"))
	if err == nil {
		t.Fatal("Submit() should fail when the assignment lookup fails")
	}
	// an infrastructure failure must not surface as a gate rejection
	if err == essay.ErrAssignmentNotFound {
		t.Fatal("repository failure surfaced as ErrAssignmentNotFound")
	}
	if !strings.Contains(err.Error(), repoErr.Error()) {
		t.Errorf("err = %v; want the repository error preserved", err)
	}

	fb, err := f.svc.Submit(ctx, "student-1", f.newSubmission("good run"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	_, err = broken.Reprocess(ctx, fb.SubmissionID)
	if err == nil || err == essay.ErrAssignmentNotFound {
		t.Fatalf("Reprocess() err = %v; want the repository error propagated", err)
	}
	if !strings.Contains(err.Error(), repoErr.Error()) {
		t.Errorf("Reprocess() err = %v; want the repository error preserved", err)
	}
}

func TestService_Submit_concurrentAdmission(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "student-1")
	ctx := context.Background()

	fb, err := f.svc.Submit(ctx, "student-1", f.newSubmission("first"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// grant the first submission its cohort comparison so a resubmission is allowed
	fb.CohortComparison = &analysis.Comparison{
		Kind:     analysis.ReferenceClassAverage,
		Feedback: "comparison text",
	}
	if _, err := f.essayRepo.SaveFeedback(ctx, fb); err != nil {
		t.Fatalf("SaveFeedback() error = %v", err)
	}

	// two racing resubmissions: exactly one may take the second slot
	errs := make(chan error, 2)
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			_, err := f.svc.Submit(ctx, "student-1", f.newSubmission("second"))
			errs <- err
		}()
	}
	start.Done()
	wg.Wait()
	close(errs)

	var admitted, rejected int
	for err := range errs {
		switch err {
		case nil:
			admitted++
		case essay.ErrSubmissionLimitExceeded, essay.ErrFeedbackNotAvailable:
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if admitted != 1 || rejected != 1 {
		t.Fatalf("admitted = %d, rejected = %d; want exactly one of each", admitted, rejected)
	}

	subs, err := f.essayRepo.GetSubmissionsByStudentAndAssignment(ctx, "student-1", f.assignment.ID)
	if err != nil {
		t.Fatalf("fetching submissions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("submissions = %d; want 2", len(subs))
	}
	if subs[0].Count != 1 || subs[1].Count != 2 {
		t.Errorf("counts = (%d, %d); want (1, 2)", subs[0].Count, subs[1].Count)
	}
	if subs[0].Status != essay.StatusResubmitted {
		t.Errorf("first submission status = %q; want %q", subs[0].Status, essay.StatusResubmitted)
	}
}

// failingSchoolRepo delegates to the wrapped repository but fails assignment lookups.
type failingSchoolRepo struct {
	school.Repository
	err error
}

func (r *failingSchoolRepo) GetAssignmentByID(context.Context, string) (school.Assignment, error) {
	return school.Assignment{}, r.err
}

// flakyRenderer fails the first `failures` renders, then behaves like the dummy.
type flakyRenderer struct {
	mu       sync.Mutex
	failures int
	dummy    rendersvc.DummyRenderer
}

func (r *flakyRenderer) Render(ctx context.Context, kind string, data interface{}) (string, error) {
	r.mu.Lock()
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	r.mu.Unlock()
	if fail {
		return "", errors.New("renderer unavailable")
	}
	return r.dummy.Render(ctx, kind, data)
}
