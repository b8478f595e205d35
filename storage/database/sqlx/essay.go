package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/allii5/TextInsight/core/analysis"
	"github.com/allii5/TextInsight/core/essay"
)

var submissionColumns = []string{
	"id", "title", "student_id", "assignment_id", "introduction", "middle",
	"conclusion", "submission_count", "status", "submitted_at",
}

type submissionRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	StudentID    string    `db:"student_id"`
	AssignmentID string    `db:"assignment_id"`
	Introduction string    `db:"introduction"`
	Middle       string    `db:"middle"`
	Conclusion   string    `db:"conclusion"`
	Count        int       `db:"submission_count"`
	Status       string    `db:"status"`
	SubmittedAt  time.Time `db:"submitted_at"`
}

func (r submissionRow) toSubmission() essay.Submission {
	return essay.Submission{
		ID:           r.ID,
		Title:        r.Title,
		StudentID:    r.StudentID,
		AssignmentID: r.AssignmentID,
		Introduction: r.Introduction,
		Middle:       r.Middle,
		Conclusion:   r.Conclusion,
		Count:        r.Count,
		Status:       essay.Status(r.Status),
		SubmittedAt:  r.SubmittedAt,
	}
}

var feedbackColumns = []string{
	"f.id", "f.submission_id", "f.student_id", "f.assignment_id", "f.keywords",
	"f.scores", "f.overall_score", "f.intra_feedback", "f.visuals",
	"f.cohort_comparison", "f.created_at",
}

type feedbackRow struct {
	ID               string          `db:"id"`
	SubmissionID     string          `db:"submission_id"`
	StudentID        string          `db:"student_id"`
	AssignmentID     string          `db:"assignment_id"`
	Keywords         json.RawMessage `db:"keywords"`
	Scores           json.RawMessage `db:"scores"`
	OverallScore     int             `db:"overall_score"`
	IntraFeedback    string          `db:"intra_feedback"`
	Visuals          json.RawMessage `db:"visuals"`
	CohortComparison null.JSON       `db:"cohort_comparison"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r feedbackRow) toFeedback() (essay.Feedback, error) {
	fb := essay.Feedback{
		ID:            r.ID,
		SubmissionID:  r.SubmissionID,
		StudentID:     r.StudentID,
		AssignmentID:  r.AssignmentID,
		OverallScore:  r.OverallScore,
		IntraFeedback: r.IntraFeedback,
		CreatedAt:     r.CreatedAt,
	}
	if err := json.Unmarshal(r.Keywords, &fb.Keywords); err != nil {
		return essay.Feedback{}, errors.Wrap(err, "decoding keywords")
	}
	if err := json.Unmarshal(r.Scores, &fb.Scores); err != nil {
		return essay.Feedback{}, errors.Wrap(err, "decoding scores")
	}
	if err := json.Unmarshal(r.Visuals, &fb.Visuals); err != nil {
		return essay.Feedback{}, errors.Wrap(err, "decoding visuals")
	}
	if r.CohortComparison.Valid {
		var comp analysis.Comparison
		if err := json.Unmarshal(r.CohortComparison.JSON, &comp); err != nil {
			return essay.Feedback{}, errors.Wrap(err, "decoding cohort comparison")
		}
		fb.CohortComparison = &comp
	}
	return fb, nil
}

type essayRepository struct {
	db *sqlx.DB
}

var _ essay.Repository = (*essayRepository)(nil)

func NewEssayRepository(db *sql.DB) essay.Repository {
	return &essayRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *essayRepository) CreateSubmission(ctx context.Context, sub essay.Submission) (essay.Submission, error) {
	query, args, err := psql.Insert("submission").
		Columns(submissionColumns...).
		Values(
			sub.ID, sub.Title, sub.StudentID, sub.AssignmentID, sub.Introduction,
			sub.Middle, sub.Conclusion, sub.Count, string(sub.Status), sub.SubmittedAt,
		).
		ToSql()
	if err != nil {
		return essay.Submission{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return essay.Submission{}, errors.Wrap(err, "creating submission")
	}
	return sub, nil
}

func (repo *essayRepository) GetSubmissionByID(ctx context.Context, id string) (essay.Submission, error) {
	query, args, err := psql.Select(submissionColumns...).
		From("submission").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return essay.Submission{}, errors.Wrap(err, "building query")
	}

	var row submissionRow
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return essay.Submission{}, essay.ErrNotFound
		}
		return essay.Submission{}, errors.Wrap(err, "fetching submission")
	}
	return row.toSubmission(), nil
}

func (repo *essayRepository) GetSubmissionsByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]essay.Submission, error) {
	query, args, err := psql.Select(submissionColumns...).
		From("submission").
		Where(sq.Eq{"student_id": studentID, "assignment_id": assignmentID}).
		OrderBy("submission_count").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.querySubmissions(ctx, query, args)
}

func (repo *essayRepository) GetSubmissionsByStudentID(ctx context.Context, studentID string) ([]essay.Submission, error) {
	query, args, err := psql.Select(submissionColumns...).
		From("submission").
		Where(sq.Eq{"student_id": studentID}).
		OrderBy("submitted_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.querySubmissions(ctx, query, args)
}

func (repo *essayRepository) UpdateSubmissionStatus(ctx context.Context, id string, status essay.Status) error {
	query, args, err := psql.Update("submission").
		Set("status", string(status)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating submission status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return essay.ErrNotFound
	}
	return nil
}

func (repo *essayRepository) SaveFeedback(ctx context.Context, fb essay.Feedback) (essay.Feedback, error) {
	keywords, err := json.Marshal(fb.Keywords)
	if err != nil {
		return essay.Feedback{}, errors.Wrap(err, "encoding keywords")
	}
	scores, err := json.Marshal(fb.Scores)
	if err != nil {
		return essay.Feedback{}, errors.Wrap(err, "encoding scores")
	}
	visuals, err := json.Marshal(fb.Visuals)
	if err != nil {
		return essay.Feedback{}, errors.Wrap(err, "encoding visuals")
	}
	comparison := null.JSONFromPtr(nil)
	if fb.CohortComparison != nil {
		raw, err := json.Marshal(fb.CohortComparison)
		if err != nil {
			return essay.Feedback{}, errors.Wrap(err, "encoding cohort comparison")
		}
		comparison = null.JSONFrom(raw)
	}

	// upsert; an existing row keeps its identity
	query, args, err := psql.Insert("feedback").
		Columns(
			"id", "submission_id", "student_id", "assignment_id", "keywords",
			"scores", "overall_score", "intra_feedback", "visuals",
			"cohort_comparison", "created_at",
		).
		Values(
			fb.ID, fb.SubmissionID, fb.StudentID, fb.AssignmentID, keywords,
			scores, fb.OverallScore, fb.IntraFeedback, visuals, comparison, fb.CreatedAt,
		).
		Suffix(`ON CONFLICT (submission_id) DO UPDATE
			SET keywords = EXCLUDED.keywords,
			    scores = EXCLUDED.scores,
			    overall_score = EXCLUDED.overall_score,
			    intra_feedback = EXCLUDED.intra_feedback,
			    visuals = EXCLUDED.visuals,
			    cohort_comparison = EXCLUDED.cohort_comparison
			RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return essay.Feedback{}, errors.Wrap(err, "building query")
	}

	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		return essay.Feedback{}, errors.Wrap(err, "saving feedback")
	}
	fb.ID = row.ID
	fb.CreatedAt = row.CreatedAt
	return fb, nil
}

func (repo *essayRepository) GetFeedbackBySubmissionID(ctx context.Context, submissionID string) (essay.Feedback, error) {
	query, args, err := psql.Select(feedbackColumns...).
		From("feedback f").
		Where(sq.Eq{"f.submission_id": submissionID}).
		ToSql()
	if err != nil {
		return essay.Feedback{}, errors.Wrap(err, "building query")
	}

	var row feedbackRow
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return essay.Feedback{}, essay.ErrFeedbackNotFound
		}
		return essay.Feedback{}, errors.Wrap(err, "fetching feedback")
	}
	return row.toFeedback()
}

func (repo *essayRepository) GetFeedbacksByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) ([]essay.Feedback, error) {
	query, args, err := psql.Select(feedbackColumns...).
		From("feedback f").
		Join("submission s ON s.id = f.submission_id").
		Where(sq.Eq{"f.student_id": studentID, "f.assignment_id": assignmentID}).
		OrderBy("s.submission_count").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.queryFeedbacks(ctx, query, args)
}

func (repo *essayRepository) LatestCohortFeedbacks(ctx context.Context, assignmentID, excludeStudentID string) ([]essay.Feedback, error) {
	// per student, the feedback of their highest-count submission
	query, args, err := psql.Select(feedbackColumns...).
		Options("DISTINCT ON (f.student_id)").
		From("feedback f").
		Join("submission s ON s.id = f.submission_id").
		Where(sq.Eq{"f.assignment_id": assignmentID}).
		Where(sq.NotEq{"f.student_id": excludeStudentID}).
		OrderBy("f.student_id", "s.submission_count DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.queryFeedbacks(ctx, query, args)
}

func (repo *essayRepository) FeedbacksWithoutCohortComparison(ctx context.Context, assignmentID string) ([]essay.Feedback, error) {
	query, args, err := psql.Select(feedbackColumns...).
		From("feedback f").
		Where(sq.Eq{"f.assignment_id": assignmentID, "f.cohort_comparison": nil}).
		OrderBy("f.student_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.queryFeedbacks(ctx, query, args)
}

func (repo *essayRepository) SaveProgress(ctx context.Context, p essay.Progress) (essay.Progress, error) {
	comparison, err := json.Marshal(p.Comparison)
	if err != nil {
		return essay.Progress{}, errors.Wrap(err, "encoding comparison")
	}

	query, args, err := psql.Insert("progress").
		Columns(
			"id", "student_id", "assignment_id", "first_submission_id",
			"second_submission_id", "comparison", "created_at",
		).
		Values(
			p.ID, p.StudentID, p.AssignmentID, p.FirstSubmissionID,
			p.SecondSubmissionID, comparison, p.CreatedAt,
		).
		Suffix(`ON CONFLICT (student_id, assignment_id) DO UPDATE
			SET first_submission_id = EXCLUDED.first_submission_id,
			    second_submission_id = EXCLUDED.second_submission_id,
			    comparison = EXCLUDED.comparison
			RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return essay.Progress{}, errors.Wrap(err, "building query")
	}

	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		return essay.Progress{}, errors.Wrap(err, "saving progress")
	}
	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	return p, nil
}

func (repo *essayRepository) GetProgressByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (essay.Progress, error) {
	query, args, err := psql.Select(
		"id", "student_id", "assignment_id", "first_submission_id",
		"second_submission_id", "comparison", "created_at",
	).
		From("progress").
		Where(sq.Eq{"student_id": studentID, "assignment_id": assignmentID}).
		ToSql()
	if err != nil {
		return essay.Progress{}, errors.Wrap(err, "building query")
	}

	var row struct {
		ID                 string          `db:"id"`
		StudentID          string          `db:"student_id"`
		AssignmentID       string          `db:"assignment_id"`
		FirstSubmissionID  string          `db:"first_submission_id"`
		SecondSubmissionID string          `db:"second_submission_id"`
		Comparison         json.RawMessage `db:"comparison"`
		CreatedAt          time.Time       `db:"created_at"`
	}
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return essay.Progress{}, essay.ErrProgressNotFound
		}
		return essay.Progress{}, errors.Wrap(err, "fetching progress")
	}

	p := essay.Progress{
		ID:                 row.ID,
		StudentID:          row.StudentID,
		AssignmentID:       row.AssignmentID,
		FirstSubmissionID:  row.FirstSubmissionID,
		SecondSubmissionID: row.SecondSubmissionID,
		CreatedAt:          row.CreatedAt,
	}
	if err := json.Unmarshal(row.Comparison, &p.Comparison); err != nil {
		return essay.Progress{}, errors.Wrap(err, "decoding comparison")
	}
	return p, nil
}

func (repo *essayRepository) querySubmissions(ctx context.Context, query string, args []interface{}) ([]essay.Submission, error) {
	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "fetching submissions")
	}
	subs := make([]essay.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}

func (repo *essayRepository) queryFeedbacks(ctx context.Context, query string, args []interface{}) ([]essay.Feedback, error) {
	var rows []feedbackRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "fetching feedbacks")
	}
	fbs := make([]essay.Feedback, 0, len(rows))
	for _, r := range rows {
		fb, err := r.toFeedback()
		if err != nil {
			return nil, err
		}
		fbs = append(fbs, fb)
	}
	return fbs, nil
}
