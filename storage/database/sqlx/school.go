package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/allii5/TextInsight/core/school"
)

type classRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	TeacherID string    `db:"teacher_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r classRow) toClass() school.Class {
	return school.Class(r)
}

type assignmentRow struct {
	ID               string          `db:"id"`
	Title            string          `db:"title"`
	Description      string          `db:"description"`
	ClassID          string          `db:"class_id"`
	ExpectedKeywords json.RawMessage `db:"expected_keywords"`
	DueDate          time.Time       `db:"due_date"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r assignmentRow) toAssignment() (school.Assignment, error) {
	a := school.Assignment{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ClassID:     r.ClassID,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
	}
	if err := json.Unmarshal(r.ExpectedKeywords, &a.ExpectedKeywords); err != nil {
		return school.Assignment{}, errors.Wrap(err, "decoding expected keywords")
	}
	return a, nil
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sql.DB) school.Repository {
	return &schoolRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	query, args, err := psql.Insert("class").
		Columns("id", "name", "code", "teacher_id", "created_at").
		Values(cls.ID, cls.Name, cls.Code, cls.TeacherID, cls.CreatedAt).
		ToSql()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	query, args, err := psql.Select("id", "name", "code", "teacher_id", "created_at").
		From("class").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return school.Class{}, errors.Wrap(err, "building query")
	}

	var row classRow
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, errors.Wrap(err, "fetching class")
	}
	return row.toClass(), nil
}

func (repo *schoolRepository) GetClassesByTeacherID(ctx context.Context, teacherID string) ([]school.Class, error) {
	query, args, err := psql.Select("id", "name", "code", "teacher_id", "created_at").
		From("class").
		Where(sq.Eq{"teacher_id": teacherID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []classRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "fetching classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo *schoolRepository) Enroll(ctx context.Context, classID, studentID string) error {
	query, args, err := psql.Insert("class_student").
		Columns("class_id", "student_id").
		Values(classID, studentID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return nil
}

func (repo *schoolRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("class_student").
		Where(sq.Eq{"class_id": classID, "student_id": studentID}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}

	var count int
	if err := sqlx.GetContext(ctx, repo.db, &count, query, args...); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return count > 0, nil
}

func (repo *schoolRepository) GetClassIDsByStudentID(ctx context.Context, studentID string) ([]string, error) {
	query, args, err := psql.Select("class_id").
		From("class_student").
		Where(sq.Eq{"student_id": studentID}).
		OrderBy("class_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var classIDs []string
	if err := sqlx.SelectContext(ctx, repo.db, &classIDs, query, args...); err != nil {
		return nil, errors.Wrap(err, "fetching enrollments")
	}
	return classIDs, nil
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, a school.Assignment) (school.Assignment, error) {
	keywords, err := json.Marshal(a.ExpectedKeywords)
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "encoding expected keywords")
	}
	query, args, err := psql.Insert("assignment").
		Columns("id", "title", "description", "class_id", "expected_keywords", "due_date", "created_at").
		Values(a.ID, a.Title, a.Description, a.ClassID, keywords, a.DueDate, a.CreatedAt).
		ToSql()
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "building query")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return school.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return a, nil
}

func (repo *schoolRepository) GetAssignmentByID(ctx context.Context, id string) (school.Assignment, error) {
	query, args, err := psql.Select("id", "title", "description", "class_id", "expected_keywords", "due_date", "created_at").
		From("assignment").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return school.Assignment{}, errors.Wrap(err, "building query")
	}

	var row assignmentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return school.Assignment{}, school.ErrAssignmentNotFound
		}
		return school.Assignment{}, errors.Wrap(err, "fetching assignment")
	}
	return row.toAssignment()
}

func (repo *schoolRepository) GetAssignmentsByClassIDs(ctx context.Context, classIDs []string) ([]school.Assignment, error) {
	query, args, err := psql.Select("id", "title", "description", "class_id", "expected_keywords", "due_date", "created_at").
		From("assignment").
		Where(sq.Eq{"class_id": classIDs}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "fetching assignments")
	}
	assignments := make([]school.Assignment, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAssignment()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}
