package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allii5/TextInsight/core"
)

var (
	// errors
	ErrClassNotFound      = errors.New("class not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrNotClassOwner      = errors.New("you can only assign essays to your own classes")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		GetClassesByTeacherID(ctx context.Context, teacherID string) ([]Class, error)
		Enroll(ctx context.Context, classID, studentID string) error
		IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
		GetClassIDsByStudentID(ctx context.Context, studentID string) ([]string, error)

		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		GetAssignmentsByClassIDs(ctx context.Context, classIDs []string) ([]Assignment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateClass(ctx context.Context, name, code, teacherID string) (Class, error) {
	cls := Class{
		ID:        uuid.New().String(),
		Name:      core.CleanString(name),
		Code:      core.CleanString(code, true /* lower */),
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Enroll(ctx context.Context, classID, studentID string) error {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return err
	}
	return svc.repo.Enroll(ctx, classID, studentID)
}

func (svc *Service) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, classID, studentID)
}

func (svc *Service) CreateAssignment(ctx context.Context, teacherID string, na NewAssignment) (Assignment, error) {
	cls, err := svc.repo.GetClassByID(ctx, na.ClassID)
	if err != nil {
		return Assignment{}, err
	}
	if cls.TeacherID != teacherID {
		return Assignment{}, core.NewValidationError(
			ErrNotClassOwner, core.FieldError{Field: "class_id", Error: ErrNotClassOwner.Error()})
	}

	a := Assignment{
		ID:               uuid.New().String(),
		Title:            core.CleanString(na.Title),
		Description:      na.Description,
		ClassID:          na.ClassID,
		ExpectedKeywords: na.ExpectedKeywords,
		DueDate:          na.DueDate.UTC(),
		CreatedAt:        time.Now().UTC(),
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

// AssignmentsForStudent lists the assignments of every class the student is enrolled in.
func (svc *Service) AssignmentsForStudent(ctx context.Context, studentID string) ([]Assignment, error) {
	classIDs, err := svc.repo.GetClassIDsByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(classIDs) == 0 {
		return nil, nil
	}
	return svc.repo.GetAssignmentsByClassIDs(ctx, classIDs)
}
