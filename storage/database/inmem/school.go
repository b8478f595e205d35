package inmemdb

import (
	"context"
	"sort"

	"github.com/allii5/TextInsight/core/school"
)

type schoolRepository struct {
	classes     *classTable
	enrollments *enrollmentTable
	assignments *assignmentTable
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{
		classes:     db.class,
		enrollments: db.enrollment,
		assignments: db.assignment,
	}
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.classes.mutex.Lock()
	defer repo.classes.mutex.Unlock()

	repo.classes.table[cls.ID] = &cls
	return cls, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	repo.classes.mutex.RLock()
	defer repo.classes.mutex.RUnlock()

	if cls, ok := repo.classes.table[id]; ok {
		return *cls, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) GetClassesByTeacherID(ctx context.Context, teacherID string) ([]school.Class, error) {
	repo.classes.mutex.RLock()
	defer repo.classes.mutex.RUnlock()

	classes := make([]school.Class, 0)
	for _, cls := range repo.classes.table {
		if cls.TeacherID == teacherID {
			classes = append(classes, *cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.Before(classes[j].CreatedAt) })
	return classes, nil
}

func (repo *schoolRepository) Enroll(ctx context.Context, classID, studentID string) error {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	for _, sid := range repo.enrollments.table[classID] {
		if sid == studentID {
			return nil
		}
	}
	repo.enrollments.table[classID] = append(repo.enrollments.table[classID], studentID)
	return nil
}

func (repo *schoolRepository) IsEnrolled(ctx context.Context, classID, studentID string) (bool, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	for _, sid := range repo.enrollments.table[classID] {
		if sid == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *schoolRepository) GetClassIDsByStudentID(ctx context.Context, studentID string) ([]string, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	classIDs := make([]string, 0)
	for classID, studentIDs := range repo.enrollments.table {
		for _, sid := range studentIDs {
			if sid == studentID {
				classIDs = append(classIDs, classID)
				break
			}
		}
	}
	sort.Strings(classIDs)
	return classIDs, nil
}

func (repo *schoolRepository) CreateAssignment(ctx context.Context, a school.Assignment) (school.Assignment, error) {
	repo.assignments.mutex.Lock()
	defer repo.assignments.mutex.Unlock()

	repo.assignments.table[a.ID] = &a
	return a, nil
}

func (repo *schoolRepository) GetAssignmentByID(ctx context.Context, id string) (school.Assignment, error) {
	repo.assignments.mutex.RLock()
	defer repo.assignments.mutex.RUnlock()

	if a, ok := repo.assignments.table[id]; ok {
		return *a, nil
	}
	return school.Assignment{}, school.ErrAssignmentNotFound
}

func (repo *schoolRepository) GetAssignmentsByClassIDs(ctx context.Context, classIDs []string) ([]school.Assignment, error) {
	repo.assignments.mutex.RLock()
	defer repo.assignments.mutex.RUnlock()

	wanted := make(map[string]struct{}, len(classIDs))
	for _, id := range classIDs {
		wanted[id] = struct{}{}
	}
	assignments := make([]school.Assignment, 0)
	for _, a := range repo.assignments.table {
		if _, ok := wanted[a.ClassID]; ok {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.Before(assignments[j].CreatedAt) })
	return assignments, nil
}
