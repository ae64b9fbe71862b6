package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterRepository struct {
	db *rosterTables
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db.roster}
}

// AddStudent seeds a student; test helper.
func (repo *rosterRepository) AddStudent(s roster.Student) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.students[s.RollNo] = &s
}

// AddTaughtSection seeds a teacher↔course↔section assignment; test helper.
func (repo *rosterRepository) AddTaughtSection(teacherID int, ts roster.TaughtSection) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.enrollments = append(repo.db.enrollments, ts)
	repo.db.courses[ts.CourseID] = &roster.Course{ID: ts.CourseID, Code: ts.CourseCode, Name: ts.CourseName}
	repo.db.sections[ts.SectionID] = &roster.Section{ID: ts.SectionID, Name: ts.SectionName}
}

func (repo *rosterRepository) QueryTaughtSections(ctx context.Context, teacherID int, exec ...core.DBExecutor) ([]roster.TaughtSection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sections := make([]roster.TaughtSection, len(repo.db.enrollments))
	copy(sections, repo.db.enrollments)
	return sections, nil
}

func (repo *rosterRepository) QuerySectionStudents(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]roster.Student, 0)
	for _, s := range repo.db.students {
		if s.SectionID == sectionID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNo < students[j].RollNo })
	return students, nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, rollNo string, exec ...core.DBExecutor) (roster.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[rollNo]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrNotFound
}
