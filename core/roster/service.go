package roster

import (
	"context"
	"errors"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

// UnknownName labels identities that must not be surfaced: unmatched faces and
// matched-but-not-enrolled ones look the same to the operator.
const UnknownName = "Unknown"

type (
	Repository interface {
		QueryTaughtSections(ctx context.Context, teacherID int, exec ...core.DBExecutor) ([]TaughtSection, error)
		QuerySectionStudents(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, rollNo string, exec ...core.DBExecutor) (Student, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TaughtSections lists the (course, section) pairs assigned to a teacher.
func (svc *Service) TaughtSections(ctx context.Context, teacherID int) ([]TaughtSection, error) {
	return svc.repo.QueryTaughtSections(ctx, teacherID)
}

func (svc *Service) SectionStudents(ctx context.Context, sectionID int) ([]Student, error) {
	return svc.repo.QuerySectionStudents(ctx, sectionID)
}

func (svc *Service) Student(ctx context.Context, rollNo string) (Student, error) {
	return svc.repo.GetStudent(ctx, rollNo)
}

// StudentName resolves a roll number to a display name; unknown students keep
// the Unknown label rather than erroring.
func (svc *Service) StudentName(ctx context.Context, rollNo string) string {
	s, err := svc.repo.GetStudent(ctx, rollNo)
	if err != nil {
		return UnknownName
	}
	return s.FullName
}

// SectionRoster loads the section's enrolled set once; sessions hold on to the
// returned Roster for their whole run.
func (svc *Service) SectionRoster(ctx context.Context, sectionID int) (Roster, error) {
	students, err := svc.repo.QuerySectionStudents(ctx, sectionID)
	if err != nil {
		return Roster{}, err
	}

	set := make(map[string]Student, len(students))
	for _, s := range students {
		set[s.RollNo] = s
	}
	return Roster{SectionID: sectionID, students: set}, nil
}
