package teacher

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		GetTeacherByID(ctx context.Context, id int, exec ...core.DBExecutor) (Teacher, error)
		GetTeacherByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (Teacher, error)
		CreateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Teacher, error) {
	return svc.repo.GetTeacherByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate verifies the operator's credentials for token issuance.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (Teacher, error) {
	t, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return Teacher{}, err
	}
	if err := t.CheckPassword(pwd); err != nil {
		return Teacher{}, ErrNotFound // do not leak which part failed
	}
	if !t.IsActive {
		return Teacher{}, ErrNotFound
	}
	return t, nil
}

// Add updates or creates a teacher account; used by the admin CLI.
func (svc *Service) Add(ctx context.Context, uname, fullName, email, pwd string) (Teacher, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	t, err := svc.repo.GetTeacherByUsername(ctx, uname)
	if err != nil {
		if err != ErrNotFound {
			return Teacher{}, err
		}
		t = Teacher{Username: uname, CreatedAt: now}
	}
	t.FullName = core.CleanString(fullName)
	t.Email = email
	t.IsActive = true
	t.UpdatedAt = now
	if err := t.SetPassword(pwd); err != nil {
		return Teacher{}, err
	}

	if t.ID == 0 {
		return svc.repo.CreateTeacher(ctx, t)
	}
	return svc.repo.UpdateTeacher(ctx, t)
}
