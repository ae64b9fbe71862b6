package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/teacher"
)

func CreateTeacher(
	t *testing.T,
	repo teacher.Repository,
	uname, fullName, email, pwd string,
	isActive bool,
) teacher.Teacher {
	t.Helper()

	tstamp := time.Now().UTC()
	tchr := teacher.Teacher{
		Username:  uname,
		FullName:  fullName,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func NewStudent(rollNo, fullName string, sectionID int) roster.Student {
	return roster.Student{RollNo: rollNo, FullName: fullName, SectionID: sectionID}
}

// NewStore builds an encoding store from (rollNo, descriptor) pairs.
func NewStore(t *testing.T, encodings ...face.Encoding) *face.Store {
	t.Helper()

	store, err := face.NewStore(encodings)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return store
}
