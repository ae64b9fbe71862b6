package roster_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/roster"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

func setup(t *testing.T) *roster.Service {
	t.Helper()

	db := inmemdb.NewDB()
	repo := inmemdb.NewRosterRepository(db)
	repo.AddStudent(roster.Student{RollNo: "S1", FullName: "Asha Juma", SectionID: 7})
	repo.AddStudent(roster.Student{RollNo: "S2", FullName: "Baraka Oti", SectionID: 7})
	repo.AddStudent(roster.Student{RollNo: "S3", FullName: "Chiku Mwema", SectionID: 8})
	repo.AddTaughtSection(1, roster.TaughtSection{
		CourseID: 2, SectionID: 7, CourseCode: "CS101", CourseName: "Intro to CS", SectionName: "A",
	})
	return roster.NewService(repo)
}

func TestService_SectionRoster(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	r, err := svc.SectionRoster(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, r.SectionID)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.IsEnrolled("S1"))
	assert.True(t, r.IsEnrolled("S2"))
	assert.False(t, r.IsEnrolled("S3")) // enrolled elsewhere
	assert.False(t, r.IsEnrolled("nope"))

	s, ok := r.Student("S1")
	require.True(t, ok)
	assert.Equal(t, "Asha Juma", s.FullName)
}

func TestService_StudentName(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	assert.Equal(t, "Asha Juma", svc.StudentName(ctx, "S1"))
	assert.Equal(t, roster.UnknownName, svc.StudentName(ctx, "ghost"))
}

func TestService_TaughtSections(t *testing.T) {
	svc := setup(t)

	sections, err := svc.TaughtSections(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "CS101", sections[0].CourseCode)
	assert.Equal(t, "A", sections[0].SectionName)
}
