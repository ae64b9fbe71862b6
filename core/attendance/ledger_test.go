package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

func setup(t *testing.T) (*attendance.Ledger, attendance.Repository, *inmemdb.DB) {
	t.Helper()

	db := inmemdb.NewDB()
	repo := inmemdb.NewAttendanceRepository(db)
	rosterRepo := inmemdb.NewRosterRepository(db)
	rosterRepo.AddStudent(roster.Student{RollNo: "S1", FullName: "Asha Juma", SectionID: 7})
	rosterRepo.AddStudent(roster.Student{RollNo: "S2", FullName: "Baraka Oti", SectionID: 7})
	rosterRepo.AddStudent(roster.Student{RollNo: "S3", FullName: "Chiku Mwema", SectionID: 8}) // other section

	ledger := attendance.NewLedger(nil, repo, roster.NewService(rosterRepo))
	return ledger, repo, db
}

func key(rollNo string, date time.Time) attendance.Key {
	return attendance.Key{TeacherID: 1, CourseID: 2, SectionID: 7, RollNo: rollNo, Date: date}
}

func TestLedger_MarkPresentIfAbsent(t *testing.T) {
	ledger, repo, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)

	outcome, err := ledger.MarkPresentIfAbsent(ctx, key("S1", now), now)
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeInserted, outcome)

	rec, err := repo.GetRecord(ctx, key("S1", now))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.True(t, rec.Time.Valid)
	assert.Equal(t, now, rec.Time.Time)
	assert.Equal(t, attendance.DateOf(now), rec.Date)
	assert.NotEmpty(t, rec.ID)

	// marking again the same day never duplicates nor touches the row
	later := now.Add(45 * time.Minute)
	outcome, err = ledger.MarkPresentIfAbsent(ctx, key("S1", later), later)
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeAlreadyPresent, outcome)

	again, err := repo.GetRecord(ctx, key("S1", later))
	require.NoError(t, err)
	assert.Equal(t, rec, again)

	// a new day is a new row
	tomorrow := now.AddDate(0, 0, 1)
	outcome, err = ledger.MarkPresentIfAbsent(ctx, key("S1", tomorrow), tomorrow)
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeInserted, outcome)
}

func TestLedger_SetStatus(t *testing.T) {
	ledger, repo, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)
	k := key("S1", now)

	t.Run("invalid status", func(t *testing.T) {
		_, err := ledger.SetStatus(ctx, k, attendance.Status("Tardy"), now)
		assert.Error(t, err)
	})

	t.Run("not recorded on a missing row is a no-op", func(t *testing.T) {
		outcome, err := ledger.SetStatus(ctx, k, attendance.StatusNotRecorded, now)
		require.NoError(t, err)
		assert.Equal(t, attendance.OutcomeUnchanged, outcome)

		_, err = repo.GetRecord(ctx, k)
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("absent inserts when missing", func(t *testing.T) {
		outcome, err := ledger.SetStatus(ctx, k, attendance.StatusAbsent, now)
		require.NoError(t, err)
		assert.Equal(t, attendance.OutcomeInserted, outcome)

		rec, err := repo.GetRecord(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusAbsent, rec.Status)
	})

	t.Run("present updates in place", func(t *testing.T) {
		later := now.Add(time.Hour)
		outcome, err := ledger.SetStatus(ctx, k, attendance.StatusPresent, later)
		require.NoError(t, err)
		assert.Equal(t, attendance.OutcomeUpdated, outcome)

		rec, err := repo.GetRecord(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusPresent, rec.Status)
		assert.Equal(t, later, rec.Time.Time)
	})

	t.Run("not recorded deletes the row", func(t *testing.T) {
		outcome, err := ledger.SetStatus(ctx, k, attendance.StatusNotRecorded, now)
		require.NoError(t, err)
		assert.Equal(t, attendance.OutcomeDeleted, outcome)

		_, err = repo.GetRecord(ctx, k)
		assert.Equal(t, attendance.ErrNotFound, err)
	})

	t.Run("round trip keeps a single row", func(t *testing.T) {
		_, err := ledger.MarkPresentIfAbsent(ctx, k, now)
		require.NoError(t, err)
		_, err = ledger.SetStatus(ctx, k, attendance.StatusAbsent, now)
		require.NoError(t, err)
		_, err = ledger.SetStatus(ctx, k, attendance.StatusPresent, now)
		require.NoError(t, err)

		records, err := repo.QuerySectionRecords(ctx, 1, 2, 7, now)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestLedger_Sheet(t *testing.T) {
	ledger, _, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)

	_, err := ledger.MarkPresentIfAbsent(ctx, key("S2", now), now)
	require.NoError(t, err)

	entries, err := ledger.Sheet(ctx, 1, 2, 7, now)
	require.NoError(t, err)
	require.Len(t, entries, 2) // every enrolled student appears; S3 is in another section

	// sorted by roll number
	assert.Equal(t, "S1", entries[0].RollNo)
	assert.Equal(t, "S2", entries[1].RollNo)

	// unrecorded student defaults to NotRecorded with a null time
	assert.Equal(t, attendance.StatusNotRecorded, entries[0].Status)
	assert.False(t, entries[0].Time.Valid)
	assert.Equal(t, "Asha Juma", entries[0].FullName)

	assert.Equal(t, attendance.StatusPresent, entries[1].Status)
	assert.True(t, entries[1].Time.Valid)

	// a different day sees none of today's rows
	entries, err = ledger.Sheet(ctx, 1, 2, 7, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, attendance.StatusNotRecorded, e.Status)
	}
}

func TestLedger_concurrentMarks(t *testing.T) {
	ledger, repo, _ := setup(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 15, 9, 30, 0, 0, time.UTC)
	k := key("S1", now)

	const n = 16
	outcomes := make(chan attendance.Outcome, n)
	for i := 0; i < n; i++ {
		go func() {
			outcome, err := ledger.MarkPresentIfAbsent(ctx, k, now)
			require.NoError(t, err)
			outcomes <- outcome
		}()
	}

	var inserted int
	for i := 0; i < n; i++ {
		if <-outcomes == attendance.OutcomeInserted {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)

	records, err := repo.QuerySectionRecords(ctx, 1, 2, 7, now)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
