package attendance

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

var (
	// errors
	ErrNotFound      = errors.New("attendance record not found")
	ErrInvalidStatus = errors.New("invalid attendance status")
)

type (
	Repository interface {
		GetRecord(ctx context.Context, key Key, exec ...core.DBExecutor) (Record, error)
		CreateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		UpdateRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		DeleteRecord(ctx context.Context, key Key, exec ...core.DBExecutor) error
		// QuerySectionRecords returns all records for (teacher, course, section) on a given date.
		QuerySectionRecords(ctx context.Context, teacherID, courseID, sectionID int, date time.Time, exec ...core.DBExecutor) ([]Record, error)
	}

	// Ledger is the transactional read/write boundary over the attendance table.
	// Writes are check-then-act and serialized per composite key, so concurrent
	// sessions on different sections proceed in parallel while the at-most-one-row
	// invariant holds per key.
	Ledger struct {
		db        core.DB // nil with non-SQL repositories; writes then skip the transaction
		repo      Repository
		rosterSvc *roster.Service

		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}
)

func NewLedger(db core.DB, repo Repository, rosterSvc *roster.Service) *Ledger {
	return &Ledger{
		db:        db,
		repo:      repo,
		rosterSvc: rosterSvc,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockKey serializes all writers of one composite key within this process;
// the table's unique constraint covers concurrent processes.
func (l *Ledger) lockKey(key Key) func() {
	l.mu.Lock()
	keyMu, ok := l.locks[key.String()]
	if !ok {
		keyMu = new(sync.Mutex)
		l.locks[key.String()] = keyMu
	}
	l.mu.Unlock()

	keyMu.Lock()
	return keyMu.Unlock
}

func (l *Ledger) begin(ctx context.Context) (*sql.Tx, []core.DBExecutor, error) {
	if l.db == nil {
		return nil, nil, nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "beginning transaction")
	}
	return tx, []core.DBExecutor{tx}, nil
}

func commit(tx *sql.Tx) error {
	if tx == nil {
		return nil
	}
	return pkgerrors.Wrap(tx.Commit(), "committing transaction")
}

func rollback(tx *sql.Tx) {
	if tx != nil {
		_ = tx.Rollback()
	}
}

// MarkPresentIfAbsent is the live-session fast path: insert a Present row for
// the key unless one already exists. It never downgrades nor duplicates.
func (l *Ledger) MarkPresentIfAbsent(ctx context.Context, key Key, now time.Time) (Outcome, error) {
	key = key.Canonical()
	unlock := l.lockKey(key)
	defer unlock()

	tx, exec, err := l.begin(ctx)
	if err != nil {
		return "", err
	}

	if _, err = l.repo.GetRecord(ctx, key, exec...); err == nil {
		rollback(tx) // read-only; nothing to keep
		return OutcomeAlreadyPresent, nil
	} else if pkgerrors.Cause(err) != ErrNotFound {
		rollback(tx)
		return "", pkgerrors.Wrap(err, "checking existing record")
	}

	rec := Record{
		ID:        uuid.New().String(),
		TeacherID: key.TeacherID,
		CourseID:  key.CourseID,
		SectionID: key.SectionID,
		RollNo:    key.RollNo,
		Date:      key.Date,
		Time:      null.TimeFrom(now.UTC()),
		Status:    StatusPresent,
	}
	if _, err = l.repo.CreateRecord(ctx, rec, exec...); err != nil {
		rollback(tx)
		return "", pkgerrors.Wrap(err, "inserting record")
	}
	if err = commit(tx); err != nil {
		return "", err
	}
	return OutcomeInserted, nil
}

// SetStatus is the reconciliation path: the explicit human override with no
// "already recorded, skip" short-circuit. NotRecorded deletes the row.
func (l *Ledger) SetStatus(ctx context.Context, key Key, status Status, now time.Time) (Outcome, error) {
	if !status.Valid() {
		return "", core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}

	key = key.Canonical()
	unlock := l.lockKey(key)
	defer unlock()

	tx, exec, err := l.begin(ctx)
	if err != nil {
		return "", err
	}

	rec, err := l.repo.GetRecord(ctx, key, exec...)
	switch {
	case pkgerrors.Cause(err) == ErrNotFound:
		if !status.Stored() {
			rollback(tx)
			return OutcomeUnchanged, nil
		}
		rec = Record{
			ID:        uuid.New().String(),
			TeacherID: key.TeacherID,
			CourseID:  key.CourseID,
			SectionID: key.SectionID,
			RollNo:    key.RollNo,
			Date:      key.Date,
			Time:      null.TimeFrom(now.UTC()),
			Status:    status,
		}
		if _, err = l.repo.CreateRecord(ctx, rec, exec...); err != nil {
			rollback(tx)
			return "", pkgerrors.Wrap(err, "inserting record")
		}
		if err = commit(tx); err != nil {
			return "", err
		}
		return OutcomeInserted, nil

	case err != nil:
		rollback(tx)
		return "", pkgerrors.Wrap(err, "checking existing record")

	case !status.Stored():
		if err = l.repo.DeleteRecord(ctx, key, exec...); err != nil {
			rollback(tx)
			return "", pkgerrors.Wrap(err, "deleting record")
		}
		if err = commit(tx); err != nil {
			return "", err
		}
		return OutcomeDeleted, nil

	default:
		rec.Status = status
		rec.Time = null.TimeFrom(now.UTC())
		if _, err = l.repo.UpdateRecord(ctx, rec, exec...); err != nil {
			rollback(tx)
			return "", pkgerrors.Wrap(err, "updating record")
		}
		if err = commit(tx); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil
	}
}

// Sheet merges the section roster with the day's ledger rows: every enrolled
// student yields exactly one entry, defaulting to NotRecorded with a null time.
func (l *Ledger) Sheet(ctx context.Context, teacherID, courseID, sectionID int, date time.Time) ([]SheetEntry, error) {
	students, err := l.rosterSvc.SectionStudents(ctx, sectionID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying section students")
	}

	records, err := l.repo.QuerySectionRecords(ctx, teacherID, courseID, sectionID, DateOf(date))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying section records")
	}
	byRollNo := make(map[string]Record, len(records))
	for _, rec := range records {
		byRollNo[rec.RollNo] = rec
	}

	entries := make([]SheetEntry, 0, len(students))
	for _, s := range students {
		entry := SheetEntry{
			RollNo:   s.RollNo,
			FullName: s.FullName,
			Status:   StatusNotRecorded,
		}
		if rec, ok := byRollNo[s.RollNo]; ok {
			entry.Status = rec.Status
			entry.Time = rec.Time
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RollNo < entries[j].RollNo })
	return entries, nil
}
