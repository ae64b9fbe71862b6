package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, key attendance.Key, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[key.Canonical().String()]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec.Date = attendance.DateOf(rec.Date)
	repo.db.table[rec.Key().String()] = &rec
	return rec, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[rec.Key().String()]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	orig.Status = rec.Status
	orig.Time = rec.Time
	return *orig, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, key attendance.Key, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.table, key.Canonical().String())
	return nil
}

func (repo *attendanceRepository) QuerySectionRecords(ctx context.Context, teacherID, courseID, sectionID int, date time.Time, exec ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	date = attendance.DateOf(date)
	records := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if rec.TeacherID == teacherID && rec.CourseID == courseID && rec.SectionID == sectionID && rec.Date.Equal(date) {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RollNo < records[j].RollNo })
	return records, nil
}
