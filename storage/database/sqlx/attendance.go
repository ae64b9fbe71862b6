package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRow struct {
	ID        string    `db:"id"`
	TeacherID int       `db:"teacher_id"`
	CourseID  int       `db:"course_id"`
	SectionID int       `db:"section_id"`
	RollNo    string    `db:"roll_no"`
	Date      time.Time `db:"attendance_date"`
	Time      null.Time `db:"attendance_time"`
	Status    string    `db:"status"`
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		CourseID:  r.CourseID,
		SectionID: r.SectionID,
		RollNo:    r.RollNo,
		Date:      attendance.DateOf(r.Date),
		Time:      r.Time,
		Status:    attendance.Status(r.Status),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrNotFound
func (repo attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const attendanceKeyWhere = `teacher_id = $1 AND course_id = $2 AND section_id = $3 AND roll_no = $4 AND attendance_date = $5`

func (repo attendanceRepository) GetRecord(ctx context.Context, key attendance.Key, exec ...core.DBExecutor) (attendance.Record, error) {
	key = key.Canonical()
	q := `SELECT id, teacher_id, course_id, section_id, roll_no, attendance_date, attendance_time, status
		FROM attendance WHERE ` + attendanceKeyWhere

	var row attendanceRow
	err := repo.getExec(exec).
		QueryRowContext(ctx, q, key.TeacherID, key.CourseID, key.SectionID, key.RollNo, key.Date).
		Scan(&row.ID, &row.TeacherID, &row.CourseID, &row.SectionID, &row.RollNo, &row.Date, &row.Time, &row.Status)
	if err != nil {
		return attendance.Record{}, repo.trapNoRowsErr(err, "finding attendance record")
	}
	return row.record(), nil
}

func (repo attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	q := `INSERT INTO attendance (id, teacher_id, course_id, section_id, roll_no, attendance_date, attendance_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := repo.getExec(exec).ExecContext(ctx, q,
		rec.ID, rec.TeacherID, rec.CourseID, rec.SectionID, rec.RollNo, attendance.DateOf(rec.Date), rec.Time, string(rec.Status))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	q := `UPDATE attendance SET status = $1, attendance_time = $2 WHERE id = $3`

	res, err := repo.getExec(exec).ExecContext(ctx, q, string(rec.Status), rec.Time, rec.ID)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo attendanceRepository) DeleteRecord(ctx context.Context, key attendance.Key, exec ...core.DBExecutor) error {
	key = key.Canonical()
	q := `DELETE FROM attendance WHERE ` + attendanceKeyWhere

	if _, err := repo.getExec(exec).ExecContext(ctx, q, key.TeacherID, key.CourseID, key.SectionID, key.RollNo, key.Date); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return nil
}

func (repo attendanceRepository) QuerySectionRecords(ctx context.Context, teacherID, courseID, sectionID int, date time.Time, exec ...core.DBExecutor) ([]attendance.Record, error) {
	q := `SELECT id, teacher_id, course_id, section_id, roll_no, attendance_date, attendance_time, status
		FROM attendance
		WHERE teacher_id = $1 AND course_id = $2 AND section_id = $3 AND attendance_date = $4
		ORDER BY roll_no`

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, q, teacherID, courseID, sectionID, attendance.DateOf(date)); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}
