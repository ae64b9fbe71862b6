package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/teacher"
)

type teacherRow struct {
	ID           int        `db:"id"`
	Username     string     `db:"username"`
	FullName     string     `db:"full_name"`
	Email        string     `db:"email"`
	IsActive     bool       `db:"is_active"`
	PasswordHash null.Bytes `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (r teacherRow) teacher() teacher.Teacher {
	return teacher.Teacher{
		ID:           r.ID,
		Username:     r.Username,
		FullName:     r.FullName,
		Email:        r.Email,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return teacher.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const teacherCols = `id, username, full_name, email, is_active, password_hash, created_at, updated_at`

func (repo teacherRepository) GetTeacherByID(ctx context.Context, id int, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+teacherCols+` FROM teacher WHERE id = $1`, id); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by ID")
	}
	return row.teacher(), nil
}

func (repo teacherRepository) GetTeacherByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+teacherCols+` FROM teacher WHERE username = $1`, username); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by username")
	}
	return row.teacher(), nil
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	q := `INSERT INTO teacher (username, full_name, email, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := repo.db.QueryRowContext(ctx, q,
		t.Username, t.FullName, t.Email, t.IsActive, null.BytesFrom(t.PasswordHash), t.CreatedAt, t.UpdatedAt).
		Scan(&t.ID)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	q := `UPDATE teacher SET full_name = $1, email = $2, is_active = $3, password_hash = $4, updated_at = $5 WHERE id = $6`

	res, err := repo.db.ExecContext(ctx, q, t.FullName, t.Email, t.IsActive, null.BytesFrom(t.PasswordHash), t.UpdatedAt, t.ID)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, nil
}
