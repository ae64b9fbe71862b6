package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

func (repo rosterRepository) QueryTaughtSections(ctx context.Context, teacherID int, exec ...core.DBExecutor) ([]roster.TaughtSection, error) {
	q := `SELECT e.course_id, e.section_id, c.code AS course_code, c.name AS course_name, s.name AS section_name
		FROM enrollment e
		JOIN course c ON e.course_id = c.id
		JOIN section s ON e.section_id = s.id
		WHERE e.teacher_id = $1
		ORDER BY c.code, s.name`

	var sections []roster.TaughtSection
	if err := repo.db.SelectContext(ctx, &sections, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying taught sections")
	}
	return sections, nil
}

func (repo rosterRepository) QuerySectionStudents(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]roster.Student, error) {
	q := `SELECT roll_no, full_name, section_id FROM student WHERE section_id = $1 ORDER BY roll_no`

	var students []roster.Student
	if err := repo.db.SelectContext(ctx, &students, q, sectionID); err != nil {
		return nil, errors.Wrap(err, "querying section students")
	}
	return students, nil
}

func (repo rosterRepository) GetStudent(ctx context.Context, rollNo string, exec ...core.DBExecutor) (roster.Student, error) {
	q := `SELECT roll_no, full_name, section_id FROM student WHERE roll_no = $1`

	var s roster.Student
	if err := repo.db.GetContext(ctx, &s, q, rollNo); err != nil {
		if err == sql.ErrNoRows {
			return roster.Student{}, roster.ErrNotFound
		}
		return roster.Student{}, errors.Wrap(err, "finding student")
	}
	return s, nil
}
