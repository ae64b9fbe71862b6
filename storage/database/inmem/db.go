// Package inmemdb provides in-memory repositories for tests and local hacking.
package inmemdb

import (
	"sync"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/teacher"
)

type (
	attendanceTable struct {
		mutex sync.RWMutex
		table map[string]*attendance.Record // keyed by composite key
	}

	rosterTables struct {
		mutex       sync.RWMutex
		students    map[string]*roster.Student // keyed by roll no
		enrollments []roster.TaughtSection
		courses     map[int]*roster.Course
		sections    map[int]*roster.Section
	}

	teacherTable struct {
		mutex sync.RWMutex
		table map[int]*teacher.Teacher
	}

	DB struct {
		attendance *attendanceTable
		roster     *rosterTables
		teacher    *teacherTable
	}
)

func NewDB() *DB {
	return &DB{
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		roster: &rosterTables{
			students: make(map[string]*roster.Student),
			courses:  make(map[int]*roster.Course),
			sections: make(map[int]*roster.Section),
		},
		teacher: &teacherTable{table: make(map[int]*teacher.Teacher)},
	}
}
