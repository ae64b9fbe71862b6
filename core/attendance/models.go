package attendance

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Status is the explicit tri-state applied uniformly across the live session
// and reconciliation paths. NotRecorded is how a missing ledger row presents;
// it is never stored, setting it deletes the row.
type Status string

const (
	StatusPresent     Status = "Present"
	StatusAbsent      Status = "Absent"
	StatusNotRecorded Status = "Not Recorded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusNotRecorded:
		return true
	}
	return false
}

// Stored reports whether the status corresponds to a persisted row.
func (s Status) Stored() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Key is the composite natural key of an attendance record: the ledger holds
// at most one row per key.
type Key struct {
	TeacherID int
	CourseID  int
	SectionID int
	RollNo    string
	Date      time.Time
}

// Canonical truncates Date to a UTC calendar day so that equal keys compare equal.
func (k Key) Canonical() Key {
	k.Date = DateOf(k.Date)
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%d:%s:%s", k.TeacherID, k.CourseID, k.SectionID, k.RollNo, k.Date.Format("2006-01-02"))
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Record is one persisted attendance row.
type Record struct {
	ID        string    `json:"id"`
	TeacherID int       `json:"teacher_id"`
	CourseID  int       `json:"course_id"`
	SectionID int       `json:"section_id"`
	RollNo    string    `json:"roll_no"`
	Date      time.Time `json:"date"`
	Time      null.Time `json:"time"` // null means "recorded but time unknown"
	Status    Status    `json:"status"`
}

func (r Record) Key() Key {
	return Key{
		TeacherID: r.TeacherID,
		CourseID:  r.CourseID,
		SectionID: r.SectionID,
		RollNo:    r.RollNo,
		Date:      r.Date,
	}.Canonical()
}

// Outcome reports what a ledger write actually did.
type Outcome string

const (
	OutcomeInserted       Outcome = "inserted"
	OutcomeAlreadyPresent Outcome = "already_present"
	OutcomeUpdated        Outcome = "updated"
	OutcomeDeleted        Outcome = "deleted"
	OutcomeUnchanged      Outcome = "unchanged"
)

// SheetEntry is one reconciliation row: every enrolled student appears,
// whether or not a ledger row exists for them.
type SheetEntry struct {
	RollNo   string    `json:"roll_no"`
	FullName string    `json:"full_name"`
	Status   Status    `json:"status"`
	Time     null.Time `json:"time"`
}
