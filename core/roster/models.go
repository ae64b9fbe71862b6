package roster

// Student is a roster entry. RollNo is the student's natural key and is what
// the face encoding store labels descriptors with. A student belongs to
// exactly one section at a time.
type Student struct {
	RollNo    string `json:"roll_no" db:"roll_no"`
	FullName  string `json:"full_name" db:"full_name"`
	SectionID int    `json:"section_id" db:"section_id"`
}

type Course struct {
	ID   int    `json:"id" db:"id"`
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
}

type Section struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// TaughtSection is one (course, section) pair a teacher is assigned to,
// flattened for the operator's session picker.
type TaughtSection struct {
	CourseID    int    `json:"course_id" db:"course_id"`
	SectionID   int    `json:"section_id" db:"section_id"`
	CourseCode  string `json:"course_code" db:"course_code"`
	CourseName  string `json:"course_name" db:"course_name"`
	SectionName string `json:"section_name" db:"section_name"`
}

// Roster is the enrolled-student set of one section, loaded once per session
// so per-frame gate checks never hit the store.
type Roster struct {
	SectionID int
	students  map[string]Student
}

func (r Roster) IsEnrolled(rollNo string) bool {
	_, ok := r.students[rollNo]
	return ok
}

func (r Roster) Student(rollNo string) (Student, bool) {
	s, ok := r.students[rollNo]
	return s, ok
}

func (r Roster) Len() int { return len(r.students) }
