package academic

import (
	"time"

	"github.com/trezcool/academia/core/auth"
)

// Record holds the columns every table shares. CollegeID is the tenant.
type Record struct {
	ID        int64     `db:"id" json:"id"`
	CollegeID int64     `db:"college_id" json:"college_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // UTC
}

// Ref is a foreign key that must point to a row of the same college.
type Ref struct {
	Field string
	Table string
	ID    int64
	// Roles restricts references to users having one of them.
	Roles []auth.Role
}

type (
	// Entity is a tenant scoped table row.
	Entity interface {
		Table() string
		// TenantColumn is the column scoping the rows to a college.
		TenantColumn() string
		Meta() Record
		// Values returns the writable columns.
		Values() map[string]interface{}
		// Filters lists the columns usable as equality filters.
		Filters() []string
		Refs() []Ref
	}

	// Model is an Entity that can be copied with new Record values.
	Model[T any] interface {
		Entity
		WithMeta(Record) T
	}
)

func refsOf(refs ...Ref) []Ref {
	out := make([]Ref, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != 0 {
			out = append(out, ref)
		}
	}
	return out
}

func optID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// College is the tenant itself: its scoping column is its own ID.
type College struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Code      string    `db:"code" json:"code" validate:"required,alphanum_"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (College) Table() string        { return "colleges" }
func (College) TenantColumn() string { return "id" }
func (College) Filters() []string    { return nil }
func (College) Refs() []Ref          { return nil }

func (c College) Meta() Record {
	return Record{ID: c.ID, CollegeID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (c College) WithMeta(r Record) College {
	c.ID, c.CreatedAt, c.UpdatedAt = r.ID, r.CreatedAt, r.UpdatedAt
	return c
}

func (c College) Values() map[string]interface{} {
	return map[string]interface{}{"name": c.Name, "code": c.Code, "address": c.Address}
}

type Department struct {
	Record
	Name string `db:"name" json:"name" validate:"required"`
	Code string `db:"code" json:"code" validate:"required,alphanum_"`
}

func (Department) Table() string        { return "departments" }
func (Department) TenantColumn() string { return "college_id" }
func (Department) Filters() []string    { return nil }
func (Department) Refs() []Ref          { return nil }
func (d Department) Meta() Record       { return d.Record }

func (d Department) WithMeta(r Record) Department {
	d.Record = r
	return d
}

func (d Department) Values() map[string]interface{} {
	return map[string]interface{}{"name": d.Name, "code": d.Code}
}

type Class struct {
	Record
	DepartmentID int64  `db:"department_id" json:"department_id" validate:"required"`
	Name         string `db:"name" json:"name" validate:"required"`
	Year         int    `db:"year" json:"year" validate:"required,gte=1"`
}

func (Class) Table() string        { return "classes" }
func (Class) TenantColumn() string { return "college_id" }
func (Class) Filters() []string    { return []string{"department_id"} }
func (c Class) Meta() Record       { return c.Record }

func (c Class) Refs() []Ref {
	return refsOf(Ref{Field: "department_id", Table: "departments", ID: c.DepartmentID})
}

func (c Class) WithMeta(r Record) Class {
	c.Record = r
	return c
}

func (c Class) Values() map[string]interface{} {
	return map[string]interface{}{"department_id": c.DepartmentID, "name": c.Name, "year": c.Year}
}

type Subject struct {
	Record
	ClassID   int64  `db:"class_id" json:"class_id" validate:"required"`
	TeacherID *int64 `db:"teacher_id" json:"teacher_id"`
	Name      string `db:"name" json:"name" validate:"required"`
	Code      string `db:"code" json:"code" validate:"required,alphanum_"`
}

func (Subject) Table() string        { return "subjects" }
func (Subject) TenantColumn() string { return "college_id" }
func (Subject) Filters() []string    { return []string{"class_id", "teacher_id"} }
func (s Subject) Meta() Record       { return s.Record }

func (s Subject) Refs() []Ref {
	return refsOf(
		Ref{Field: "class_id", Table: "classes", ID: s.ClassID},
		Ref{Field: "teacher_id", Table: "users", ID: optID(s.TeacherID), Roles: []auth.Role{auth.RoleStaff}},
	)
}

func (s Subject) WithMeta(r Record) Subject {
	s.Record = r
	return s
}

func (s Subject) Values() map[string]interface{} {
	return map[string]interface{}{"class_id": s.ClassID, "teacher_id": s.TeacherID, "name": s.Name, "code": s.Code}
}

type Student struct {
	Record
	ClassID    int64  `db:"class_id" json:"class_id" validate:"required"`
	UserID     *int64 `db:"user_id" json:"user_id"`
	Name       string `db:"name" json:"name" validate:"required"`
	RollNumber string `db:"roll_number" json:"roll_number" validate:"required,alphanum_"`
	Email      string `db:"email" json:"email" validate:"omitempty,email"`
}

func (Student) Table() string        { return "students" }
func (Student) TenantColumn() string { return "college_id" }
func (Student) Filters() []string    { return []string{"class_id", "user_id"} }
func (s Student) Meta() Record       { return s.Record }

func (s Student) Refs() []Ref {
	return refsOf(
		Ref{Field: "class_id", Table: "classes", ID: s.ClassID},
		Ref{Field: "user_id", Table: "users", ID: optID(s.UserID), Roles: []auth.Role{auth.RoleMember}},
	)
}

func (s Student) WithMeta(r Record) Student {
	s.Record = r
	return s
}

func (s Student) Values() map[string]interface{} {
	return map[string]interface{}{
		"class_id": s.ClassID, "user_id": s.UserID, "name": s.Name, "roll_number": s.RollNumber, "email": s.Email,
	}
}

type Exam struct {
	Record
	SubjectID int64     `db:"subject_id" json:"subject_id" validate:"required"`
	Name      string    `db:"name" json:"name" validate:"required"`
	Date      time.Time `db:"date" json:"date" validate:"required"`
	MaxMarks  int       `db:"max_marks" json:"max_marks" validate:"required,gte=1"`
}

func (Exam) Table() string        { return "exams" }
func (Exam) TenantColumn() string { return "college_id" }
func (Exam) Filters() []string    { return []string{"subject_id"} }
func (e Exam) Meta() Record       { return e.Record }

func (e Exam) Refs() []Ref {
	return refsOf(Ref{Field: "subject_id", Table: "subjects", ID: e.SubjectID})
}

func (e Exam) WithMeta(r Record) Exam {
	e.Record = r
	return e
}

func (e Exam) Values() map[string]interface{} {
	return map[string]interface{}{"subject_id": e.SubjectID, "name": e.Name, "date": e.Date.UTC(), "max_marks": e.MaxMarks}
}

type Result struct {
	Record
	ExamID    int64  `db:"exam_id" json:"exam_id" validate:"required"`
	StudentID int64  `db:"student_id" json:"student_id" validate:"required"`
	Marks     int    `db:"marks" json:"marks" validate:"gte=0"`
	Grade     string `db:"grade" json:"grade" validate:"omitempty,max=3"`
}

func (Result) Table() string        { return "results" }
func (Result) TenantColumn() string { return "college_id" }
func (Result) Filters() []string    { return []string{"exam_id", "student_id"} }
func (r Result) Meta() Record       { return r.Record }

func (r Result) Refs() []Ref {
	return refsOf(
		Ref{Field: "exam_id", Table: "exams", ID: r.ExamID},
		Ref{Field: "student_id", Table: "students", ID: r.StudentID},
	)
}

func (r Result) WithMeta(rec Record) Result {
	r.Record = rec
	return r
}

func (r Result) Values() map[string]interface{} {
	return map[string]interface{}{"exam_id": r.ExamID, "student_id": r.StudentID, "marks": r.Marks, "grade": r.Grade}
}
