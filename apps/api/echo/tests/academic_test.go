package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/academic"
)

func TestColleges(t *testing.T) {
	a := newTestApp(t)
	admin := a.sessionCookie(t, a.admin)

	rec := a.do(http.MethodPost, "/admin/colleges", admin, map[string]string{"name": "Gamma", "code": "GAMMA"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var colleges []academic.College
	rec = a.do(http.MethodGet, "/colleges?ordering=-name", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &colleges)
	require.Len(t, colleges, 3)
	assert.Equal(t, "Gamma", colleges[0].Name)

	// college admins only see their own college
	rec = a.do(http.MethodGet, "/colleges", a.sessionCookie(t, a.dean), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &colleges)
	require.Len(t, colleges, 1)
	assert.Equal(t, a.alpha.ID, colleges[0].ID)

	rec = a.do(http.MethodGet, fmt.Sprintf("/colleges/%d", a.beta.ID), a.sessionCookie(t, a.dean), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/admin/colleges", a.sessionCookie(t, a.dean), map[string]string{"name": "Delta", "code": "DELTA"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/admin/colleges", admin, map[string]string{"name": "Bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepartments_tenantIsolation(t *testing.T) {
	a := newTestApp(t)
	dean := a.sessionCookie(t, a.dean)
	otherDean := a.sessionCookie(t, a.otherDean)

	// a college_id in the body is ignored
	rec := a.do(http.MethodPost, "/departments", dean, map[string]interface{}{
		"name": "Maths", "code": "MAT", "college_id": a.beta.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dept academic.Department
	decode(t, rec, &dept)
	assert.Equal(t, a.alpha.ID, dept.CollegeID)
	path := fmt.Sprintf("/departments/%d", dept.ID)

	tests := []struct {
		name     string
		method   string
		path     string
		cookie   *http.Cookie
		body     interface{}
		wantCode int
	}{
		{"owner reads", http.MethodGet, path, dean, nil, http.StatusOK},
		{"staff reads", http.MethodGet, path, a.sessionCookie(t, a.teacher), nil, http.StatusOK},
		{"member cannot read", http.MethodGet, path, a.sessionCookie(t, a.student), nil, http.StatusForbidden},
		{"admin has no college", http.MethodGet, "/departments", a.sessionCookie(t, a.admin), nil, http.StatusForbidden},
		{"other college reads", http.MethodGet, path, otherDean, nil, http.StatusNotFound},
		{"other college updates", http.MethodPut, path, otherDean, map[string]string{"name": "X", "code": "X"}, http.StatusNotFound},
		{"other college deletes", http.MethodDelete, path, otherDean, nil, http.StatusNotFound},
		{"staff cannot write", http.MethodPut, path, a.sessionCookie(t, a.teacher), map[string]string{"name": "X", "code": "X"}, http.StatusForbidden},
		{"bad id", http.MethodGet, "/departments/abc", dean, nil, http.StatusNotFound},
		{"owner updates", http.MethodPut, path, dean, map[string]string{"name": "Mathematics", "code": "MAT"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(tt.method, tt.path, tt.cookie, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	var depts []academic.Department
	rec = a.do(http.MethodGet, "/departments", otherDean, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &depts)
	assert.Empty(t, depts)

	rec = a.do(http.MethodDelete, path, dean, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, path, dean, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClasses_filtersAndReferences(t *testing.T) {
	a := newTestApp(t)
	dean := a.sessionCookie(t, a.dean)

	var maths, physics academic.Department
	decode(t, a.do(http.MethodPost, "/departments", dean, map[string]string{"name": "Maths", "code": "MAT"}), &maths)
	decode(t, a.do(http.MethodPost, "/departments", dean, map[string]string{"name": "Physics", "code": "PHY"}), &physics)
	for _, c := range []struct {
		dept int64
		name string
	}{{maths.ID, "1B"}, {maths.ID, "1A"}, {physics.ID, "2A"}} {
		rec := a.do(http.MethodPost, "/classes", dean, map[string]interface{}{"department_id": c.dept, "name": c.name, "year": 1})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var classes []academic.Class
	rec := a.do(http.MethodGet, fmt.Sprintf("/classes?department_id=%d&ordering=name", maths.ID), dean, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &classes)
	require.Len(t, classes, 2)
	assert.Equal(t, "1A", classes[0].Name)

	rec = a.do(http.MethodGet, "/classes?department_id=maths", dean, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/classes?ordering=password", dean, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// departments of other colleges cannot be referenced
	var foreign academic.Department
	decode(t, a.do(http.MethodPost, "/departments", a.sessionCookie(t, a.otherDean), map[string]string{"name": "Arts", "code": "ART"}), &foreign)
	rec = a.do(http.MethodPost, "/classes", dean, map[string]interface{}{"department_id": foreign.ID, "name": "3A", "year": 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	decode(t, rec, &fields)
	assert.Contains(t, fields, "department_id")
}

func TestExamsAndResults(t *testing.T) {
	a := newTestApp(t)
	dean := a.sessionCookie(t, a.dean)
	teacher := a.sessionCookie(t, a.teacher)

	var dept academic.Department
	decode(t, a.do(http.MethodPost, "/departments", dean, map[string]string{"name": "Maths", "code": "MAT"}), &dept)
	var class academic.Class
	decode(t, a.do(http.MethodPost, "/classes", dean, map[string]interface{}{"department_id": dept.ID, "name": "1A", "year": 1}), &class)

	rec := a.do(http.MethodPost, "/subjects", dean, map[string]interface{}{
		"class_id": class.ID, "teacher_id": a.teacher.ID, "name": "Algebra", "code": "ALG",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var subject academic.Subject
	decode(t, rec, &subject)

	rec = a.do(http.MethodPost, "/students", dean, map[string]interface{}{
		"class_id": class.ID, "user_id": a.student.ID, "name": "Student", "roll_number": "R001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var student academic.Student
	decode(t, rec, &student)

	// staff record exams and results
	rec = a.do(http.MethodPost, "/exams", teacher, map[string]interface{}{
		"subject_id": subject.ID, "name": "Midterm", "date": "2024-03-01T09:00:00Z", "max_marks": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exam academic.Exam
	decode(t, rec, &exam)

	rec = a.do(http.MethodPost, "/results", teacher, map[string]interface{}{
		"exam_id": exam.ID, "student_id": student.ID, "marks": 87, "grade": "A",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// members read subjects and exams, not results
	member := a.sessionCookie(t, a.student)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/subjects", member, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/exams?subject_id=%d", subject.ID), member, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/results", member, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/exams", member, map[string]interface{}{
		"subject_id": subject.ID, "name": "Quiz", "date": "2024-03-02T09:00:00Z", "max_marks": 10,
	}).Code)
}
