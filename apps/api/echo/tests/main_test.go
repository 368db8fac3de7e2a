package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	testutil "github.com/trezcool/academia/tests"
)

const (
	pwd        = "Sup3r!Secret"
	cookieName = "academia_session"
)

type testApp struct {
	server  echoapi.Server
	conf    *core.Config
	codec   *auth.Codec
	logger  *testutil.LoggerMock
	mailSvc *emailsvc.ConsoleServiceMock
	db      *inmemdb.DB
	usrRepo user.Repository

	alpha, beta academic.College
	admin       user.User
	dean        user.User // college admin of alpha
	otherDean   user.User // college admin of beta
	teacher     user.User
	student     user.User
	inactive    user.User
}

func testConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Academia",
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server:                    core.ServerConfig{DisableReqLogs: true},
		Session: core.SessionConfig{
			CookieName:  cookieName,
			TTL:         7 * 24 * time.Hour,
			LoginPath:   "/login",
			LandingPath: "/dashboard",
		},
	}
}

// newTestApp builds the app over an in-memory store. opts may swap dependencies before the server starts.
func newTestApp(t *testing.T, opts ...func(*echoapi.ServerDeps)) *testApp {
	t.Helper()
	ctx := context.Background()
	a := &testApp{conf: testConfig(), logger: &testutil.LoggerMock{}, db: inmemdb.Open()}

	var err error
	a.codec, err = auth.NewCodec([]byte(a.conf.SecretKey), a.conf.Session.TTL, a.conf.AppName, a.logger)
	require.NoError(t, err)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	templates := core.NewTemplates(appfs.FS, appfs.EmailTemplatesDir, true)
	a.mailSvc = emailsvc.NewConsoleServiceMock(templates, a.logger, a.conf)
	a.usrRepo = inmemdb.NewUserRepository(a.db)

	collegeRepo := inmemdb.NewRepository[academic.College](a.db)
	a.alpha, err = collegeRepo.Create(ctx, nil, academic.College{Name: "Alpha", Code: "ALPHA"})
	require.NoError(t, err)
	a.beta, err = collegeRepo.Create(ctx, nil, academic.College{Name: "Beta", Code: "BETA"})
	require.NoError(t, err)

	a.admin = testutil.CreateUser(t, a.usrRepo, "Admin", "admin@example.com", pwd, auth.RoleAdmin, nil, true)
	a.dean = testutil.CreateUser(t, a.usrRepo, "Dean", "dean@example.com", pwd, auth.RoleTenantAdmin, &a.alpha.ID, true)
	a.otherDean = testutil.CreateUser(t, a.usrRepo, "Other Dean", "dean@beta.example.com", pwd, auth.RoleTenantAdmin, &a.beta.ID, true)
	a.teacher = testutil.CreateUser(t, a.usrRepo, "Teacher", "teacher@example.com", pwd, auth.RoleStaff, &a.alpha.ID, true)
	a.student = testutil.CreateUser(t, a.usrRepo, "Student", "student@example.com", pwd, auth.RoleMember, &a.alpha.ID, true)
	a.inactive = testutil.CreateUser(t, a.usrRepo, "Gone", "gone@example.com", pwd, auth.RoleStaff, &a.alpha.ID, false)

	deps := echoapi.ServerDeps{
		Conf:    a.conf,
		Logger:  a.logger,
		Codec:   a.codec,
		UserSvc: user.NewService(a.usrRepo, a.mailSvc, a.conf),
		Academics: echoapi.AcademicServices{
			Colleges:    academic.NewService(collegeRepo, academic.CollegePolicy, validate),
			Departments: academic.NewService(inmemdb.NewRepository[academic.Department](a.db), academic.DepartmentPolicy, validate),
			Classes:     academic.NewService(inmemdb.NewRepository[academic.Class](a.db), academic.ClassPolicy, validate),
			Subjects:    academic.NewService(inmemdb.NewRepository[academic.Subject](a.db), academic.SubjectPolicy, validate),
			Students:    academic.NewService(inmemdb.NewRepository[academic.Student](a.db), academic.StudentPolicy, validate),
			Exams:       academic.NewService(inmemdb.NewRepository[academic.Exam](a.db), academic.ExamPolicy, validate),
			Results:     academic.NewService(inmemdb.NewRepository[academic.Result](a.db), academic.ResultPolicy, validate),
		},
		Validate:   validate,
		Translator: translator,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	a.server = echoapi.NewServer(deps)
	return a
}

// sessionCookie returns a valid session cookie for usr.
func (a *testApp) sessionCookie(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	token, err := a.codec.Encode(usr.TokenClaims())
	require.NoError(t, err)
	return &http.Cookie{Name: cookieName, Value: token}
}

// do serves a request, with a JSON body when data is not nil.
func (a *testApp) do(method, path string, cookie *http.Cookie, data interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if data != nil {
		_ = json.NewEncoder(&body).Encode(data)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
