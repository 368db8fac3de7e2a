package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

type (
	AcademicServices struct {
		Colleges    *academic.Service[academic.College]
		Departments *academic.Service[academic.Department]
		Classes     *academic.Service[academic.Class]
		Subjects    *academic.Service[academic.Subject]
		Students    *academic.Service[academic.Student]
		Exams       *academic.Service[academic.Exam]
		Results     *academic.Service[academic.Result]
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Codec      *auth.Codec
		UserSvc    *user.Service
		Academics  AcademicServices
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.INFO)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${id} ${remote_ip} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	sessions := newSessionManager(s.deps.Codec, conf)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, sessions.principal, s.signalShutdown)
	s.app.Use(Gate(GateConfig{
		Skipper:     gateSkipper,
		Codec:       s.deps.Codec,
		CookieName:  conf.Session.CookieName,
		LoginPath:   conf.Session.LoginPath,
		LandingPath: conf.Session.LandingPath,
	}))

	s.app.GET("/health", health)

	registerSessionAPI(s.app.Group(""), sessions, s.deps.UserSvc, s.deps.Validate, s.deps.Logger)
	registerUserAPI(s.app.Group("/users"), sessions.principal, s.deps.UserSvc, s.deps.Validate)

	acad := s.deps.Academics
	root := s.app.Group("")
	registerResource(root, "/colleges", acad.Colleges, sessions.principal)
	registerResource(s.app.Group("/admin"), "/colleges", acad.Colleges, sessions.principal)
	registerResource(root, "/departments", acad.Departments, sessions.principal)
	registerResource(root, "/classes", acad.Classes, sessions.principal)
	registerResource(root, "/subjects", acad.Subjects, sessions.principal)
	registerResource(root, "/students", acad.Students, sessions.principal)
	registerResource(root, "/exams", acad.Exams, sessions.principal)
	registerResource(root, "/results", acad.Results, sessions.principal)
}

// Start listens until the server is shut down. Listener errors are sent to Errors().
func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// signalShutdown asks main to gracefully shut the server down.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
