// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

// CreateUser stores a new User, failing the test on error.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role auth.Role,
	collegeID *int64,
	isActive bool,
) user.User {
	t.Helper()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CollegeID: collegeID,
		IsActive:  isActive,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Principal returns the Principal a session of usr decodes to.
func Principal(usr user.User) *auth.Principal {
	claims := usr.TokenClaims()
	return &auth.Principal{
		ID:       fmt.Sprint(*claims.UserID),
		Name:     claims.Name,
		Email:    claims.Email,
		Role:     usr.Role,
		TenantID: usr.CollegeID,
	}
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock records log entries instead of writing them.
type LoggerMock struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *LoggerMock) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }
