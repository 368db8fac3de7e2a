package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

var errInvalidRole = errors.New("invalid role")

// addUser updates or creates a user.User. Raw role spellings are stored canonical.
func (cli *commandLine) addUser(name, email, rawRole, pwd string, collegeID *int64) error {
	ctx := context.Background()
	role, ok := auth.MapRole(rawRole)
	if !ok {
		return errInvalidRole
	}
	if role == auth.RoleAdmin {
		collegeID = nil
	} else if collegeID == nil && role != auth.RoleGuest {
		return core.NewValidationError(nil, core.FieldError{Field: "college", Error: "this role requires a college"})
	}

	nu := user.NewUser{Name: name, Email: email, Role: role, CollegeID: collegeID, Password: pwd, PasswordConfirm: pwd}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, nu.Email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: nu.Email, CreatedAt: now}
	}
	usr.Name = nu.Name
	usr.Role = nu.Role
	usr.CollegeID = nu.CollegeID
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
