package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}

// issueToken prints a session token for the active user with given email.
func (cli *commandLine) issueToken(email string) error {
	usr, err := cli.usrRepo.GetUserByEmail(context.Background(), core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return user.ErrAccountDeactivated
	}
	token, err := cli.codec.Encode(usr.TokenClaims())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
