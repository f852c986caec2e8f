package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup prompts for a username and password and creates the account.
// The password byte slice is wiped before returning.
func (a *App) Signup(ctx context.Context) error {
	userName, password, err := a.askCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.out, "Success! You can now log in.")
	return nil
}

// Login prompts for credentials, opens a session and starts live updates.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.askCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, password); err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.out, "Logged in as", userName)
	a.startPush(ctx)
	return nil
}

// Logout stops live updates, drops the cached snapshots of this user and
// revokes the session. Local state is cleared even if the server is down.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(client.ErrNotLoggedIn)
	}

	a.stopPush()
	if err := a.timerService.Forget(ctx); err != nil {
		return a.report(err)
	}
	if err := a.authService.Logout(ctx); err != nil {
		a.report(err)
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) askCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// report prints a user-facing explanation of err and returns it.
func (a *App) report(err error) error {
	var msg string
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		msg = "Please log in first"
	case errors.Is(err, client.ErrUnauthorized):
		msg = "Not authorized: wrong credentials or the session has expired"
	case errors.Is(err, client.ErrUnavailable):
		msg = "Server unavailable, try again later"
	case errors.Is(err, common.ErrorConflict):
		msg = "That username is already taken"
	case errors.Is(err, common.ErrorNotFound):
		msg = "No such timer"
	case errors.Is(err, common.ErrorInvalidState):
		msg = "Timer is already stopped"
	case errors.Is(err, common.ErrorNotConfigured):
		msg = "Export is not enabled on this server"
	default:
		msg = "Error: " + err.Error()
	}
	fmt.Fprintln(a.out, msg)
	return err
}
