package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/rpc"
)

// getSimpleText and getPassword point to the interactive input helpers and
// can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// report prints a user-facing line for err and returns it as a common
// sentinel when it carries a known status.
func (a *App) report(action string, err error) error {
	err = rpc.FromStatus(err)
	fmt.Fprintf(a.out, "%s failed: %v\n", action, err)
	return err
}

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) startSession(email string, s *rpc.Session) {
	a.email = email
	a.session = s
	fmt.Fprintf(a.out, "Access token valid until %s, session until %s\n",
		s.AccessTokenExpiresAt.Local().Format(time.DateTime),
		s.RefreshTokenExpiresAt.Local().Format(time.DateTime))
}

// Register prompts for an email and password, creates the account and
// keeps the returned session.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.call(ctx)
	defer cancel()

	s, err := a.client.Register(ctx, email, string(password))
	if err != nil {
		return a.report("Register", err)
	}

	fmt.Fprintln(a.out, "Success!")
	a.startSession(email, s)
	return nil
}

// Login prompts for credentials and replaces any current session.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.call(ctx)
	defer cancel()

	s, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return a.report("Login", err)
	}

	fmt.Fprintln(a.out, "Login successful")
	a.startSession(email, s)
	return nil
}

// Refresh exchanges the held refresh token for a new session. A rejected
// token ends the local session.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return a.report("Refresh", err)
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	if a.session == nil {
		return common.ErrInvalidOrExpiredRefreshToken
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	s, err := a.client.RefreshToken(ctx, a.session.RefreshToken)
	if err != nil {
		if errors.Is(rpc.FromStatus(err), common.ErrInvalidOrExpiredRefreshToken) {
			a.clearSession()
		}
		return err
	}
	a.session = s
	return nil
}

// WhoAmI asks the server what the current access token asserts. An expired
// access token is refreshed once and the call retried.
func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.whoAmI(ctx)
	if errors.Is(rpc.FromStatus(err), common.ErrTokenExpired) {
		if err = a.refresh(ctx); err == nil {
			id, err = a.whoAmI(ctx)
		}
	}
	if err != nil {
		return a.report("WhoAmI", err)
	}

	fmt.Fprintf(a.out, "user_id: %s\nemail:   %s\nrole:    %s\nexpires: %s\n",
		id.UserID, id.Email, id.Role, id.ExpiresAt.Local().Format(time.DateTime))
	return nil
}

func (a *App) whoAmI(ctx context.Context) (*rpc.Identity, error) {
	if a.session == nil {
		return nil, common.ErrInvalidToken
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	return a.client.WhoAmI(ctx, a.session.AccessToken)
}

// Logout revokes the refresh token on the server and forgets the local
// session. The local session is dropped even when the server is unreachable.
func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return nil
	}

	ctx, cancel := a.call(ctx)
	defer cancel()

	err := a.client.Logout(ctx, a.session.RefreshToken)
	a.clearSession()
	if err != nil {
		return a.report("Logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) clearSession() {
	a.session = nil
	a.email = ""
}
