// Package services contains application services for the timekeeper client.
// This file defines the authentication service: register, login, restoring
// a saved session across restarts, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and persist the session.
//   - Restore: reinstate a persisted, unexpired session for the same server.
//   - Logout: revoke the session on the server and forget it locally.
//   - Scope: key under which the current user's snapshots are cached.
type AuthService interface {
	Register(ctx context.Context, userName string, password []byte) error
	Login(ctx context.Context, userName string, password []byte) error
	Restore(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error

	UserName() string
	Scope() string
}

type authService struct {
	client client.Client
	server string
	db     *sql.DB
	now    func() time.Time

	mu       sync.RWMutex
	userName string
}

// NewAuthService constructs an AuthService bound to the given API client and
// local database. server identifies the API endpoint; a saved session is
// only restored for the server it was issued by.
func NewAuthService(c client.Client, server string, db *sql.DB) AuthService {
	return &authService{client: c, server: server, db: db, now: time.Now}
}

func (a *authService) Register(ctx context.Context, userName string, password []byte) error {
	return a.client.Register(ctx, userName, string(password))
}

func (a *authService) Login(ctx context.Context, userName string, password []byte) error {
	s, err := a.client.Login(ctx, userName, string(password))
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.saveSession(ctx, userName, s); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}

	a.setUserName(userName)
	return nil
}

// saveSession persists the session in a single transaction.
func (a *authService) saveSession(ctx context.Context, userName string, s client.Session) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SaveSession(ctx, metadata.Session{
			Server:    a.server,
			UserName:  userName,
			Token:     s.Token,
			ExpiresAt: s.ExpiresAt,
		})
	})
}

// Restore returns client.ErrNotLoggedIn when there is no usable saved
// session. An expired or foreign session is discarded.
func (a *authService) Restore(ctx context.Context) error {
	repo := metadata.NewSQLiteRepository(a.db)

	s, err := repo.LoadSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return client.ErrNotLoggedIn
	}

	if s.Server != a.server || !a.now().Before(s.ExpiresAt) {
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return client.ErrNotLoggedIn
	}

	a.client.SetToken(s.Token)
	a.setUserName(s.UserName)
	return nil
}

// Logout always forgets the local session. A server that cannot be reached
// is reported after the local state has been cleared.
func (a *authService) Logout(ctx context.Context) error {
	serverErr := a.client.Logout(ctx)
	if errors.Is(serverErr, client.ErrUnauthorized) || errors.Is(serverErr, client.ErrNotLoggedIn) {
		serverErr = nil
	}

	a.setUserName("")
	if err := metadata.NewSQLiteRepository(a.db).Clear(ctx); err != nil {
		return err
	}
	return serverErr
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) UserName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userName
}

func (a *authService) Scope() string {
	name := a.UserName()
	if name == "" {
		return ""
	}
	return name + "@" + a.server
}

func (a *authService) setUserName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = name
}
