package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sessionRepoStub struct {
	createErr error
	sessions  map[string]Session

	deleted   int
	deleteErr error
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: make(map[string]Session)}
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if r.createErr != nil {
		return Session{}, r.createErr
	}
	r.sessions[session.Token] = session
	return session, nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, token string) (Session, error) {
	session, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (r *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := r.sessions[token]
	if !ok || session.RevokedAt != nil {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	r.sessions[token] = session
	return session, nil
}

func (r *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for token, session := range r.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.sessions, token)
			r.deleted++
		}
	}
	return nil
}

var authTestNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newAuthServiceForTest(t *testing.T, users *userRepoStub, sessions *sessionRepoStub) *AuthService {
	t.Helper()
	return NewAuthService(users, sessions, time.Hour,
		func() string { return "session-1" },
		func() (string, error) { return "token-abc", nil },
		func() time.Time { return authTestNow },
	)
}

func seededUsers(t *testing.T, password string) *userRepoStub {
	t.Helper()
	hash, err := CreatePasswordHash(password, DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := User{ID: "user-1", Email: "casey@example.com", DisplayName: "Casey"}
	return &userRepoStub{
		byID:    map[string]User{"user-1": user},
		byEmail: map[string]UserRecord{"casey@example.com": {User: user, PasswordHash: hash}},
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("issues a session for valid credentials", func(t *testing.T) {
		sessions := newSessionRepoStub()
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), sessions)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    " Casey@Example.com ",
			Password: "correct horse battery",
		})
		if err != nil {
			t.Fatalf("Authenticate returned error: %v", err)
		}

		if result.User.ID != "user-1" {
			t.Fatalf("expected user-1, got %q", result.User.ID)
		}
		if result.Session.Token != "token-abc" {
			t.Fatalf("expected generated token, got %q", result.Session.Token)
		}
		want := authTestNow.Add(time.Hour)
		if !result.Session.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, result.Session.ExpiresAt)
		}
		if _, ok := sessions.sessions["token-abc"]; !ok {
			t.Fatal("expected session persisted")
		}
	})

	t.Run("rejects an unknown email", func(t *testing.T) {
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), newSessionRepoStub())

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "nobody@example.com",
			Password: "correct horse battery",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), newSessionRepoStub())

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "casey@example.com",
			Password: "wrong",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("stored hash should parse cleanly, got %v", err)
		}
	})

	t.Run("rejects blank credentials", func(t *testing.T) {
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), newSessionRepoStub())

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	login := func(t *testing.T) (*AuthService, *sessionRepoStub) {
		t.Helper()
		sessions := newSessionRepoStub()
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), sessions)
		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "casey@example.com",
			Password: "correct horse battery",
		}); err != nil {
			t.Fatalf("Authenticate returned error: %v", err)
		}
		return svc, sessions
	}

	t.Run("resolves a live token to its principal", func(t *testing.T) {
		svc, _ := login(t)

		principal, err := svc.ValidateSession(context.Background(), "token-abc")
		if err != nil {
			t.Fatalf("ValidateSession returned error: %v", err)
		}
		if principal.UserID != "user-1" || principal.IsAdmin {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		svc, _ := login(t)

		_, err := svc.ValidateSession(context.Background(), "token-unknown")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		svc, sessions := login(t)

		session := sessions.sessions["token-abc"]
		session.ExpiresAt = authTestNow.Add(-time.Minute)
		sessions.sessions["token-abc"] = session

		_, err := svc.ValidateSession(context.Background(), "token-abc")
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		svc, _ := login(t)

		if err := svc.RevokeSession(context.Background(), "token-abc"); err != nil {
			t.Fatalf("RevokeSession returned error: %v", err)
		}

		_, err := svc.ValidateSession(context.Background(), "token-abc")
		if !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Run("revoking an unknown token reports not found", func(t *testing.T) {
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), newSessionRepoStub())

		err := svc.RevokeSession(context.Background(), "token-unknown")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("revoking twice reports not found", func(t *testing.T) {
		sessions := newSessionRepoStub()
		svc := newAuthServiceForTest(t, seededUsers(t, "correct horse battery"), sessions)
		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{
			Email:    "casey@example.com",
			Password: "correct horse battery",
		}); err != nil {
			t.Fatalf("Authenticate returned error: %v", err)
		}

		if err := svc.RevokeSession(context.Background(), "token-abc"); err != nil {
			t.Fatalf("first revoke returned error: %v", err)
		}
		if err := svc.RevokeSession(context.Background(), "token-abc"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second revoke, got %v", err)
		}
	})
}

func TestAuthService_PruneExpiredSessions(t *testing.T) {
	sessions := newSessionRepoStub()
	sessions.sessions["stale"] = Session{Token: "stale", ExpiresAt: authTestNow.Add(-time.Hour)}
	sessions.sessions["live"] = Session{Token: "live", ExpiresAt: authTestNow.Add(time.Hour)}
	svc := newAuthServiceForTest(t, &userRepoStub{}, sessions)

	if err := svc.PruneExpiredSessions(context.Background()); err != nil {
		t.Fatalf("PruneExpiredSessions returned error: %v", err)
	}
	if sessions.deleted != 1 {
		t.Fatalf("expected 1 removed session, got %d", sessions.deleted)
	}
	if _, ok := sessions.sessions["live"]; !ok {
		t.Fatal("expected live session kept")
	}
}
