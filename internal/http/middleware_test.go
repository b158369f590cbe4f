package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
)

type sessionValidatorStub struct {
	principal application.Principal
	err       error
	seenToken string
}

func (s *sessionValidatorStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	s.seenToken = token
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	okHandler := func(captured *application.Principal) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := PrincipalFromContext(r.Context()); ok && captured != nil {
				*captured = principal
			}
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{}
		handler := RequireSession(validator, nil)(okHandler(nil))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/bookings", nil))

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, validator.seenToken)
	})

	t.Run("accepts a bearer token and attaches the principal", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{principal: application.Principal{UserID: "user-1", IsAdmin: true}}
		var principal application.Principal
		handler := RequireSession(validator, nil)(okHandler(&principal))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("Authorization", "Bearer token-abc")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "token-abc", validator.seenToken)
		assert.Equal(t, "user-1", principal.UserID)
		assert.True(t, principal.IsAdmin)
	})

	t.Run("accepts a session cookie", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{principal: application.Principal{UserID: "user-1"}}
		handler := RequireSession(validator, nil)(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "cookie-token", validator.seenToken)
	})

	t.Run("maps expired sessions to 401", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{err: application.ErrSessionExpired}
		handler := RequireSession(validator, nil)(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("Authorization", "Bearer stale")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "AUTH_SESSION_EXPIRED")
	})

	t.Run("maps revoked sessions to 401", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{err: application.ErrSessionRevoked}
		handler := RequireSession(validator, nil)(okHandler(nil))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("Authorization", "Bearer revoked")

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
