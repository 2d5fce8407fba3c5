package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kosh/internal/auth"
)

func mustNotRun(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	})
}

func TestAuthRejects(t *testing.T) {
	expired, _ := auth.GenerateToken("secret", "user-1", -time.Minute)
	cases := map[string]struct {
		header string
		code   string
	}{
		"missing header": {"", "missing_authorization"},
		"wrong scheme":   {"Token abc", "invalid_authorization"},
		"empty bearer":   {"Bearer ", "invalid_authorization"},
		"garbage token":  {"Bearer invalid", "invalid_token"},
		"expired token":  {"Bearer " + expired, "invalid_token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			Auth("secret")(mustNotRun(t)).ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.code) {
				t.Fatalf("expected %s in body, got %s", tc.code, rr.Body.String())
			}
		})
	}
}

func TestAuthValidToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok || userID != "user-1" {
			t.Fatalf("expected user-1 in context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestUserIDFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(WithUserID(req.Context(), "")); ok {
		t.Fatalf("empty user id must not count as authenticated")
	}
}
