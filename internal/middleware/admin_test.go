package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kosh/internal/store"
)

type stubAdminStore struct {
	isAdminFn func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn func(ctx context.Context, userID, role string) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	return s.hasRoleFn(ctx, userID, role)
}

func adminStub(isAdmin, isSuper bool, adminErr error, hasRole bool, roleErr error) stubAdminStore {
	return stubAdminStore{
		isAdminFn: func(context.Context, string) (bool, bool, error) {
			return isAdmin, isSuper, adminErr
		},
		hasRoleFn: func(_ context.Context, _ string, role string) (bool, error) {
			if role != store.RoleCanViewAudit {
				return false, errors.New("unexpected role " + role)
			}
			return hasRole, roleErr
		},
	}
}

func TestRequireAdminMissingUser(t *testing.T) {
	handler := RequireAdmin(stubAdminStore{
		isAdminFn: func(context.Context, string) (bool, bool, error) {
			t.Fatalf("unexpected call")
			return false, false, nil
		},
	}, store.RoleCanViewAudit)(mustNotRun(t))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/audit", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name   string
		stub   stubAdminStore
		role   string
		status int
	}{
		{"not admin", adminStub(false, false, nil, false, nil), store.RoleCanViewAudit, http.StatusForbidden},
		{"admin lookup fails", adminStub(false, false, boom, false, nil), store.RoleCanViewAudit, http.StatusInternalServerError},
		{"super admin skips role", adminStub(true, true, nil, false, nil), store.RoleCanViewAudit, http.StatusOK},
		{"admin without role", adminStub(true, false, nil, false, nil), store.RoleCanViewAudit, http.StatusForbidden},
		{"admin with role", adminStub(true, false, nil, true, nil), store.RoleCanViewAudit, http.StatusOK},
		{"role lookup fails", adminStub(true, false, nil, false, boom), store.RoleCanViewAudit, http.StatusInternalServerError},
		{"no role required", adminStub(true, false, nil, false, boom), "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireAdmin(tc.stub, tc.role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
			req = req.WithContext(WithUserID(req.Context(), "user-1"))
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}
