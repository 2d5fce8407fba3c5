package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kosh/internal/auth"
	"kosh/internal/models"
	"kosh/internal/store"
)

func superAdmin() stubAdminStore {
	return stubAdminStore{
		isAdminFn: func(_ context.Context, userID string) (bool, bool, error) {
			switch userID {
			case "root":
				return true, true, nil
			case "helper":
				return true, false, nil
			}
			return false, false, nil
		},
	}
}

func TestPromoteAdmin(t *testing.T) {
	var promoted string
	admin := superAdmin()
	admin.createAdminFn = func(_ context.Context, _ store.Execer, userID string, isSuper bool, createdBy *string) error {
		if isSuper || createdBy == nil || *createdBy != "root" {
			t.Fatalf("unexpected admin creation args")
		}
		promoted = userID
		return nil
	}
	h := newTestHandler(testDeps{
		admin: admin,
		users: stubUserStore{
			getByEmailFn: func(_ context.Context, email string) (models.User, error) {
				if email == "bob@example.com" {
					return models.User{ID: "user-bob"}, nil
				}
				return models.User{}, sql.ErrNoRows
			},
		},
	})
	rr := serve(t, h, http.MethodPost, "/admin/promote", `{"email":"Bob@Example.com"}`, "root")
	if rr.Code != http.StatusCreated || promoted != "user-bob" {
		t.Fatalf("expected promotion, got %d (%q)", rr.Code, promoted)
	}
	if rr := serve(t, h, http.MethodPost, "/admin/promote", `{"email":"nobody@example.com"}`, "root"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := serve(t, h, http.MethodPost, "/admin/promote", `{"email":"bob@example.com"}`, "helper"); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-super admin, got %d", rr.Code)
	}
}

func TestGrantRole(t *testing.T) {
	granted := ""
	admin := superAdmin()
	admin.grantRoleFn = func(_ context.Context, _ store.Execer, adminUserID, role string) error {
		granted = adminUserID + ":" + role
		return nil
	}
	h := newTestHandler(testDeps{admin: admin})
	rr := serve(t, h, http.MethodPost, "/admin/roles/grant", `{"admin_user_id":"helper","role":"can_view_audit"}`, "root")
	if rr.Code != http.StatusCreated || granted != "helper:can_view_audit" {
		t.Fatalf("expected grant, got %d (%q)", rr.Code, granted)
	}
	cases := map[string]string{
		"unknown role":  `{"admin_user_id":"helper","role":"can_fly"}`,
		"not an admin":  `{"admin_user_id":"user-bob","role":"can_view_audit"}`,
		"super target":  `{"admin_user_id":"root","role":"can_view_audit"}`,
		"missing admin": `{"role":"can_view_audit"}`,
	}
	for name, body := range cases {
		if rr := serve(t, h, http.MethodPost, "/admin/roles/grant", body, "root"); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rr.Code)
		}
	}
}

func TestAdminListAccountsAndAudit(t *testing.T) {
	admin := superAdmin()
	admin.hasRoleFn = func(_ context.Context, userID, role string) (bool, error) {
		return userID == "helper" && role == store.RoleCanViewAudit, nil
	}
	var gotLimit, gotOffset int
	name := "Ana"
	h := newTestHandler(testDeps{
		admin: admin,
		accounts: stubAccountStore{
			listAllWithUsersFn: func(_ context.Context, limit, offset int) ([]store.AccountWithUser, error) {
				gotLimit, gotOffset = limit, offset
				return []store.AccountWithUser{{UserID: "user-1", Name: &name, WalletBalance: dec(t, "10")}}, nil
			},
		},
		audit: stubAuditStore{
			listFn: func(context.Context, int, int) ([]models.AuditLog, error) {
				return []models.AuditLog{{Action: "contribute", Data: "{}"}}, nil
			},
		},
	})
	rr := serve(t, h, http.MethodGet, "/admin/accounts?page=3&limit=10", "", "helper")
	if rr.Code != http.StatusOK || gotLimit != 10 || gotOffset != 20 {
		t.Fatalf("unexpected accounts response %d limit=%d offset=%d", rr.Code, gotLimit, gotOffset)
	}
	var accounts []store.AccountWithUser
	if err := json.NewDecoder(rr.Body).Decode(&accounts); err != nil || len(accounts) != 1 {
		t.Fatalf("unexpected accounts payload %v (%v)", accounts, err)
	}
	if rr := serve(t, h, http.MethodGet, "/admin/audit", "", "root"); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "contribute") {
		t.Fatalf("unexpected audit response %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(t, h, http.MethodGet, "/admin/audit", "", "user-1"); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}
}

func TestWSWalletRequiresValidToken(t *testing.T) {
	h := newTestHandler(testDeps{})
	rr := httptest.NewRecorder()
	h.WSWallet(rr, httptest.NewRequest(http.MethodGet, "/ws/wallet", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.WSWallet(rr, httptest.NewRequest(http.MethodGet, "/ws/wallet?token=invalid", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	other, _ := auth.GenerateToken("other-secret", "user-1", time.Minute)
	rr = httptest.NewRecorder()
	h.WSWallet(rr, httptest.NewRequest(http.MethodGet, "/ws/wallet?token="+other, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	rr := serve(t, newTestHandler(testDeps{}), http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d", rr.Code)
	}
}
