package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthcare-ab/careapi/libs/auth"
)

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil || claims.Sub != "user-1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	token := signTestToken(t, "user-1", "patient")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqNoAuth := httptest.NewRequest(http.MethodGet, "/", nil)
	rwNoAuth := httptest.NewRecorder()
	h.ServeHTTP(rwNoAuth, reqNoAuth)
	if rwNoAuth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rwNoAuth.Code)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "/", nil)
	reqBad.Header.Set("Authorization", "Bearer garbage")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rwBad.Code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	expired, err := auth.SignHS256(auth.Claims{
		Sub: "user-1",
		Iat: time.Now().Add(-2 * time.Hour).Unix(),
		Exp: time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rw.Code)
	}
}
