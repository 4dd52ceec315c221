// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "attesta-test-client"

func signTestToken(t *testing.T, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func googleClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "108234567890",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:         "maria@example.com",
		EmailVerified: true,
		Name:          "Maria Popescu",
		Picture:       "https://lh3.googleusercontent.com/a/photo",
	}
}

func newTokenServer(t *testing.T, idToken string, gotForm *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if gotForm != nil {
			m := make(map[string]string)
			for k := range r.PostForm {
				m[k] = r.PostForm.Get(k)
			}
			*gotForm = m
		}
		json.NewEncoder(w).Encode(map[string]string{"id_token": idToken})
	}))
}

func testClient(t *testing.T, tokenURL string) *Client {
	t.Helper()
	c, err := New(Config{
		ClientID:     testClientID,
		ClientSecret: "shhh",
		RedirectURL:  "http://localhost:8080/oauth2/callback/google",
		TokenURL:     tokenURL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAuthorizeURL(t *testing.T) {
	c := testClient(t, "http://unused")

	raw := c.AuthorizeURL("state-123")
	if !strings.HasPrefix(raw, defaultAuthURL+"?") {
		t.Errorf("expected consent URL on %s, got %s", defaultAuthURL, raw)
	}
	for _, want := range []string{
		"client_id=" + testClientID,
		"response_type=code",
		"scope=openid+email+profile",
		"state=state-123",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("authorize URL missing %q: %s", want, raw)
		}
	}
}

func TestExchange(t *testing.T) {
	var form map[string]string
	srv := newTokenServer(t, signTestToken(t, googleClaims()), &form)
	defer srv.Close()

	c := testClient(t, srv.URL)
	id, err := c.Exchange(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	if id.Sub != "108234567890" {
		t.Errorf("expected sub 108234567890, got %s", id.Sub)
	}
	if id.Email != "maria@example.com" {
		t.Errorf("expected email maria@example.com, got %s", id.Email)
	}
	if id.Fullname != "Maria Popescu" {
		t.Errorf("expected fullname Maria Popescu, got %s", id.Fullname)
	}

	if form["code"] != "auth-code-1" {
		t.Errorf("expected code auth-code-1 in token request, got %s", form["code"])
	}
	if form["grant_type"] != "authorization_code" {
		t.Errorf("expected grant_type authorization_code, got %s", form["grant_type"])
	}
	if form["client_secret"] != "shhh" {
		t.Errorf("expected client secret forwarded, got %s", form["client_secret"])
	}
}

func TestExchangeRejectsWrongIssuer(t *testing.T) {
	claims := googleClaims()
	claims.Issuer = "https://evil.example.com"
	srv := newTokenServer(t, signTestToken(t, claims), nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Exchange(context.Background(), "code"); err == nil {
		t.Fatal("expected error for foreign issuer")
	}
}

func TestExchangeRejectsWrongAudience(t *testing.T) {
	claims := googleClaims()
	claims.Audience = jwt.ClaimStrings{"someone-else"}
	srv := newTokenServer(t, signTestToken(t, claims), nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Exchange(context.Background(), "code"); err == nil {
		t.Fatal("expected error for audience mismatch")
	}
}

func TestExchangeRejectsUnverifiedEmail(t *testing.T) {
	claims := googleClaims()
	claims.EmailVerified = false
	srv := newTokenServer(t, signTestToken(t, claims), nil)
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Exchange(context.Background(), "code"); err == nil {
		t.Fatal("expected error for unverified email")
	}
}

func TestExchangeTokenEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Exchange(context.Background(), "expired-code")
	if err == nil {
		t.Fatal("expected error from token endpoint")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("expected invalid_grant in error, got %v", err)
	}
}

func TestExchangeMissingIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "short-lived"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Exchange(context.Background(), "code"); err == nil {
		t.Fatal("expected error when id_token absent")
	}
}
