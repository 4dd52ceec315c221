// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	qrcode "github.com/skip2/go-qrcode"

	"attesta/internal/middleware"
	"attesta/internal/oauth"
	"attesta/internal/session"
	"attesta/internal/store"
)

const (
	// stateTTL bounds how long a Google sign-in may sit on the consent
	// screen before the state nonce expires.
	stateTTL = 10 * time.Minute

	statePrefix = "oauthstate:"

	totpIssuer = "Attesta"
)

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions    *session.Store
	userStore   *store.UserStore
	google      *oauth.Client
	valkey      *redis.Client
	frontendURL string
}

// NewAuth creates a new Auth handler group. google may be nil when the
// OAuth credentials are not configured; the redirect endpoints then
// return 503.
func NewAuth(sessions *session.Store, userStore *store.UserStore, google *oauth.Client, valkey *redis.Client, frontendURL string) *Auth {
	return &Auth{
		sessions:    sessions,
		userStore:   userStore,
		google:      google,
		valkey:      valkey,
		frontendURL: frontendURL,
	}
}

// Me reports the authenticated user. The console calls this on every
// mount to decide whether to show the login screen.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.userStore.FindByID(sess.UserID)
	if err != nil {
		respondInternal(w, "me lookup failed", err)
		return
	}
	if user == nil {
		// Session outlived the account. Treat as signed out.
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// AdminProbe is a cheap idempotent endpoint the console hits to decide
// whether to render admin navigation. Middleware does the actual gating.
func (a *Auth) AdminProbe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GoogleAuthorize starts the Google sign-in flow: mints a single-use
// state nonce and redirects to the consent screen.
func (a *Auth) GoogleAuthorize(w http.ResponseWriter, r *http.Request) {
	if a.google == nil {
		respondError(w, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		respondInternal(w, "state generation failed", err)
		return
	}
	state := hex.EncodeToString(buf)

	if err := a.valkey.Set(r.Context(), statePrefix+state, "1", stateTTL).Err(); err != nil {
		respondInternal(w, "state store failed", err)
		return
	}

	http.Redirect(w, r, a.google.AuthorizeURL(state), http.StatusFound)
}

// GoogleCallback finishes the sign-in flow: validates the state nonce,
// exchanges the code, upserts the user and creates a session.
func (a *Auth) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if a.google == nil {
		respondError(w, http.StatusServiceUnavailable, "google sign-in is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		respondError(w, http.StatusBadRequest, "missing state or code")
		return
	}

	// GetDel makes the nonce single-use: a replayed callback finds nothing.
	if err := a.valkey.GetDel(r.Context(), statePrefix+state).Err(); err == redis.Nil {
		respondError(w, http.StatusBadRequest, "invalid or expired state")
		return
	} else if err != nil {
		respondInternal(w, "state lookup failed", err)
		return
	}

	identity, err := a.google.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("google code exchange failed", "error", err)
		respondError(w, http.StatusUnauthorized, "google sign-in failed")
		return
	}

	user, err := a.userStore.FindByGoogleSub(identity.Sub)
	if err != nil {
		respondInternal(w, "google user lookup failed", err)
		return
	}
	if user == nil {
		user, err = a.userStore.CreateFromGoogle(identity.Sub, identity.Email, identity.Fullname, identity.Picture)
		if err != nil {
			respondInternal(w, "google user create failed", err)
			return
		}
		slog.Info("new account from google sign-in", "user", user.Email)
	}

	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:    user.ID,
		Email:     user.Email,
		Fullname:  user.Fullname,
		Roles:     user.RoleNames(),
		Provider:  "google",
		TwoFADone: true, // Google handles its own second factor
	})
	if err != nil {
		respondInternal(w, "session create failed", err)
		return
	}

	http.Redirect(w, r, a.frontendURL, http.StatusFound)
}

// Login handles operator password sign-in. The session starts with 2FA
// incomplete; the caller must follow up with setup or verify.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.userStore.FindByEmail(body.Email)
	if err != nil {
		respondInternal(w, "login lookup failed", err)
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, body.Password) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:    user.ID,
		Email:     user.Email,
		Fullname:  user.Fullname,
		Roles:     user.RoleNames(),
		Provider:  "password",
		TwoFADone: false,
	})
	if err != nil {
		respondInternal(w, "session create failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"requiresSetup": user.Needs2FASetup(),
	})
}

// TwoFASetup generates a TOTP secret for the session user and returns
// it with an otpauth QR code as a base64 PNG.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: sess.Email,
	})
	if err != nil {
		respondInternal(w, "totp generate failed", err)
		return
	}

	if err := a.userStore.SetTOTPSecret(sess.UserID, key.Secret()); err != nil {
		respondInternal(w, "save totp secret failed", err)
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		respondInternal(w, "qr encode failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"secret": key.Secret(),
		"qr":     fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(png)),
	})
}

// TwoFAVerify checks a TOTP code, enables TOTP on first success and
// marks the session's second factor complete.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.userStore.FindByID(sess.UserID)
	if err != nil {
		respondInternal(w, "verify lookup failed", err)
		return
	}
	if user == nil || user.TOTPSecret == "" {
		respondError(w, http.StatusBadRequest, "two-factor setup has not been started")
		return
	}

	if !totp.Validate(body.Code, user.TOTPSecret) {
		respondError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}

	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(user.ID); err != nil {
			respondInternal(w, "enable totp failed", err)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		respondInternal(w, "session update failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CSRFToken hands the console its double-submit token so the first
// mutating call after sign-in does not need to parse cookies.
func (a *Auth) CSRFToken(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"csrfToken": middleware.GetCSRFToken(r),
	})
}

// Logout destroys the session and clears the cookie.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
