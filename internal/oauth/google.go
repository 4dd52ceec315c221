// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package oauth implements the Google authorization-code sign-in flow.
// The callback exchanges the code for an ID token, verifies its RS256
// signature against Google's published JWKS, and returns the identity
// claims the rest of the app needs.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
)

// Identity is the verified subset of Google ID-token claims the app uses.
type Identity struct {
	Sub      string
	Email    string
	Fullname string
	Picture  string
}

// Claims is the ID-token payload shape Google issues.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Config holds the Google OAuth application settings. AuthURL, TokenURL
// and JWKSURL default to Google's endpoints and exist so tests can point
// the client at stub servers. When VerifySignature is false the ID token
// is parsed without checking its signature; only tests use that mode.
type Config struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	AuthURL         string
	TokenURL        string
	JWKSURL         string
	VerifySignature bool
}

// Client drives the authorization-code flow against Google.
type Client struct {
	cfg  Config
	jwks keyfunc.Keyfunc
	http *http.Client
}

// New creates an OAuth client. When signature verification is on it
// fetches Google's JWKS once up front so a misconfigured network fails
// at startup, not at first login.
func New(cfg Config) (*Client, error) {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}

	if cfg.VerifySignature {
		jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("google jwks: %w", err)
		}
		c.jwks = jwks
	}

	return c, nil
}

// AuthorizeURL builds the Google consent-screen URL carrying the given
// anti-forgery state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return c.cfg.AuthURL + "?" + q.Encode()
}

// Exchange swaps an authorization code for an ID token and returns the
// verified identity.
func (c *Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", c.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("token read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint error (status %d): %s", resp.StatusCode, string(body))
	}

	var tok struct {
		IDToken string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}
	if tok.IDToken == "" {
		return nil, errors.New("token response missing id_token")
	}

	return c.verifyIDToken(ctx, tok.IDToken)
}

// verifyIDToken checks the token signature, issuer and audience and
// extracts the identity claims.
func (c *Client) verifyIDToken(ctx context.Context, raw string) (*Identity, error) {
	var claims Claims
	var err error

	if c.jwks != nil {
		_, err = jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
			// Google signs ID tokens with RS256.
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.jwks.KeyfuncCtx(ctx)(token)
		})
	} else {
		parser := jwt.NewParser()
		_, _, err = parser.ParseUnverified(raw, &claims)
	}
	if err != nil {
		return nil, fmt.Errorf("id token parse: %w", err)
	}

	iss := claims.Issuer
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", iss)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != c.cfg.ClientID {
		return nil, errors.New("id token audience mismatch")
	}
	if claims.Subject == "" {
		return nil, errors.New("id token missing subject")
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("email %s not verified by google", claims.Email)
	}

	return &Identity{
		Sub:      claims.Subject,
		Email:    claims.Email,
		Fullname: claims.Name,
		Picture:  claims.Picture,
	}, nil
}
