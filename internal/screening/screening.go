// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package screening runs submitted testimonial text through the OpenAI
// Moderation API before it reaches the moderation queue. Screening is
// advisory: a flagged submission is still stored as PENDING, the flags
// are only logged for the moderator. The service degrades to a no-op
// when no API key is configured.
package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result contains the outcome of a text safety check.
type Result struct {
	Safe       bool     // true if the text passes screening
	Categories []string // list of flagged category names (empty when safe)
}

// Screener evaluates submitted text for policy violations.
type Screener interface {
	// Check evaluates a text and returns whether it is safe. If not,
	// Categories lists the reasons.
	Check(ctx context.Context, text string) (*Result, error)
}

// Client uses the OpenAI Moderation API (POST /v1/moderations), which is
// free for all OpenAI API key holders.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a screener backed by the OpenAI moderation endpoint.
// Returns nil when apiKey is empty; callers treat a nil screener as
// "screening disabled".
func New(apiKey, baseURL string) *Client {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Check implements Screener.
func (c *Client) Check(ctx context.Context, text string) (*Result, error) {
	body := modRequest{
		Model: "omni-moderation-latest",
		Input: text,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("screening marshal: %w", err)
	}

	url := c.baseURL + "/moderations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("screening request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screening http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("screening read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screening API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result modResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("screening unmarshal: %w", err)
	}

	if len(result.Results) == 0 {
		return &Result{Safe: true}, nil
	}

	r := result.Results[0]
	if !r.Flagged {
		return &Result{Safe: true}, nil
	}

	// Collect flagged category names in human-readable form.
	var flagged []string
	for cat, isFlagged := range r.Categories {
		if isFlagged {
			// Convert "hate/threatening" → "hate (threatening)" for readability.
			display := strings.ReplaceAll(cat, "/", " (")
			if strings.Contains(cat, "/") {
				display += ")"
			}
			display = strings.ReplaceAll(display, "_", " ")
			flagged = append(flagged, display)
		}
	}

	return &Result{
		Safe:       false,
		Categories: flagged,
	}, nil
}

type modRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type modResponse struct {
	Results []modResult `json:"results"`
}

type modResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}
