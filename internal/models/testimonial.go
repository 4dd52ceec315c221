// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the moderation state of a testimonial.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsValid reports whether s is one of the known moderation states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a moderator may move a testimonial from
// s to target. APPROVED is terminal; a rejected testimonial may still be
// approved later. Re-applying the current status is not a transition.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return false
	}
	switch s {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusRejected:
		return target == StatusApproved
	}
	return false
}

// CategoryRef is the compact category shape embedded in testimonial responses.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TagRef is the compact tag shape embedded in testimonial responses.
type TagRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// MediaRef points at a stored image or video attached to a testimonial.
type MediaRef struct {
	URL string `json:"url"`
}

// Testimonial is a user-submitted review with its moderation state and
// attached taxonomy and media. CreatedByName is denormalized from the
// author at read time so public responses never expose the author record.
type Testimonial struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Status  Status    `json:"status"`
	// ScreeningFlags holds comma-separated moderation-API category names
	// when automatic screening flagged the content. Empty when clean or
	// when screening is disabled.
	ScreeningFlags string        `json:"screeningFlags,omitempty"`
	CreatedByID    uuid.UUID     `json:"createdById"`
	CreatedByName  string        `json:"createdByName"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	Categories     []CategoryRef `json:"categories"`
	Tags           []TagRef      `json:"tags"`
	Images         []MediaRef    `json:"images"`
	Videos         []MediaRef    `json:"videos"`
}

// Stats is the per-status testimonial count summary shown on the dashboard.
type Stats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}
