// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for submission and taxonomy fields.
const (
	maxTitleLen    = 300
	maxContentLen  = 10_000
	maxNameLen     = 100
	maxDescLen     = 255
	maxTagsPerItem = 3
)

// validateSubmission checks a testimonial payload and returns the first
// error found. Rule order matters: title and content first, then media,
// then category, then tags, each short-circuiting.
func validateSubmission(title, content string, mediaCount, categoryCount, tagCount int) string {
	if strings.TrimSpace(title) == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if strings.TrimSpace(content) == "" {
		return "Content is required."
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "Content is too long (max 10,000 characters)."
	}
	if mediaCount == 0 {
		return "At least one image or video is required."
	}
	if categoryCount != 1 {
		return "Exactly one category is required."
	}
	if tagCount == 0 {
		return "At least one tag is required."
	}
	if tagCount > maxTagsPerItem {
		return "A maximum of 3 tags is allowed."
	}
	return ""
}

// validateName checks a category or tag name.
func validateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 100 characters)."
	}
	return ""
}

// validateDescription checks an optional description field.
func validateDescription(description string) string {
	if utf8.RuneCountInString(description) > maxDescLen {
		return "Description is too long (max 255 characters)."
	}
	return ""
}
