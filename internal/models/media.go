// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind distinguishes image from video uploads in the media ledger.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is a ledger entry for a file uploaded to S3-compatible object
// storage. The file itself lives in the bucket; TestimonialID stays nil
// until a submission claims the upload, which is how orphans are found.
type Media struct {
	ID            uuid.UUID  `json:"id"`
	S3Key         string     `json:"s3Key"`
	URL           string     `json:"url"`
	Kind          MediaKind  `json:"kind"`
	ContentType   string     `json:"contentType"`
	SizeBytes     int64      `json:"sizeBytes"`
	UploadedBy    *uuid.UUID `json:"uploadedBy,omitempty"`
	TestimonialID *uuid.UUID `json:"testimonialId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsImage returns true if the media item is an image type.
func (m *Media) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image/")
}

// HumanSize returns a human-readable file size string.
func (m *Media) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case m.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.SizeBytes)/float64(mb))
	case m.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(m.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", m.SizeBytes)
	}
}
