// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"attesta/internal/imaging"
	"attesta/internal/middleware"
	"attesta/internal/models"
	"attesta/internal/storage"
	"attesta/internal/store"
)

const (
	// maxUploadSize is the maximum allowed file upload size (50 MB).
	maxUploadSize = 50 << 20

	// thumbMaxWidth is the maximum thumbnail width in pixels.
	thumbMaxWidth = 400

	// orphanAge is how long an unclaimed upload survives before the
	// sweep removes it.
	orphanAge = 24 * time.Hour
)

// Uploads groups the media upload and maintenance handlers. Uploaded
// files go straight to object storage; a ledger row tracks each one
// until a testimonial claims it.
type Uploads struct {
	media   *store.MediaStore
	storage *storage.Client
}

// NewUploads creates the upload handler group.
func NewUploads(media *store.MediaStore, storageClient *storage.Client) *Uploads {
	return &Uploads{media: media, storage: storageClient}
}

// Image accepts a multipart image upload and returns its public URL.
func (h *Uploads) Image(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.MediaImage)
}

// Video accepts a multipart video upload and returns its public URL.
// The submission form sends everything that is not image/* here.
func (h *Uploads) Video(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, models.MediaVideo)
}

func (h *Uploads) upload(w http.ResponseWriter, r *http.Request, kind models.MediaKind) {
	if h.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())

	// Limit the body to maxUploadSize plus some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "file too large, maximum size is 50 MB")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		respondError(w, http.StatusRequestEntityTooLarge, "file too large, maximum size is 50 MB")
		return
	}

	contentType, err := sniffContentType(file)
	if err != nil {
		respondInternal(w, "upload sniff failed", err)
		return
	}
	if msg := checkUploadType(kind, contentType); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		respondInternal(w, "upload read failed", err)
		return
	}

	now := time.Now()
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = extensionFromType(contentType)
	}
	fileID := uuid.New().String()
	s3Key := fmt.Sprintf("media/%d/%02d/%s%s", now.Year(), now.Month(), fileID, ext)

	ctx := r.Context()
	if err := h.storage.Upload(ctx, s3Key, contentType, bytes.NewReader(fileBytes), int64(len(fileBytes))); err != nil {
		slog.Error("s3 upload failed", "error", err, "key", s3Key)
		respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	// Thumbnails are an optimization for the moderation queue; failures
	// never fail the upload.
	if kind == models.MediaImage && imaging.Thumbable(contentType) {
		thumb, err := imaging.Thumbnail(bytes.NewReader(fileBytes), thumbMaxWidth)
		if err != nil {
			slog.Warn("thumbnail generation failed", "error", err, "key", s3Key)
		} else if thumb != nil {
			thumbKey := fmt.Sprintf("media/%d/%02d/%s_thumb.jpg", now.Year(), now.Month(), fileID)
			if err := h.storage.Upload(ctx, thumbKey, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
				slog.Warn("thumbnail upload failed", "error", err, "key", thumbKey)
			}
		}
	}

	url := h.storage.FileURL(s3Key)
	if _, err := h.media.Create(s3Key, url, kind, contentType, int64(len(fileBytes)), sess.UserID); err != nil {
		slog.Error("media ledger write failed", "error", err, "key", s3Key)
	}

	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// DeleteOrphans removes unclaimed uploads older than a day from both
// object storage and the ledger. Compensation for the two-phase upload:
// a file whose testimonial POST never followed eventually disappears.
func (h *Uploads) DeleteOrphans(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	orphans, err := h.media.ListOrphans(time.Now().Add(-orphanAge))
	if err != nil {
		respondInternal(w, "orphan listing failed", err)
		return
	}

	deleted := 0
	for _, m := range orphans {
		if err := h.storage.Delete(r.Context(), m.S3Key); err != nil {
			slog.Warn("orphan s3 delete failed", "error", err, "key", m.S3Key)
			continue
		}
		if err := h.media.Delete(m.ID); err != nil {
			slog.Warn("orphan ledger delete failed", "error", err, "key", m.S3Key)
			continue
		}
		deleted++
	}

	slog.Info("orphan sweep complete", "candidates", len(orphans), "deleted", deleted)
	respondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// sniffContentType detects the real content type from the first 512
// bytes and rewinds the file.
func sniffContentType(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read sniff buffer: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind after sniff: %w", err)
	}
	return http.DetectContentType(buf[:n]), nil
}

// checkUploadType enforces that the sniffed type matches the endpoint:
// image/* for the image endpoint, video/* for the video one. Claimed
// filenames and MIME headers are ignored on purpose.
func checkUploadType(kind models.MediaKind, contentType string) string {
	switch kind {
	case models.MediaImage:
		if !strings.HasPrefix(contentType, "image/") {
			return fmt.Sprintf("file type %q is not an image", contentType)
		}
	case models.MediaVideo:
		if !strings.HasPrefix(contentType, "video/") {
			return fmt.Sprintf("file type %q is not a video", contentType)
		}
	}
	return ""
}

// extensionFromType maps common media types to a file extension when
// the uploaded filename has none.
func extensionFromType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/avi":
		return ".avi"
	default:
		return ""
	}
}
