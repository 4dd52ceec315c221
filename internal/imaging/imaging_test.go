package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

// testImage encodes a solid-color image of the given size.
func testImage(t *testing.T, width, height int, encode func(*bytes.Buffer, image.Image) error) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func encodeJPEG(buf *bytes.Buffer, img image.Image) error {
	return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
}

func encodePNG(buf *bytes.Buffer, img image.Image) error {
	return png.Encode(buf, img)
}

func TestThumbnailResizes(t *testing.T) {
	src := testImage(t, 800, 600, encodeJPEG)

	data, err := Thumbnail(src, 400)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if data == nil {
		t.Fatal("expected thumbnail data for oversized image")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %q, want jpeg", format)
	}
	if cfg.Width != 400 {
		t.Errorf("width: got %d, want 400", cfg.Width)
	}
	if cfg.Height != 300 {
		t.Errorf("height: got %d, want 300 (aspect preserved)", cfg.Height)
	}
}

func TestThumbnailSkipsSmallImages(t *testing.T) {
	src := testImage(t, 200, 150, encodePNG)

	data, err := Thumbnail(src, 400)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if data != nil {
		t.Error("expected nil for image already within maxWidth")
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	_, err := Thumbnail(strings.NewReader("not an image"), 400)
	if err == nil {
		t.Error("expected error for non-image input")
	}
}

func TestThumbable(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/jpeg", true},
		{"image/png", true},
		{"image/webp", true},
		{"image/gif", false},
		{"image/svg+xml", false},
		{"video/mp4", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Thumbable(tt.contentType); got != tt.want {
			t.Errorf("Thumbable(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
