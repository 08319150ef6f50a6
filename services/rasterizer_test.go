package services

import (
	"encoding/base64"
	"testing"
)

func TestRasterizeFirstPageImagePassthrough(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	path := writeTestFile(t, "scan.png", data)

	payload, mime, pages := RasterizeFirstPage(path, "image/png")
	if mime != "image/png" {
		t.Errorf("mime %q, want image/png", mime)
	}
	if pages != 1 {
		t.Errorf("pages %d, want 1 for a single image", pages)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if string(decoded) != string(data) {
		t.Error("image bytes must pass through unchanged")
	}
}

func TestRasterizeFirstPageMissingFile(t *testing.T) {
	payload, mime, pages := RasterizeFirstPage("/nonexistent/scan.jpg", "image/jpeg")
	if payload != "" {
		t.Error("unreadable file must yield an empty payload")
	}
	if mime != "image/jpeg" {
		t.Errorf("mime %q, want original image/jpeg", mime)
	}
	if pages != 0 {
		t.Errorf("pages %d, want 0 when nothing could be read", pages)
	}
}

func TestRasterizeFirstPageCorruptPDF(t *testing.T) {
	path := writeTestFile(t, "broken.pdf", []byte("%PDF-1.4 truncated garbage"))

	// Both render paths fail on a corrupt document; that is a degradation,
	// not a crash
	payload, mime, pages := RasterizeFirstPage(path, "application/pdf")
	if payload != "" {
		t.Error("corrupt pdf must yield an empty payload")
	}
	if mime != "application/pdf" {
		t.Errorf("mime %q, want application/pdf", mime)
	}
	if pages != 0 {
		t.Errorf("pages %d, want 0 for an unreadable document", pages)
	}
}
