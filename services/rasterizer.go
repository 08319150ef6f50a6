package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

const rasterDPI = 200

// Background workers often run without a login shell, so PATH may not be
// authoritative. Check the usual install locations first.
var pdftoppmPaths = []string{
	"/usr/bin/pdftoppm",
	"/usr/local/bin/pdftoppm",
	"/opt/homebrew/bin/pdftoppm",
}

// RasterizeFirstPage prepares a document for the vision model. Non-PDF files
// are returned base64-encoded as-is with a page count of one. PDFs are
// rendered to a PNG of the first page, first in-process, then via the
// pdftoppm CLI. An empty payload means "cannot visually inspect" and is not
// an error. Page count is zero when it could not be determined.
func RasterizeFirstPage(path, mimeType string) (string, string, int) {
	if mimeType != "application/pdf" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[RASTER] read %s: %v", path, err)
			return "", mimeType, 0
		}
		return base64.StdEncoding.EncodeToString(data), mimeType, 1
	}

	if png, pages, err := renderWithFitz(path); err == nil {
		return base64.StdEncoding.EncodeToString(png), "image/png", pages
	} else {
		log.Printf("[RASTER] in-process render failed for %s: %v", path, err)
	}

	// The CLI only renders page one and reports nothing about the rest
	if png, err := renderWithPdftoppm(path); err == nil {
		return base64.StdEncoding.EncodeToString(png), "image/png", 0
	} else {
		log.Printf("[RASTER] pdftoppm fallback failed for %s: %v", path, err)
	}

	return "", mimeType, 0
}

func renderWithFitz(path string) (out []byte, pages int, err error) {
	// mupdf can abort on corrupt files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf render panic: %v", r)
		}
	}()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, 0, err
	}
	defer doc.Close()

	pages = doc.NumPage()
	if pages == 0 {
		return nil, 0, errors.New("pdf has no pages")
	}

	img, err := doc.ImageDPI(0, rasterDPI)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), pages, nil
}

func renderWithPdftoppm(path string) ([]byte, error) {
	bin := resolvePdftoppm()
	if bin == "" {
		return nil, errors.New("pdftoppm binary not found")
	}

	tmpDir, err := os.MkdirTemp("", "raster-")
	if err != nil {
		return nil, err
	}
	// Temp files must go on every exit path, including timeout
	defer os.RemoveAll(tmpDir)

	outBase := filepath.Join(tmpDir, "page")

	ctx, cancel := context.WithTimeout(context.Background(), rasterTimeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "-f", "1", "-l", "1", "-png", path, outBase)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, bytes.TrimSpace(output))
	}

	data, err := os.ReadFile(outBase + "-1.png")
	if err != nil {
		// some builds zero-pad the page suffix
		matches, _ := filepath.Glob(outBase + "-*.png")
		if len(matches) == 0 {
			return nil, fmt.Errorf("pdftoppm produced no output: %v", err)
		}
		data, err = os.ReadFile(matches[0])
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func resolvePdftoppm() string {
	for _, p := range pdftoppmPaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	if p, err := exec.LookPath("pdftoppm"); err == nil {
		return p
	}
	return ""
}

func rasterTimeout() time.Duration {
	if env := os.Getenv("RASTER_TIMEOUT_SECONDS"); env != "" {
		if s, err := strconv.Atoi(env); err == nil && s > 0 {
			return time.Duration(s) * time.Second
		}
	}
	return 20 * time.Second
}
