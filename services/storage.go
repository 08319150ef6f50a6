package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/google/uuid"
)

// StorageRoot is the base directory for persisted attachment files
func StorageRoot() string {
	if root := os.Getenv("STORAGE_PATH"); root != "" {
		return root
	}
	return "./storage"
}

// SaveInvoiceFile writes an attachment under the owner's namespace:
// invoices/{user_id}/ for uploads, invoices/draft/{user_id}/ for
// email-sourced drafts. Returns the absolute storage path.
func SaveInvoiceFile(userID uuid.UUID, filename string, data []byte, draft bool) (string, error) {
	var dir string
	if draft {
		dir = filepath.Join(StorageRoot(), "invoices", "draft", userID.String())
	} else {
		dir = filepath.Join(StorageRoot(), "invoices", userID.String())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%s",
		time.Now().Format("20060102150405"),
		utils.GenerateRandomString(6),
		utils.SanitizeFilename(filename))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// DetectMimeType maps a filename extension to the mime types the pipeline
// accepts
func DetectMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// AllowedAttachment reports whether the pipeline can process this file type
func AllowedAttachment(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
