package utils

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// GenerateRandomString returns a random hex string of length n
func GenerateRandomString(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		panic("failed to read random bytes")
	}
	return hex.EncodeToString(b)[:n]
}

// SanitizeFilename strips path components and replaces anything that is not
// alphanumeric, dot, underscore or dash. Mail attachments arrive with
// arbitrary names and must never escape the storage directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = nonAlphanumeric.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "attachment"
	}
	return name
}

// NormalizeTaxID strips everything that is not a digit. "EL 123-456.789"
// becomes "123456789".
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
