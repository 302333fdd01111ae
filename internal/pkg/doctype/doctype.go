package doctype

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

var ErrUnsupported = errors.New("unsupported document type")

// WebTypes are the extensions accepted by the document chat page.
var WebTypes = []string{".txt", ".pdf", ".png", ".jpg"}

// BatchTypes are the extensions accepted by the command line driver.
// The provider only understands PDF documents there.
var BatchTypes = []string{".pdf"}

var expectedMIME = map[string]string{
	".txt": "text/plain",
	".pdf": "application/pdf",
	".png": "image/png",
	".jpg": "image/jpeg",
}

// Validate checks the file extension against allowed, sniffs the content to make sure it
// matches the extension and returns the MIME type to send to the provider.
func Validate(path string, allowed []string) (string, error) {
	return ValidateAs(path, path, allowed)
}

// ValidateAs is Validate for content stored at path under a different final name.
func ValidateAs(path, name string, allowed []string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !contains(allowed, ext) {
		return "", fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupported, ext, strings.Join(allowed, ", "))
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime type failed: %w", err)
	}
	want := expectedMIME[ext]
	if want != "" && !detected.Is(want) {
		return "", fmt.Errorf("%w: %s content is %s", ErrUnsupported, ext, detected.String())
	}

	if ext == ".pdf" {
		if err := checkPDF(path); err != nil {
			return "", err
		}
	}
	return Base(detected.String()), nil
}

// DetectFile returns the sniffed MIME type of path without parameters.
func DetectFile(path string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime type failed: %w", err)
	}
	return Base(detected.String()), nil
}

// Base strips parameters such as charset from a MIME type.
func Base(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.TrimSpace(base)
}

func checkPDF(path string) error {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("%w: unreadable pdf: %v", ErrUnsupported, err)
	}
	defer f.Close()
	if reader.NumPage() == 0 {
		return fmt.Errorf("%w: pdf has no pages", ErrUnsupported)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
