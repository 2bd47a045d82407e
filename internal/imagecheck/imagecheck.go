package imagecheck

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLimit is how much of the payload head is inspected when content
// sniffing is enabled.
const SniffLimit = 8 * 1024

// Policy is the immutable image validation configuration injected into the
// checker and the upload path at construction.
type Policy struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
	AllowedMIMETypes  []string

	// SniffContent enables detection of the real type from the payload head
	SniffContent bool
}

// DefaultPolicy matches the strict production configuration: 1 MiB cap,
// the common raster formats, sniffing on.
func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes:      1 * 1024 * 1024,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"},
		AllowedMIMETypes: []string{
			"image/jpeg", "image/jpg", "image/png",
			"image/gif", "image/webp", "image/bmp",
		},
		SniffContent: true,
	}
}

// File describes one candidate upload. Head holds up to SniffLimit bytes of
// the payload and may be nil when sniffing is disabled.
type File struct {
	Name     string
	Size     int64
	MIMEType string
	Head     []byte
}

// Check runs every rule and returns all violations; an empty slice means the
// file is acceptable. It has no side effects.
func (p Policy) Check(f File) []string {
	var violations []string

	if f.Size > p.MaxSizeBytes {
		violations = append(violations, fmt.Sprintf(
			"file %s is too large (%.2f MB), maximum is %.2f MB",
			f.Name, float64(f.Size)/(1024*1024), float64(p.MaxSizeBytes)/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !contains(p.AllowedExtensions, ext) {
		violations = append(violations, fmt.Sprintf(
			"file %s has a disallowed extension, allowed: %s",
			f.Name, strings.Join(p.AllowedExtensions, ", ")))
	}

	declared := strings.ToLower(strings.TrimSpace(f.MIMEType))
	if !contains(p.AllowedMIMETypes, declared) {
		violations = append(violations, fmt.Sprintf(
			"file %s has a disallowed MIME type: %s", f.Name, f.MIMEType))
	}

	if p.SniffContent {
		violations = append(violations, p.sniff(f, declared)...)
	}

	return violations
}

// sniff detects the real type from the payload head and compares it against
// the declared one. image/jpg and image/jpeg alias each other.
func (p Policy) sniff(f File, declared string) []string {
	var violations []string

	detected := mimetype.Detect(f.Head).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}

	if !strings.HasPrefix(detected, "image/") {
		violations = append(violations, fmt.Sprintf(
			"file %s is not an image (detected as: %s)", f.Name, detected))
	}

	if declared != detected && !jpegAlias(declared, detected) {
		violations = append(violations, fmt.Sprintf(
			"file %s: declared type %s does not match detected type %s",
			f.Name, f.MIMEType, detected))
	}

	return violations
}

func jpegAlias(a, b string) bool {
	isJPEG := func(s string) bool { return s == "image/jpg" || s == "image/jpeg" }
	return isJPEG(a) && isJPEG(b)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
