// Package security guards the download pass-through: generated-image URLs
// must be public HTTPS, and save paths must stay inside the working tree.
package security

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidScheme = fmt.Errorf("only HTTPS URLs are allowed")
	ErrPrivateIP     = fmt.Errorf("URL resolves to private IP address")
	ErrPathTraversal = fmt.Errorf("path traversal detected")

	skipValidation = false
)

// SetSkipValidation disables URL checks. Tests use it to point downloads at
// local fixtures.
func SetSkipValidation(skip bool) {
	skipValidation = skip
}

// ValidateImageURL rejects URLs that cannot be a generated-image location:
// non-HTTPS schemes and hosts that resolve to private address space.
func ValidateImageURL(rawURL string) error {
	if skipValidation {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	host := parsed.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Unresolvable hosts fail at download time with a clearer error.
		return nil
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// ValidateSavePath rejects relative paths that escape the current directory
// and filenames that could be mistaken for flags.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return nil
	}

	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return ErrPathTraversal
	}

	if strings.HasPrefix(filepath.Base(cleaned), "-") {
		return fmt.Errorf("filename cannot start with hyphen")
	}

	return nil
}
