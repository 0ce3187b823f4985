// Package artifacts renders the host-side files that steps hand to their
// external actions, and writes them without churning unchanged content.
package artifacts

import (
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	// BeginMarker is the start delimiter for the managed block.
	BeginMarker = "# --- BEGIN HOSTFORGE MANAGED BLOCK ---"
	// EndMarker is the end delimiter for the managed block.
	EndMarker = "# --- END HOSTFORGE MANAGED BLOCK ---"
)

// RenderAuthorizedKeys produces an authorized_keys managed block containing
// keys in the order given. The vm_setup action splices it into the admin
// user's file, preserving anything outside the markers.
func RenderAuthorizedKeys(keys []string) string {
	lines := make([]string, 0, len(keys)+2)
	lines = append(lines, BeginMarker)
	for _, k := range keys {
		lines = append(lines, strings.TrimSpace(k))
	}
	lines = append(lines, EndMarker)
	return strings.Join(lines, "\n") + "\n"
}

// ManagedKeys extracts the key lines between the markers of content.
// Comments and blank lines inside the block are ignored.
func ManagedKeys(content string) (keys []string, found bool) {
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == BeginMarker:
			inBlock, found = true, true
		case trimmed == EndMarker:
			inBlock = false
		case inBlock && trimmed != "" && !strings.HasPrefix(trimmed, "#"):
			keys = append(keys, trimmed)
		}
	}
	return keys, found
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys line, or
// false when the key body does not decode.
func Fingerprint(key string) (string, bool) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil {
		return "", false
	}
	return ssh.FingerprintSHA256(pub), true
}
