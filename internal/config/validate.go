package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError describes operator input that failed a format check.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// AllowedKeyTypes are the public key prefixes accepted for operator access.
var AllowedKeyTypes = []string{
	"ssh-ed25519",
	"ssh-rsa",
	"ecdsa-sha2-nistp256",
	"ecdsa-sha2-nistp384",
	"ecdsa-sha2-nistp521",
	"sk-ssh-ed25519@openssh.com",
	"sk-ecdsa-sha2-nistp256@openssh.com",
}

var (
	labelRegex    = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
	userNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)
)

// NormalizeDomain trims surrounding whitespace and lowercases the name.
func NormalizeDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateDomain checks an already-normalized domain against hostname label
// grammar. A scheme, path, port or embedded whitespace is rejected outright
// rather than stripped.
func ValidateDomain(domain string) error {
	fail := func(reason string) error {
		return &ValidationError{Field: "domain", Value: domain, Reason: reason}
	}

	if domain == "" {
		return fail("must not be empty")
	}
	if strings.Contains(domain, "://") {
		return fail("must not include a scheme")
	}
	if strings.ContainsAny(domain, "/?#") {
		return fail("must not include a path")
	}
	if strings.Contains(domain, ":") {
		return fail("must not include a port")
	}
	if strings.IndexFunc(domain, isSpace) >= 0 {
		return fail("must not contain whitespace")
	}
	if len(domain) > 253 {
		return fail("must be at most 253 characters")
	}
	if !strings.Contains(domain, ".") {
		return fail("must contain at least one dot")
	}

	for _, label := range strings.Split(domain, ".") {
		if label == "" {
			return fail("must not contain empty labels")
		}
		if !labelRegex.MatchString(label) {
			return fail(fmt.Sprintf("label %q must be 1-63 lowercase letters, digits or inner hyphens", label))
		}
	}
	return nil
}

// ValidatePublicKey checks that key starts with an accepted key type followed
// by a key body. It is a format check only; no key material is decoded.
func ValidatePublicKey(key string) error {
	key = strings.TrimSpace(key)
	fields := strings.Fields(key)
	if len(fields) < 2 {
		return &ValidationError{Field: "ssh_key", Value: truncate(key), Reason: "expected '<type> <base64> [comment]'"}
	}
	for _, t := range AllowedKeyTypes {
		if fields[0] == t {
			return nil
		}
	}
	return &ValidationError{
		Field:  "ssh_key",
		Value:  truncate(key),
		Reason: fmt.Sprintf("key type must be one of %s", strings.Join(AllowedKeyTypes, ", ")),
	}
}

// ValidateTimezone checks that tz names a zone in the system zone database.
func ValidateTimezone(tz string) error {
	if tz == "" || tz == "Local" {
		return &ValidationError{Field: "timezone", Value: tz, Reason: "must be an IANA zone name such as UTC or Europe/Paris"}
	}
	if strings.Contains(tz, "..") || strings.HasPrefix(tz, "/") {
		return &ValidationError{Field: "timezone", Value: tz, Reason: "must be a zone name, not a path"}
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return &ValidationError{Field: "timezone", Value: tz, Reason: "unknown zone"}
	}
	return nil
}

// ValidateUserName checks a POSIX-portable login name.
func ValidateUserName(name string) error {
	if !userNameRegex.MatchString(name) {
		return &ValidationError{Field: "admin_user", Value: name, Reason: "must start with a letter or underscore and use only a-z, 0-9, '_' or '-' (max 32)"}
	}
	if name == "root" {
		return &ValidationError{Field: "admin_user", Value: name, Reason: "must not be root"}
	}
	return nil
}

// ParseProfile maps menu input to a Profile. Unknown values are an error,
// never a default.
func ParseProfile(s string) (Profile, error) {
	for _, p := range Profiles {
		if Profile(s) == p {
			return p, nil
		}
	}
	return "", &ValidationError{Field: "profile", Value: s, Reason: fmt.Sprintf("must be one of %s", joinProfiles())}
}

// ParseSudoMode maps menu input to a SudoMode.
func ParseSudoMode(s string) (SudoMode, error) {
	for _, m := range SudoModes {
		if SudoMode(s) == m {
			return m, nil
		}
	}
	return "", &ValidationError{Field: "sudo_mode", Value: s, Reason: "must be password or passwordless"}
}

func joinProfiles() string {
	names := make([]string, len(Profiles))
	for i, p := range Profiles {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// truncate keeps long key material out of error messages.
func truncate(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
