package collector

import (
	"context"
	"strings"
)

// Prompt keys. Scripted answers files are keyed by these.
const (
	KeyDomain        = "domain"
	KeyDomainConfirm = "domain_confirm"
	KeySSHKey        = "ssh_key"
	KeyProfile       = "profile"
	KeySudoMode      = "sudo_mode"
	KeyTimezone      = "timezone"
	KeyTunnel        = "tunnel"
	KeyAdminUser     = "admin_user"
	KeyReuse         = "reuse"
	KeyConfirm       = "confirm"
)

// Prompt is one question put to the operator.
type Prompt struct {
	Key         string
	Title       string
	Description string
	Placeholder string
	// Default is returned for an empty answer. For confirms it is "yes" or
	// "no".
	Default string
}

// Option is one entry of a closed menu.
type Option struct {
	Label string
	Value string
}

// InputSource asks the operator questions. Implementations block until an
// answer is available or ctx is done.
type InputSource interface {
	Input(ctx context.Context, p Prompt) (string, error)
	Select(ctx context.Context, p Prompt, options []Option) (string, error)
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// parseYesNo accepts the usual spellings of a yes/no answer.
func parseYesNo(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	}
	return false, false
}
