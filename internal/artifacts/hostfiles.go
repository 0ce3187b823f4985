package artifacts

import (
	"fmt"
	"strings"

	"github.com/lockwave-io/hostforge/internal/config"
)

const fileHeader = "# Managed by hostforge. Do not edit; rerun hostforge instead.\n"

// RenderSSHDropIn produces the sshd_config.d drop-in applied by the
// ssh_hardening action. Only key-based logins by the admin user are allowed.
func RenderSSHDropIn(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(fileHeader)
	b.WriteString("PasswordAuthentication no\n")
	b.WriteString("KbdInteractiveAuthentication no\n")
	b.WriteString("PermitRootLogin no\n")
	b.WriteString("PubkeyAuthentication yes\n")
	fmt.Fprintf(&b, "AllowUsers %s\n", cfg.AdminUser)
	b.WriteString("MaxAuthTries 3\n")
	return b.String()
}

// RenderSudoers produces the sudoers.d entry for the admin user.
func RenderSudoers(cfg *config.Config) string {
	rule := "ALL=(ALL:ALL) ALL"
	if cfg.SudoMode == config.SudoPasswordless {
		rule = "ALL=(ALL:ALL) NOPASSWD: ALL"
	}
	return fileHeader + fmt.Sprintf("%s %s\n", cfg.AdminUser, rule)
}
