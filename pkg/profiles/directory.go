// Package profiles maps (tenant, account) pairs to durable on-disk
// browser profile directories. A profile directory is created lazily
// by the browser itself on first launch and reused on later runs,
// which is what makes session creation idempotent.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Directory resolves profile paths under a fixed root. It performs
// path and naming logic only; the browser process is the sole writer
// of profile contents.
type Directory struct {
	root string
}

// NewDirectory creates a Directory rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{root: root}
}

// Root returns the directory all tenants live under.
func (d *Directory) Root() string {
	return d.root
}

// Sanitize replaces every character outside [a-zA-Z0-9_.@-] with an
// underscore so raw account and session names cannot traverse paths
// or produce filesystem-illegal names. It is idempotent.
func Sanitize(raw string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '_' || r == '.' || r == '@' || r == '-':
			return r
		default:
			return '_'
		}
	}, raw)

	// "." and ".." survive the character filter but are path
	// navigation, not names.
	if s == "." || s == ".." {
		return strings.ReplaceAll(s, ".", "_")
	}
	return s
}

// TenantRoot returns the directory holding all profiles of a tenant.
func (d *Directory) TenantRoot(tenantID string) string {
	return filepath.Join(d.root, Sanitize(tenantID))
}

// EnsureTenantRoot creates the tenant's root directory if absent.
// Calling it for an existing tenant is not an error.
func (d *Directory) EnsureTenantRoot(tenantID string) error {
	if err := os.MkdirAll(d.TenantRoot(tenantID), 0750); err != nil {
		return fmt.Errorf("failed to create tenant profile root: %w", err)
	}
	return nil
}

// ResolvePath returns the profile directory for an account or session
// name under a tenant. The directory is not created; the browser
// creates it on first launch.
func (d *Directory) ResolvePath(tenantID, rawName string) string {
	return filepath.Join(d.TenantRoot(tenantID), Sanitize(rawName))
}

// Exists reports whether the profile directory for the given name is
// already present on disk.
func (d *Directory) Exists(tenantID, rawName string) bool {
	info, err := os.Stat(d.ResolvePath(tenantID, rawName))
	return err == nil && info.IsDir()
}
