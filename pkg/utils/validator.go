package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clientNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateClientName checks a candidate client name before it is ever used
// as a positional argument to the management command or as a path component
// under the clients directory. Every caller that touches either surface must
// validate first; there is no bypass.
func ValidateClientName(name string) error {
	if name == "" {
		return fmt.Errorf("client name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("client name too long (max 64 characters)")
	}
	if !clientNameRegex.MatchString(name) {
		return fmt.Errorf("client name can only contain letters, numbers, underscores and dashes")
	}
	// A leading dash would be parsed as a flag by the management script.
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("client name cannot start with a dash")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		return fmt.Errorf("client name cannot contain .. or /")
	}
	return nil
}

// IsValidIPv4 accepts only canonical dotted-decimal IPv4 literals: exactly
// four groups, each 0-255, no leading zeros, no hex or shorthand forms.
func IsValidIPv4(ip string) bool {
	for _, c := range ip {
		if c != '.' && (c < '0' || c > '9') {
			return false
		}
	}

	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return false
		}
		if n < 0 || n > 255 {
			return false
		}
		// Reject non-canonical forms like "01" or "007".
		if part != strconv.Itoa(n) {
			return false
		}
	}
	return true
}
