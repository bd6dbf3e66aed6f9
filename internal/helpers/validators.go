package helpers

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var appNameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// IsValidAppName checks that a name is usable as a process name and as part
// of file and log paths.
func IsValidAppName(name string) error {
	if len(name) == 0 || len(name) > 63 {
		return fmt.Errorf("app name length must be between 1 and 63 characters")
	}
	if !appNameRegex.MatchString(name) {
		return fmt.Errorf("app name must contain only lowercase letters, digits and hyphens, and cannot start or end with a hyphen")
	}
	return nil
}

var secretNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidSecretName checks that a name can be used as a secret key.
func IsValidSecretName(name string) error {
	if len(name) == 0 || len(name) > 128 {
		return fmt.Errorf("secret name length must be between 1 and 128 characters")
	}
	if !secretNameRegex.MatchString(name) {
		return fmt.Errorf("secret name must contain only letters, digits, underscores and hyphens")
	}
	return nil
}

// IsValidHost accepts either an IP address or a DNS name.
func IsValidHost(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	return isValidDomain(host)
}

func isValidDomain(domain string) error {
	if len(domain) == 0 || len(domain) > 253 {
		return fmt.Errorf("domain length must be between 1 and 253 characters")
	}

	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return fmt.Errorf("domain cannot start or end with a dot")
	}

	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("domain cannot start or end with a hyphen")
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if err := validateDomainLabel(label); err != nil {
			return fmt.Errorf("invalid label '%s': %w", label, err)
		}
	}

	return nil
}

func validateDomainLabel(label string) error {
	if len(label) == 0 || len(label) > 63 {
		return fmt.Errorf("label length must be between 1 and 63 characters")
	}

	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return fmt.Errorf("label cannot start or end with hyphen")
	}

	for _, r := range label {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-') {
			return fmt.Errorf("label contains invalid character: %c", r)
		}
	}

	return nil
}
