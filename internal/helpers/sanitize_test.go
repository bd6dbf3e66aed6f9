package helpers

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"alphanumeric", "abc123XYZ", "abc123XYZ"},
		{"with hyphens", "my-app-name", "my-app-name"},
		{"with underscores", "my_app_name", "my_app_name"},
		{"with dots", "my.app.name", "my_app_name"},
		{"with spaces", "my app name", "my_app_name"},
		{"mixed disallowed", "my!app@name#$", "my_app_name_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.want {
				t.Errorf("SanitizeString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSafeIDPrefix(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"long id", "abcdef1234567890", "abcdef123456"},
		{"exact length id", "abcdef123456", "abcdef123456"},
		{"short id", "abcde", "abcde"},
		{"empty id", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeIDPrefix(tt.id); got != tt.want {
				t.Errorf("SafeIDPrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidAppName(t *testing.T) {
	valid := []string{"app", "my-app", "web2", "a"}
	for _, name := range valid {
		if err := IsValidAppName(name); err != nil {
			t.Errorf("IsValidAppName(%q) = %v, want nil", name, err)
		}
	}
	invalid := []string{"", "-app", "app-", "My App", "app.name", "UPPER"}
	for _, name := range invalid {
		if err := IsValidAppName(name); err == nil {
			t.Errorf("IsValidAppName(%q) = nil, want error", name)
		}
	}
}

func TestIsValidHost(t *testing.T) {
	valid := []string{"192.168.1.10", "example.com", "deploy.internal.example.com", "2001:db8::1"}
	for _, host := range valid {
		if err := IsValidHost(host); err != nil {
			t.Errorf("IsValidHost(%q) = %v, want nil", host, err)
		}
	}
	invalid := []string{"", ".example.com", "example.com.", "-bad.com"}
	for _, host := range invalid {
		if err := IsValidHost(host); err == nil {
			t.Errorf("IsValidHost(%q) = nil, want error", host)
		}
	}
}
