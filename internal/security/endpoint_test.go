package security

import "testing"

func TestValidateEndpointURLBlocksUnsafeHosts(t *testing.T) {
	bad := []string{
		"ftp://example.com/feed",
		"http://",
		"http://localhost:8080/hook",
		"http://127.0.0.1/hook",
		"http://10.0.0.5/hook",
		"http://192.168.1.1/hook",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/",
		"http://metadata.google.internal/",
		"not a url at all://",
	}
	for _, u := range bad {
		if err := ValidateEndpointURL(u); err == nil {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestValidateEndpointURLAllowsPublicIPLiterals(t *testing.T) {
	// IP literals skip DNS, so these run offline
	good := []string{
		"https://8.8.8.8/agent",
		"http://1.1.1.1:9000/status",
	}
	for _, u := range good {
		if err := ValidateEndpointURL(u); err != nil {
			t.Errorf("expected %q to be accepted, got %v", u, err)
		}
	}
}
