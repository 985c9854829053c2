package guard

import (
	"errors"
	"testing"
)

func TestValidateURL_Valid(t *testing.T) {
	cases := []string{
		"http://example.com",
		"https://example.com/path?q=1",
		"https://example.com:8443/feed.xml",
	}

	for _, raw := range cases {
		u, err := ValidateURL(raw)
		if err != nil {
			t.Errorf("ValidateURL(%q) returned error: %v", raw, err)
			continue
		}
		if u.String() != raw {
			t.Errorf("ValidateURL(%q).String() = %q", raw, u.String())
		}
	}
}

func TestValidateURL_Invalid(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"", ErrInvalidURL},
		{"notaurl", ErrInvalidURL},
		{"http://", ErrInvalidURL},
		{"://missing-scheme.com", ErrInvalidURL},
		{"ftp://example.com/file", ErrUnsupportedScheme},
		{"file:///etc/passwd", ErrUnsupportedScheme},
		{"javascript:alert(1)", ErrUnsupportedScheme},
		{"gopher://example.com", ErrUnsupportedScheme},
	}

	for _, tc := range cases {
		_, err := ValidateURL(tc.raw)
		if err == nil {
			t.Errorf("ValidateURL(%q) should fail", tc.raw)
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tc.raw, err, tc.want)
		}
	}
}

func TestValidatedURL_Accessors(t *testing.T) {
	u, err := ValidateURL("https://example.com:8080/page")
	if err != nil {
		t.Fatalf("ValidateURL failed: %v", err)
	}

	if u.Scheme() != "https" {
		t.Errorf("Scheme() = %q, want https", u.Scheme())
	}
	if u.Hostname() != "example.com" {
		t.Errorf("Hostname() = %q, want example.com", u.Hostname())
	}
}

func TestValidatedURL_Resolve(t *testing.T) {
	u, err := ValidateURL("https://example.com/a/b")
	if err != nil {
		t.Fatalf("ValidateURL failed: %v", err)
	}

	cases := []struct {
		ref  string
		want string
	}{
		{"/moved", "https://example.com/moved"},
		{"c", "https://example.com/a/c"},
		{"http://other.example.org/x", "http://other.example.org/x"},
	}

	for _, tc := range cases {
		resolved, err := u.Resolve(tc.ref)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tc.ref, err)
			continue
		}
		if resolved.String() != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.ref, resolved.String(), tc.want)
		}
	}
}
