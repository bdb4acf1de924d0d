package common

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "fragment stripped",
			input:    "https://example.com/menu#dinner",
			expected: "https://example.com/menu",
		},
		{
			name:     "scheme and host lowercased",
			input:    "HTTPS://Example.COM/Menu",
			expected: "https://example.com/Menu",
		},
		{
			name:     "path case preserved",
			input:    "https://example.com/About-Us",
			expected: "https://example.com/About-Us",
		},
		{
			name:     "root slash dropped",
			input:    "https://example.com/",
			expected: "https://example.com",
		},
		{
			name:     "bare host unchanged",
			input:    "https://example.com",
			expected: "https://example.com",
		},
		{
			name:     "non-root trailing path kept",
			input:    "https://example.com/menu/",
			expected: "https://example.com/menu/",
		},
		{
			name:     "query params sorted",
			input:    "https://example.com/search?z=1&a=2",
			expected: "https://example.com/search?a=2&z=1",
		},
		{
			name:     "repeated query key kept",
			input:    "https://example.com/p?b=2&a=1&a=0",
			expected: "https://example.com/p?a=1&a=0&b=2",
		},
		{
			name:     "equivalent forms collapse",
			input:    "HTTPS://WWW.Example.com/#top",
			expected: "https://www.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input); got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/Menu?b=2&a=1#frag",
		"http://www.example.com/",
		"https://example.com/contact",
	}
	for _, in := range inputs {
		once := NormalizeURL(in)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("NormalizeURL not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/menu", "example.com"},
		{"https://WWW.Example.COM", "www.example.com"},
		{"http://example.com:8080/path", "example.com:8080"},
		{"not a url at all\x7f://", ""},
		{"/relative/path", ""},
	}

	for _, tt := range tests {
		if got := Domain(tt.input); got != tt.expected {
			t.Errorf("Domain(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"identical hosts", "https://example.com/a", "https://example.com/b", true},
		{"www prefix ignored", "https://www.example.com", "https://example.com/menu", true},
		{"case insensitive", "https://EXAMPLE.com", "https://example.COM/x", true},
		{"different hosts", "https://example.com", "https://other.com", false},
		{"subdomain is a different origin", "https://blog.example.com", "https://example.com", false},
		{"scheme does not matter", "http://example.com", "https://example.com", true},
		{"unparseable left side", "://bad", "https://example.com", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameOrigin(tt.a, tt.b); got != tt.expected {
				t.Errorf("SameOrigin(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
