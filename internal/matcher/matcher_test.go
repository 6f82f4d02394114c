package matcher

import "testing"

func TestMatcher(t *testing.T) {
	tests := []struct {
		name          string
		patterns      []string
		excludeSimple bool
		host          string
		want          bool
	}{
		// Exact match
		{"exact match", []string{"example.com"}, false, "example.com", true},
		{"exact match case insensitive", []string{"Example.COM"}, false, "example.com", true},
		{"exact match upper host", []string{"example.com"}, false, "EXAMPLE.com", true},
		{"exact no match", []string{"example.com"}, false, "other.com", false},
		{"exact no match subdomain", []string{"example.com"}, false, "sub.example.com", false},

		// Wildcard suffix
		{"wildcard match", []string{"*.example.com"}, false, "sub.example.com", true},
		{"wildcard match deep", []string{"*.example.com"}, false, "a.b.example.com", true},
		{"wildcard no match bare domain", []string{"*.example.com"}, false, "example.com", false},
		{"wildcard no match other", []string{"*.example.com"}, false, "other.com", false},
		{"wildcard no label boundary", []string{"*apple.com"}, false, "pineapple.com", true},
		{"wildcard suffix equals host", []string{"*apple.com"}, false, "apple.com", true},
		{"only last wildcard counts", []string{"foo*bar*.example.com"}, false, "x.example.com", true},
		{"prefix before wildcard ignored", []string{"internal*.corp"}, false, "public.corp", true},
		{"trailing wildcard has no suffix", []string{"example.*"}, false, "example.org", false},
		{"lone wildcard has no suffix", []string{"*"}, false, "anything.com", false},

		// Simple hostnames
		{"simple host excluded", nil, true, "intranet", true},
		{"simple host not excluded", nil, false, "intranet", false},
		{"dotted host not simple", nil, true, "intranet.corp", false},
		{"empty host is simple", nil, true, "", true},

		// Multiple patterns
		{"multi first match", []string{"a.com", "b.com"}, false, "a.com", true},
		{"multi second match", []string{"a.com", "*.b.com"}, false, "x.b.com", true},
		{"multi no match", []string{"a.com", "b.com"}, false, "c.com", false},

		// Edge cases
		{"whitespace handling", []string{" example.com "}, false, "example.com", true},
		{"empty pattern skipped", []string{"", "  "}, false, "", false},
		{"ip literal", []string{"192.168.0.1"}, false, "192.168.0.1", true},
		{"no cidr semantics", []string{"10.0.0.0/8"}, false, "10.1.2.3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.patterns, tt.excludeSimple)
			if got := m.Match(tt.host); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.host, got, tt.want)
			}
			if got := IsWhitelisted(tt.host, tt.patterns, tt.excludeSimple); got != tt.want {
				t.Errorf("IsWhitelisted(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestExcludeSimpleIgnoresWhitelist(t *testing.T) {
	for _, host := range []string{"localhost", "printer", "nas", "a"} {
		if !IsWhitelisted(host, []string{"unrelated.com", "*.other.org"}, true) {
			t.Errorf("IsWhitelisted(%q, _, true) = false, want true", host)
		}
	}
}

func TestMatcherPatterns(t *testing.T) {
	m := New([]string{"A.com", "*.b.com", "a.com", ""}, false)

	got := m.Patterns()
	want := []string{"a.com", "*.b.com"}
	if len(got) != len(want) {
		t.Fatalf("Patterns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Patterns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got[0] = "mutated"
	if m.Patterns()[0] != "a.com" {
		t.Error("Patterns() must return a copy")
	}
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	if m.Match("example.com") {
		t.Error("nil Matcher should not match")
	}
}

func TestWildcardSuffix(t *testing.T) {
	tests := []struct {
		pattern string
		suffix  string
		ok      bool
	}{
		{"*.example.com", ".example.com", true},
		{"a*b*c", "c", true},
		{"example.com", "", false},
		{"example*", "", false},
	}

	for _, tt := range tests {
		suffix, ok := WildcardSuffix(tt.pattern)
		if suffix != tt.suffix || ok != tt.ok {
			t.Errorf("WildcardSuffix(%q) = (%q, %v), want (%q, %v)", tt.pattern, suffix, ok, tt.suffix, tt.ok)
		}
	}
}

func BenchmarkMatcherExact(b *testing.B) {
	m := New([]string{"example.com"}, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match("example.com")
	}
}

func BenchmarkMatcherWildcard(b *testing.B) {
	m := New([]string{"*.example.com"}, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match("sub.example.com")
	}
}
