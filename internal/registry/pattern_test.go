package registry

import "testing"

func TestParseOwnRule(t *testing.T) {
	tests := []struct {
		line     string
		wantOK   bool
		anchored bool
		pattern  string
	}{
		// Rejected
		{"", false, false, ""},
		{"   ", false, false, ""},
		{"/", false, false, ""},

		// Simple basename
		{"*.sql", true, false, "*.sql"},
		{"schema.sql", true, false, "schema.sql"},

		// Trailing slash stripped
		{"db/", true, false, "db"},

		// Root-relative
		{"/cmd", true, true, "cmd"},
		{"/internal/api/", true, true, "internal/api"},

		// Anchored (contains /)
		{"internal/api", true, true, "internal/api"},

		// Double-star (leading ** is not anchored)
		{"**/migrations", true, false, "**/migrations"},
		{"db/**", true, true, "db/**"},
		{"api/**/handlers", true, true, "api/**/handlers"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			rule, ok := parseOwnRule(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseOwnRule(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if rule.anchored != tt.anchored {
				t.Errorf("anchored = %v, want %v", rule.anchored, tt.anchored)
			}
			if rule.pattern != tt.pattern {
				t.Errorf("pattern = %q, want %q", rule.pattern, tt.pattern)
			}
		})
	}
}

func TestOwnRule_Match(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// Glob basename at any depth
		{"*.sql", "schema.sql", true},
		{"*.sql", "db/migrations/001_init.sql", true},
		{"*.sql", "db/readme.md", false},

		// Directory ownership: a bare directory name owns its subtree
		{"db", "db/schema.sql", true},
		{"db", "db", true},
		{"db", "database/schema.sql", false},
		{"db", "src/db/conn.go", true}, // non-anchored matches at any depth

		// Root-relative directory
		{"/cmd", "cmd/arbitr/main.go", true},
		{"/cmd", "internal/cmd/run.go", false},

		// Anchored path
		{"internal/api", "internal/api/server.go", true},
		{"internal/api", "internal/apiserver/s.go", false},

		// Trailing /**
		{"db/**", "db/schema.sql", true},
		{"db/**", "db/migrations/001_init.sql", true},
		{"db/**", "db", true},
		{"db/**", "dbx/schema.sql", false},

		// Leading **/
		{"**/migrations", "db/migrations", true},
		{"**/migrations", "migrations", true},
		{"**/migrations", "db/migration", false},

		// Middle /**/
		{"api/**/handlers", "api/v1/handlers", true},
		{"api/**/handlers", "api/handlers", true},
		{"api/**/handlers", "api/v1/internal/handlers", true},
		{"api/**/handlers", "web/v1/handlers", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" vs "+tt.path, func(t *testing.T) {
			rule, ok := parseOwnRule(tt.pattern)
			if !ok {
				t.Fatalf("parseOwnRule(%q) failed", tt.pattern)
			}
			if got := rule.match(tt.path); got != tt.want {
				t.Errorf("match(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestOwnRule_Specificity(t *testing.T) {
	broad, _ := parseOwnRule("db/**")
	narrow, _ := parseOwnRule("db/migrations/**")
	if narrow.specificity() <= broad.specificity() {
		t.Errorf("expected db/migrations/** (%d) more specific than db/** (%d)",
			narrow.specificity(), broad.specificity())
	}

	glob, _ := parseOwnRule("*.sql")
	literal, _ := parseOwnRule("schema.sql")
	if literal.specificity() <= glob.specificity() {
		t.Errorf("expected literal name more specific than glob")
	}
}
