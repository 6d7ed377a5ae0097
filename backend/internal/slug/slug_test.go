package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Tool", "my-tool"},
		{"  Hello   World  ", "hello-world"},
		{"C++ & Rust!", "c-rust"},
		{"already-sluggy", "already-sluggy"},
		{"--weird--input--", "weird-input"},
		{"Tiếng Việt App", "ting-vit-app"},
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
		{"under_score kept", "under_score-kept"},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Fatalf("Make(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWithID(t *testing.T) {
	if got := WithID("My Tool", 42); got != "my-tool-42" {
		t.Fatalf("unexpected slug: %q", got)
	}
	if got := WithID("!!!", 7); got != "7" {
		t.Fatalf("empty base should fall back to id: %q", got)
	}
}

func TestParseTokenNumeric(t *testing.T) {
	tok := ParseToken("42")
	if !tok.Numeric || tok.ID != 42 {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestParseTokenSlug(t *testing.T) {
	tok := ParseToken("my-tool-42")
	if tok.Numeric {
		t.Fatalf("expected slug token: %+v", tok)
	}
	if tok.Slug != "my-tool-42" {
		t.Fatalf("unexpected slug: %q", tok.Slug)
	}
}

func TestLegacyIDPrefix(t *testing.T) {
	tok := ParseToken("42-cool-app")
	id, ok := tok.LegacyIDPrefix()
	if !ok || id != 42 {
		t.Fatalf("expected legacy id 42, got %d ok=%v", id, ok)
	}

	if _, ok := ParseToken("cool-app").LegacyIDPrefix(); ok {
		t.Fatal("non-numeric prefix must not resolve")
	}
	if _, ok := ParseToken("7").LegacyIDPrefix(); ok {
		t.Fatal("numeric token has no legacy prefix")
	}
}
