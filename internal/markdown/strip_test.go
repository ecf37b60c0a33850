package markdown

import "testing"

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "  \n\t ", ""},
		{"plain", "Hello world.", "Hello world."},
		{"inline fence only", " ```code``` ", ""},
		{"fenced block", "Run this:\n\n```go\nfmt.Println(1)\n```\n\nDone.", "Run this: Done."},
		{"inline code", "Call `Stop()` to halt.", "Call to halt."},
		{"emphasis", "This is **very** _important_.", "This is very important."},
		{"link keeps text", "See [the docs](https://example.com) now.", "See the docs now."},
		{"image dropped", "Look ![a cat](cat.png) here.", "Look here."},
		{"autolink dropped", "Visit <https://example.com> today.", "Visit today."},
		{"heading", "# Summary\nAll good.", "Summary. All good."},
		{"heading with punctuation", "## Why?\nBecause.", "Why? Because."},
		{"bullets", "- first\n- second\n- third!", "first. second. third!"},
		{"numbered", "1. one\n2. two", "one. two."},
		{"soft breaks", "line one\nline two", "line one line two"},
		{"html", "<div>hidden</div>\n\nshown", "shown"},
		{"quote", "> quoted text", "quoted text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.in); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
