package markdown

import "testing"

func TestRemoveFrontmatter(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"none", "# Title\nBody.", "# Title\nBody."},
		{"leading", "---\ntitle: Notes\n---\nBody.", "Body."},
		{"crlf", "---\r\ntitle: x\r\n---\r\nBody.", "Body."},
		{"not at start", "Intro\n---\nmore\n---\nend", "Intro\n---\nmore\n---\nend"},
		{"unterminated", "---\ntitle: x\nBody.", "---\ntitle: x\nBody."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RemoveFrontmatter([]byte(tt.in))); got != tt.want {
				t.Errorf("RemoveFrontmatter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
