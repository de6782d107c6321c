package helpers

import "testing"

func TestUnwrapFencedAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown fence", "```markdown\n## Safety Assessment\nSafe.\n```", "## Safety Assessment\nSafe."},
		{"untagged fence", "~~~\nhello\n~~~", "hello"},
		{"code fence kept", "```go\nfmt.Println()\n```", "```go\nfmt.Println()\n```"},
		{"leading byte order mark", "\uFEFF```md\nSafe.\n```", "Safe."},
		{"not fenced", "## Heading\ntext", "## Heading\ntext"},
		{"two fences kept", "```\na\n```\ntext\n```\nb\n```", "```\na\n```\ntext\n```\nb\n```"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := UnwrapFencedAnswer(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
