package claude

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestExtractText_SingleBlock(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "analysis result"},
		},
	}
	if got := extractText(msg); got != "analysis result" {
		t.Errorf("extractText = %q, want %q", got, "analysis result")
	}
}

func TestExtractText_JoinsMultipleBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "first"},
			{Type: "text", Text: "second"},
		},
	}
	if got := extractText(msg); got != "first\nsecond" {
		t.Errorf("extractText = %q, want %q", got, "first\nsecond")
	}
}

func TestExtractText_SkipsNonText(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking", Text: "hmm"},
			{Type: "text", Text: "visible"},
		},
	}
	if got := extractText(msg); got != "visible" {
		t.Errorf("extractText = %q, want %q", got, "visible")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := New("key", "model").Name(); got != "claude" {
		t.Errorf("Name = %q, want %q", got, "claude")
	}
}
