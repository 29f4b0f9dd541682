package launcher

import (
	"strings"
	"testing"
)

func TestFormatPrompts_ThirtyTwoPromptsInOrder(t *testing.T) {
	prompts := FormatPrompts()
	if len(prompts) != 32 {
		t.Fatalf("expected 32 prompts, got %d", len(prompts))
	}
	qs := Questions()
	for i, p := range prompts {
		if !strings.Contains(p, qs[i]) {
			t.Errorf("prompt %d does not contain question %q", i, qs[i])
		}
	}
}

func TestFormatPrompts_MarkersAppearInOrder(t *testing.T) {
	for i, p := range FormatPrompts() {
		pos := 0
		for _, marker := range []string{"<|begin_of_text|>", "system", "user", "assistant"} {
			idx := strings.Index(p[pos:], marker)
			if idx < 0 {
				t.Fatalf("prompt %d: marker %q missing after offset %d", i, marker, pos)
			}
			pos += idx + len(marker)
		}
	}
}

func TestFormatPrompts_WrappedExactlyOnce(t *testing.T) {
	for i, p := range FormatPrompts() {
		if n := strings.Count(p, "<|begin_of_text|>"); n != 1 {
			t.Errorf("prompt %d: %d begin markers, want 1", i, n)
		}
		if n := strings.Count(p, SystemPrompt); n != 1 {
			t.Errorf("prompt %d: system prompt appears %d times, want 1", i, n)
		}
		if !strings.HasSuffix(p, "<|start_header_id|>assistant<|end_header_id|>\n") {
			t.Errorf("prompt %d does not end with the assistant header", i)
		}
	}
}

func TestFormatPrompt_ExactLayout(t *testing.T) {
	got := FormatPrompt("SYS", "Q?")
	want := "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n" +
		"SYS<|eot_id|>\n" +
		"<|start_header_id|>user<|end_header_id|>\n" +
		"Q?<|eot_id|>\n" +
		"<|start_header_id|>assistant<|end_header_id|>\n"
	if got != want {
		t.Errorf("FormatPrompt mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFormatPrompt_PlaceholderInSystemPromptIsLiteral(t *testing.T) {
	got := FormatPrompt("{user_prompt}", "x")
	if !strings.Contains(got, "{user_prompt}<|eot_id|>") {
		t.Errorf("placeholder inside system prompt was re-expanded: %q", got)
	}
}

func TestQuestions_ReturnsCopy(t *testing.T) {
	qs := Questions()
	qs[0] = "mutated"
	if Questions()[0] == "mutated" {
		t.Error("Questions exposed the package-level slice")
	}
}
