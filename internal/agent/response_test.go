package agent

import "testing"

func TestParseReplyPlainString(t *testing.T) {
	r := ParseReply([]byte(`{"output": "Hello there"}`))
	if r.Kind != ReplyPlainText {
		t.Fatalf("Expected ReplyPlainText, got %v", r.Kind)
	}
	if got := r.Text(); got != "Hello there" {
		t.Errorf("Expected %q, got %q", "Hello there", got)
	}
}

func TestParseReplyBlockListSkipsNonText(t *testing.T) {
	body := `{"output": [{"type":"text","text":"A"},{"type":"image"},{"type":"text","text":"B"}]}`
	r := ParseReply([]byte(body))
	if r.Kind != ReplyBlockList {
		t.Fatalf("Expected ReplyBlockList, got %v", r.Kind)
	}
	if got := r.Text(); got != "A\n\nB" {
		t.Errorf("Expected %q, got %q", "A\n\nB", got)
	}
}

func TestParseReplyUntypedBlockWithTextKept(t *testing.T) {
	body := `{"output": [{"text":"no type field"}]}`
	if got := ParseReply([]byte(body)).Text(); got != "no type field" {
		t.Errorf("Expected block with text but no type to be kept, got %q", got)
	}
}

func TestParseReplyFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<!doctype html>`},
		{"missing output", `{"result": "x"}`},
		{"empty string output", `{"output": ""}`},
		{"empty block list", `{"output": []}`},
		{"numeric output", `{"output": 42}`},
		{"blocks without text", `{"output": [{"type":"image"},{"type":"audio"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReply([]byte(tt.body)).Text(); got != FallbackReply {
				t.Errorf("Expected fallback reply, got %q", got)
			}
		})
	}
}
