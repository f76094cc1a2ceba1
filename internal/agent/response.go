package agent

import (
	"encoding/json"
	"strings"
)

// FallbackReply is shown when the webhook answers with a shape we cannot
// interpret.
const FallbackReply = "Sorry, I couldn't understand the response."

// ReplyKind classifies the shape of a webhook response body.
type ReplyKind int

const (
	// ReplyPlainText is `{"output": "..."}`.
	ReplyPlainText ReplyKind = iota
	// ReplyBlockList is `{"output": [{"type": "text", "text": "..."}, ...]}`.
	ReplyBlockList
	// ReplyUnrecognized covers everything else.
	ReplyUnrecognized
)

// ContentBlock is one element of a block-list reply. Only blocks carrying
// text contribute to the rendered reply.
type ContentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}

// Reply is a webhook response classified into one of the accepted shapes.
type Reply struct {
	Kind   ReplyKind
	Plain  string
	Blocks []ContentBlock
}

// ParseReply classifies a webhook response body. It never fails: shapes it
// does not recognize become ReplyUnrecognized and degrade to fallback text.
func ParseReply(body []byte) Reply {
	var envelope struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Output) == 0 {
		return Reply{Kind: ReplyUnrecognized}
	}

	var plain string
	if err := json.Unmarshal(envelope.Output, &plain); err == nil {
		return Reply{Kind: ReplyPlainText, Plain: plain}
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(envelope.Output, &blocks); err == nil {
		return Reply{Kind: ReplyBlockList, Blocks: blocks}
	}

	return Reply{Kind: ReplyUnrecognized}
}

// Text flattens the reply into the string shown in the transcript. Block
// lists keep textual blocks joined with a blank line; an empty result of
// any kind degrades to FallbackReply.
func (r Reply) Text() string {
	switch r.Kind {
	case ReplyPlainText:
		if r.Plain == "" {
			return FallbackReply
		}
		return r.Plain
	case ReplyBlockList:
		var parts []string
		for _, b := range r.Blocks {
			if b.Type == "text" || b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		joined := strings.Join(parts, "\n\n")
		if joined == "" {
			return FallbackReply
		}
		return joined
	default:
		return FallbackReply
	}
}
