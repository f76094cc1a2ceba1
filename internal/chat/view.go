package chat

import (
	"github.com/cbag-ai/cbag-web/internal/domain"
	"github.com/cbag-ai/cbag-web/internal/render"
)

// View is the UI-facing projection of a session: everything the widget
// needs to render, derived from a snapshot and holding no state of its own.
type View struct {
	Identity     IdentityView  `json:"identity"`
	Messages     []MessageView `json:"messages"`
	Phase        Phase         `json:"phase"`
	InputEnabled bool          `json:"input_enabled"`
	ShowRegister bool          `json:"show_register_prompt"`
	FreeUsesLeft int           `json:"free_uses_left"`
	Placeholder  string        `json:"placeholder"`
}

// IdentityView is the identity slice of the view.
type IdentityView struct {
	Registered  bool   `json:"registered"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// MessageView is one rendered transcript entry. HTML is safe to inject:
// agent replies are sanitized markdown, everything else is escaped text.
type MessageView struct {
	ID     string      `json:"id"`
	Role   domain.Role `json:"role"`
	HTML   string      `json:"html"`
	TurnID string      `json:"turn_id,omitempty"`
}

// NewView projects a snapshot into its rendered form.
func NewView(snap Snapshot) View {
	msgs := make([]MessageView, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		html := render.EscapedHTML(m.Content)
		if m.Role == domain.RoleAgent {
			html = render.AgentHTML(m.Content)
		}
		msgs = append(msgs, MessageView{ID: m.ID, Role: m.Role, HTML: html, TurnID: m.TurnID})
	}

	left := 0
	if snap.Identity.IsAnonymous() {
		left = snap.MaxFreeUses - snap.UsesCount
		if left < 0 {
			left = 0
		}
	}

	placeholder := "Ask a question about CBAM..."
	if snap.Phase == PhaseLocked {
		placeholder = "Trial limit reached."
	}

	return View{
		Identity: IdentityView{
			Registered:  snap.Identity.Registered,
			Email:       snap.Identity.Email,
			DisplayName: snap.Identity.DisplayName,
		},
		Messages:     msgs,
		Phase:        snap.Phase,
		InputEnabled: snap.Phase == PhaseIdle,
		ShowRegister: snap.Phase == PhaseLocked,
		FreeUsesLeft: left,
		Placeholder:  placeholder,
	}
}
