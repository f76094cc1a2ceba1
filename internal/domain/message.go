package domain

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleUser marks visitor-submitted text.
	RoleUser Role = "user"
	// RoleAgent marks replies from the remote agent, including delivery
	// fallbacks rendered in the agent's voice.
	RoleAgent Role = "agent"
	// RoleSystem marks notices from the application itself, such as the
	// trial-limit banner.
	RoleSystem Role = "system"
)

// Message is one entry in the conversation transcript. Messages are
// immutable once appended and keep insertion order; they live in memory
// only and do not survive a restart.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	TurnID  string `json:"turn_id,omitempty"`
}

// TurnStatus is the lifecycle state of a request/response cycle.
type TurnStatus string

const (
	TurnPending   TurnStatus = "pending"
	TurnSucceeded TurnStatus = "succeeded"
	TurnFailed    TurnStatus = "failed"
)

// Turn is one user-submission-to-settlement cycle against the remote agent.
// At most one turn per session may be pending at a time.
type Turn struct {
	ID        string
	InputText string
	Status    TurnStatus
}
