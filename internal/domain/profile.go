package domain

import "time"

// Profile is the persisted projection of a chat session: who the device
// belongs to and how many free uses it has consumed. Transcript messages
// and in-flight turns are deliberately not part of it.
type Profile struct {
	DeviceID  string
	Identity  Identity
	UsesCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}
