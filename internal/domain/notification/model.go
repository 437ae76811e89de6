package notification

import "time"

// Event carries everything needed to render one appointment notification.
// All text fields are untrusted input and are escaped at render time.
type Event struct {
	Status            string
	Center            string
	CountryCode       string
	MissionCode       string
	VisaCategory      string
	VisaType          string
	LastAvailableDate string // optional; empty means the upstream gave no date
	TrackingCount     int64
	LastCheckedAt     time.Time
}

// SendOptions controls how the transport formats a message.
type SendOptions struct {
	ParseMode          string
	DisableLinkPreview bool
}

// ParseModeHTML is the only markup mode the renderer emits (bold tags only).
const ParseModeHTML = "HTML"
