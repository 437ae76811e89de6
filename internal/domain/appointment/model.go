package appointment

import "time"

// Status values the upstream API reports for a slot.
const (
	StatusOpen         = "open"
	StatusWaitlistOpen = "waitlist_open"
	StatusClosed       = "closed"
)

// Appointment is one visa appointment slot as reported by the upstream API.
type Appointment struct {
	ID                int64     `json:"id"`
	CountryCode       string    `json:"country_code"`
	MissionCode       string    `json:"mission_code"`
	Center            string    `json:"center"`
	Status            string    `json:"status"`
	VisaCategory      string    `json:"visa_category"`
	VisaType          string    `json:"visa_type"`
	LastAvailableDate string    `json:"last_available_date"`
	TrackingCount     int64     `json:"tracking_count"`
	LastCheckedAt     time.Time `json:"last_checked_at"`
}

// Notifiable reports whether the slot status is worth alerting on.
func (a *Appointment) Notifiable() bool {
	return a.Status == StatusOpen || a.Status == StatusWaitlistOpen
}
