package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/byigitt/visa-checker/internal/common"
)

// DefaultTimezone is the zone used for the "last checked" line when the
// deployment does not override it.
const DefaultTimezone = "Europe/Istanbul"

// noDatePlaceholder is shown when the upstream reports no available date.
const noDatePlaceholder = "Bilgi yok"

// lastCheckedLayout matches the dd.mm.yyyy date+time style of the target
// deployment's locale.
const lastCheckedLayout = "02.01.2006 15:04:05"

// Renderer turns an appointment event into the fixed Telegram message text.
// It is a pure formatter: every input field is entity-escaped before
// interpolation, so the output is safe for the transport's HTML parse mode.
type Renderer struct {
	loc *time.Location
}

// NewRenderer creates a renderer that formats timestamps in the named zone.
func NewRenderer(timezone string) (*Renderer, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, common.NewValidationError(fmt.Sprintf("invalid timezone %q: %v", timezone, err))
	}
	return &Renderer{loc: loc}, nil
}

// Render produces the notification text for an event. Returns a
// ValidationError if a structurally required field is missing.
func (r *Renderer) Render(ev *Event) (string, error) {
	if err := validateEvent(ev); err != nil {
		return "", err
	}

	availableDate := noDatePlaceholder
	if ev.LastAvailableDate != "" {
		availableDate = html.EscapeString(ev.LastAvailableDate)
	}

	lastChecked := html.EscapeString(ev.LastCheckedAt.In(r.loc).Format(lastCheckedLayout))

	var b strings.Builder
	b.WriteString("🔔 <b>Yeni Randevu Bildirimi!</b>\n\n")
	fmt.Fprintf(&b, "<b>Durum:</b> %s\n", html.EscapeString(ev.Status))
	fmt.Fprintf(&b, "<b>Merkez:</b> %s\n", html.EscapeString(ev.Center))
	fmt.Fprintf(&b, "<b>Ülke/Misyon:</b> %s -> %s\n",
		html.EscapeString(strings.ToUpper(ev.CountryCode)),
		html.EscapeString(strings.ToUpper(ev.MissionCode)))
	fmt.Fprintf(&b, "<b>Kategori:</b> %s\n", html.EscapeString(ev.VisaCategory))
	fmt.Fprintf(&b, "<b>Tip:</b> %s\n", html.EscapeString(ev.VisaType))
	fmt.Fprintf(&b, "<b>Son Müsait Tarih:</b> %s\n", availableDate)
	fmt.Fprintf(&b, "<b>Takip Sayısı:</b> %d\n", ev.TrackingCount)
	fmt.Fprintf(&b, "<b>Son Kontrol:</b> %s", lastChecked)

	return b.String(), nil
}

// validateEvent rejects events missing required fields. Only the available
// date is documented as optional; anything else empty is an upstream bug.
func validateEvent(ev *Event) error {
	if ev == nil {
		return common.NewValidationError("event is nil")
	}
	missing := []string{}
	for _, f := range []struct {
		name, value string
	}{
		{"status", ev.Status},
		{"center", ev.Center},
		{"country_code", ev.CountryCode},
		{"mission_code", ev.MissionCode},
		{"visa_category", ev.VisaCategory},
		{"visa_type", ev.VisaType},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if ev.LastCheckedAt.IsZero() {
		missing = append(missing, "last_checked_at")
	}
	if len(missing) > 0 {
		return common.NewValidationError("event missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
