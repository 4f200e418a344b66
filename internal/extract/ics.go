package extract

import (
	"context"
	"strings"
	"time"
)

// Ensure ICS implements the interface.
var _ Extractor = (*ICS)(nil)

// ICS extracts text from iCalendar files. Each VEVENT becomes a block
// of lines: summary, people, location, times and description, with
// escape sequences decoded and timestamps rendered readable.
type ICS struct{}

// NewICS creates a new ICS extractor.
func NewICS() *ICS {
	return &ICS{}
}

// MIMETypes returns the MIME types this extractor handles.
func (i *ICS) MIMETypes() []string {
	return []string{"text/calendar"}
}

// Extract walks the calendar properties and returns the event text,
// one blank-line separated block per VEVENT.
func (i *ICS) Extract(_ context.Context, raw []byte) (string, error) {
	var blocks []string
	var event []string
	inEvent := false

	for _, line := range unfoldLines(string(raw)) {
		name, value := parseProperty(line)

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				inEvent = true
				event = nil
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") {
				inEvent = false
				if len(event) > 0 {
					blocks = append(blocks, strings.Join(event, "\n"))
				}
			}
		case "X-WR-CALNAME":
			if !inEvent {
				blocks = append(blocks, decodeValue(value))
			}
		case "SUMMARY", "DESCRIPTION":
			if inEvent {
				event = append(event, decodeValue(value))
			}
		case "LOCATION":
			if inEvent {
				event = append(event, "Location: "+decodeValue(value))
			}
		case "ORGANIZER":
			if email := extractEmail(value); inEvent && email != "" {
				event = append(event, "Organizer: "+email)
			}
		case "ATTENDEE":
			if email := extractEmail(value); inEvent && email != "" {
				event = append(event, "Attendee: "+email)
			}
		case "DTSTART":
			if inEvent {
				event = append(event, "Start: "+formatDateTime(value))
			}
		case "DTEND":
			if inEvent {
				event = append(event, "End: "+formatDateTime(value))
			}
		}
	}

	return strings.TrimSpace(sanitizeUTF8(strings.Join(blocks, "\n\n"))), nil
}

// unfoldLines undoes RFC 5545 line folding, where a continuation line
// starts with a space or tab.
func unfoldLines(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var lines []string
	for _, line := range raw {
		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += line[1:]
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseProperty splits a content line into its name and value,
// dropping any parameters between them.
func parseProperty(line string) (name, value string) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return strings.ToUpper(strings.TrimSpace(line)), ""
	}
	// Parameters such as ";VALUE=DATE" sit between the name and the colon.
	if semi := strings.Index(before, ";"); semi >= 0 {
		before = before[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(before)), after
}

var icsEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\N`, "\n",
	`\,`, ",",
	`\;`, ";",
	`\\`, `\`,
)

// decodeValue undoes RFC 5545 text escaping.
func decodeValue(value string) string {
	return icsEscapes.Replace(value)
}

// formatDateTime renders an iCalendar timestamp as readable text.
// Values that do not parse come back unchanged.
func formatDateTime(value string) string {
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("January 2, 2006 at 3:04 PM")
		}
	}
	if t, err := time.Parse("20060102", value); err == nil {
		return t.Format("January 2, 2006")
	}
	return value
}

// extractEmail pulls the bare address out of a mailto: value.
func extractEmail(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "mailto:") {
		return value[7:]
	}
	if strings.Contains(value, "@") {
		return value
	}
	return ""
}
