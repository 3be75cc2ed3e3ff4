package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/proppilot/proppilot/internal/model"
)

// Parse extracts booking events from raw iCal text. Events missing any of
// UID, DTSTART or DTEND are skipped; input without a VCALENDAR envelope is a
// parse error.
func Parse(data string) ([]Event, error) {
	lines := unfold(data)

	sawCalendar := false
	var events []Event
	var cur map[string]string

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "BEGIN:VCALENDAR"):
			sawCalendar = true
		case strings.HasPrefix(line, "BEGIN:VEVENT"):
			cur = make(map[string]string)
		case strings.HasPrefix(line, "END:VEVENT"):
			if cur != nil {
				if evt, ok := toEvent(cur); ok {
					events = append(events, evt)
				}
				cur = nil
			}
		default:
			if cur == nil {
				continue
			}
			name, value, ok := splitProperty(line)
			if !ok {
				continue
			}
			cur[name] = value
		}
	}

	if !sawCalendar {
		return nil, fmt.Errorf("ical: missing VCALENDAR envelope")
	}
	return events, nil
}

// unfold joins continuation lines (RFC 5545 3.1: a line starting with a
// space or tab continues the previous one) and normalizes line endings.
func unfold(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if l == "" {
			continue
		}
		if (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// splitProperty splits "NAME;PARAM=X:value" into the bare property name and
// its value.
func splitProperty(line string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	name = line[:idx]
	value = line[idx+1:]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return strings.ToUpper(name), value, true
}

func toEvent(props map[string]string) (Event, bool) {
	uid := props["UID"]
	start, okStart := parseICalDate(props["DTSTART"])
	end, okEnd := parseICalDate(props["DTEND"])
	if uid == "" || !okStart || !okEnd {
		return Event{}, false
	}
	return Event{
		UID:      uid,
		Checkin:  model.DateOnly(start),
		Checkout: model.DateOnly(end),
		Summary:  unescapeText(props["SUMMARY"]),
	}, true
}

var icalDateLayouts = []string{
	"20060102",
	"20060102T150405Z",
	"20060102T150405",
}

func parseICalDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range icalDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var textUnescaper = strings.NewReplacer(
	`\n`, "\n",
	`\N`, "\n",
	`\,`, ",",
	`\;`, ";",
	`\\`, `\`,
)

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
