// Package payload validates decoded code payloads and normalizes them
// into equipment identifiers.
//
// Accepted encodings: UUID v4, custom ids with an eq_ / eq- prefix, and
// full equipment URLs printed on older labels.
package payload

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// UUID v4, e.g. 550e8400-e29b-41d4-a716-446655440000.
	uuidV4Re = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

	// Custom equipment id, e.g. eq-abc123def456x.
	customIDRe = regexp.MustCompile(`^eq[_-][a-zA-Z0-9]{12,}$`)

	// Trailing segment of an equipment label URL: /equipment/{id}/edit.
	equipmentURLRe = regexp.MustCompile(`/equipment/([a-zA-Z0-9\-_]+)/edit$`)
)

// Source identifies which encoding a payload matched.
type Source string

const (
	SourceURL      Source = "url"
	SourceUUID     Source = "uuid"
	SourceCustomID Source = "custom-id"
)

// Parsed is the result of validating a raw payload.
type Parsed struct {
	EquipmentID string
	Source      Source
}

// IsUUID reports whether id follows the UUID v4 format.
func IsUUID(id string) bool {
	return uuidV4Re.MatchString(strings.ToLower(id))
}

// IsCustomID reports whether id follows the eq_ custom format.
func IsCustomID(id string) bool {
	return customIDRe.MatchString(id)
}

// ExtractIDFromURL pulls the equipment id out of a label URL.
// Returns "" when the URL does not point at an equipment edit page.
func ExtractIDFromURL(raw string) string {
	m := equipmentURLRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// Parse normalizes raw QR payload data into an equipment identifier.
// Accepts a full label URL, a UUID v4, or a custom eq_ id.
func Parse(raw string) (Parsed, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Parsed{}, ErrEmptyPayload
	}

	if strings.HasPrefix(trimmed, "http") {
		if _, err := url.Parse(trimmed); err != nil {
			return Parsed{}, ErrMalformedURL
		}
		id := ExtractIDFromURL(trimmed)
		switch {
		case IsUUID(id):
			return Parsed{EquipmentID: strings.ToLower(id), Source: SourceURL}, nil
		case IsCustomID(id):
			return Parsed{EquipmentID: id, Source: SourceURL}, nil
		}
		return Parsed{}, ErrInvalidFormat
	}

	if IsUUID(trimmed) {
		return Parsed{EquipmentID: strings.ToLower(trimmed), Source: SourceUUID}, nil
	}

	if IsCustomID(trimmed) {
		return Parsed{EquipmentID: trimmed, Source: SourceCustomID}, nil
	}

	return Parsed{}, ErrInvalidFormat
}
