package domain

import (
	"fmt"
	"strings"
)

// MaxSlots is the upper bound on simultaneously arranged streams.
const MaxSlots = 12

type Platform string

const (
	PlatformTwitch  Platform = "twitch"
	PlatformYouTube Platform = "youtube"
	PlatformKick    Platform = "kick"
)

// Platforms lists the supported providers in display order.
var Platforms = []Platform{PlatformTwitch, PlatformYouTube, PlatformKick}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitch, PlatformYouTube, PlatformKick:
		return true
	default:
		return false
	}
}

// Native reports whether the platform is the one the viewer signs in with.
func (p Platform) Native() bool {
	return p == PlatformTwitch
}

// ParsePlatform accepts a platform name case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

type SlotID int64

// Slot is one viewing unit bound to a platform and a channel or video identifier.
// An empty Identifier is valid and renders as a placeholder.
type Slot struct {
	ID         SlotID   `json:"id"`
	Platform   Platform `json:"platform"`
	Identifier string   `json:"identifier"`
}

// SlotField names a mutable field of a Slot.
type SlotField string

const (
	FieldIdentifier SlotField = "identifier"
	FieldPlatform   SlotField = "platform"
)

func ParseSlotField(s string) (SlotField, error) {
	switch f := SlotField(s); f {
	case FieldIdentifier, FieldPlatform:
		return f, nil
	case "username":
		return FieldIdentifier, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}
