package value

import (
	"fmt"
	"strings"
)

// Platform is a bitmask identifying the chat platforms an entry applies to.
// The bit layout is fixed by the backend wire protocol.
type Platform uint32

const (
	PlatformYoutube Platform = 1 << 0
	PlatformTwitch  Platform = 1 << 1
	PlatformDiscord Platform = 1 << 2
	PlatformWeb     Platform = 1 << 3

	PlatformStream   = PlatformYoutube | PlatformTwitch
	PlatformChat     = PlatformStream | PlatformDiscord
	PlatformAnnounce = PlatformDiscord | PlatformWeb
)

// ChatPlatforms lists the platforms that carry chat traffic, in display order.
var ChatPlatforms = []Platform{PlatformYoutube, PlatformDiscord, PlatformTwitch}

// String returns the display name for single-platform values and a
// pipe-separated list for composites.
func (p Platform) String() string {
	switch p {
	case PlatformYoutube:
		return "Youtube"
	case PlatformTwitch:
		return "Twitch"
	case PlatformDiscord:
		return "Discord"
	case PlatformWeb:
		return "Web"
	}

	var parts []string
	for _, single := range []Platform{PlatformYoutube, PlatformTwitch, PlatformDiscord, PlatformWeb} {
		if p&single != 0 {
			parts = append(parts, single.String())
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Platform(%d)", uint32(p))
	}
	return strings.Join(parts, "|")
}

// ParsePlatform resolves a platform name, accepting the short aliases the
// backend accepts (y/yt/youtube, t/tw/twitch, d/disc/discord).
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "y", "yt", "youtube":
		return PlatformYoutube, nil
	case "t", "tw", "twitch":
		return PlatformTwitch, nil
	case "d", "disc", "discord":
		return PlatformDiscord, nil
	case "web":
		return PlatformWeb, nil
	}
	return 0, fmt.Errorf("invalid platform %q", s)
}

// Contains reports whether every bit of other is set in p.
func (p Platform) Contains(other Platform) bool {
	return p&other == other
}

// Permission is the bitmask permission level attached to users and
// permission-typed config fields.
type Permission uint32

const (
	PermNone   Permission = 1 << 0
	PermMember Permission = 1 << 1
	PermMod    Permission = 1 << 2
	PermAdmin  Permission = 1 << 3
	PermOwner  Permission = 1 << 4
)

func (p Permission) String() string {
	switch p {
	case PermNone:
		return "None"
	case PermMember:
		return "Member"
	case PermMod:
		return "Mod"
	case PermAdmin:
		return "Admin"
	case PermOwner:
		return "Owner"
	}
	return fmt.Sprintf("Permission(%d)", uint32(p))
}
