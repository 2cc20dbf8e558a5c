// Package embed maps a slot to the URL of the provider's embeddable player.
package embed

import (
	"net/url"
	"unicode/utf8"

	"github.com/pscheid92/streamhub/internal/domain"
)

// youtubeVideoIDLength is the length of a YouTube video id. Anything else is treated as a channel id.
const youtubeVideoIDLength = 11

// URL returns the player URL for identifier on platform. parentHost is the domain of the page
// hosting the frame and is only used by twitch. An empty identifier or an unknown platform yields "".
func URL(platform domain.Platform, identifier, parentHost string) string {
	if identifier == "" {
		return ""
	}

	switch platform {
	case domain.PlatformTwitch:
		return "https://player.twitch.tv/?channel=" + url.QueryEscape(identifier) + "&parent=" + url.QueryEscape(parentHost)
	case domain.PlatformYouTube:
		if utf8.RuneCountInString(identifier) == youtubeVideoIDLength {
			return "https://www.youtube.com/embed/" + url.PathEscape(identifier) + "?autoplay=1"
		}
		return "https://www.youtube.com/embed/live_stream?channel=" + url.QueryEscape(identifier) + "&autoplay=1"
	case domain.PlatformKick:
		return "https://player.kick.com/" + url.PathEscape(identifier)
	default:
		return ""
	}
}
