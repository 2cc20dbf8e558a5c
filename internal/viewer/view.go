package viewer

import (
	"fmt"

	"github.com/pscheid92/streamhub/internal/domain"
	"github.com/pscheid92/streamhub/internal/embed"
	"github.com/pscheid92/streamhub/internal/layout"
)

// Tile is one cell of the player grid.
type Tile struct {
	ID          domain.SlotID   `json:"id"`
	Platform    domain.Platform `json:"platform"`
	Identifier  string          `json:"identifier"`
	EmbedURL    string          `json:"embed_url,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
}

// Editor is the input row of one slot together with its current suggestions.
type Editor struct {
	ID          domain.SlotID   `json:"id"`
	Platform    domain.Platform `json:"platform"`
	Identifier  string          `json:"identifier"`
	Suggestions []string        `json:"suggestions"`
}

// Summary is a named slot in the quick-access list.
type Summary struct {
	ID         domain.SlotID   `json:"id"`
	Platform   domain.Platform `json:"platform"`
	Identifier string          `json:"identifier"`
	Focused    bool            `json:"focused"`
}

// View is a snapshot rendered for one hosting page.
type View struct {
	Version       uint64                   `json:"version"`
	Columns       int                      `json:"columns"`
	Focus         domain.SlotID            `json:"focus,omitempty"`
	Tiles         []Tile                   `json:"tiles"`
	Editors       []Editor                 `json:"editors"`
	Summaries     []Summary                `json:"summaries"`
	SlotCount     int                      `json:"slot_count"`
	MaxSlots      int                      `json:"max_slots"`
	SearchEnabled bool                     `json:"search_enabled"`
	AppToken      domain.AppTokenState     `json:"app_token"`
	SignedIn      bool                     `json:"signed_in"`
	Profile       *domain.Profile          `json:"profile,omitempty"`
	Follows       []domain.FollowedChannel `json:"follows"`
}

// Render resolves embed URLs against parentHost and lays out the grid. With a focused slot only
// that slot is shown, in a single column.
func Render(snap domain.Snapshot, parentHost string) View {
	v := View{
		Version:       snap.Version,
		Focus:         snap.Focus,
		Tiles:         []Tile{},
		Editors:       make([]Editor, 0, len(snap.Slots)),
		Summaries:     []Summary{},
		SlotCount:     len(snap.Slots),
		MaxSlots:      domain.MaxSlots,
		SearchEnabled: snap.AppToken == domain.AppTokenPresent,
		AppToken:      snap.AppToken,
		SignedIn:      snap.SignedIn,
		Profile:       snap.Profile,
		Follows:       snap.Follows,
	}
	if v.Follows == nil {
		v.Follows = []domain.FollowedChannel{}
	}

	focused := false
	if snap.Focus != 0 {
		for _, s := range snap.Slots {
			if s.ID == snap.Focus {
				focused = true
				break
			}
		}
	}
	if !focused {
		v.Focus = 0
	}

	for _, s := range snap.Slots {
		suggestions := snap.Suggestions[s.ID]
		if suggestions == nil {
			suggestions = []string{}
		}
		v.Editors = append(v.Editors, Editor{ID: s.ID, Platform: s.Platform, Identifier: s.Identifier, Suggestions: suggestions})

		if s.Identifier != "" {
			v.Summaries = append(v.Summaries, Summary{ID: s.ID, Platform: s.Platform, Identifier: s.Identifier, Focused: s.ID == v.Focus})
		}

		if focused && s.ID != snap.Focus {
			continue
		}
		tile := Tile{ID: s.ID, Platform: s.Platform, Identifier: s.Identifier}
		tile.EmbedURL = embed.URL(s.Platform, s.Identifier, parentHost)
		if tile.EmbedURL == "" {
			tile.Placeholder = Placeholder(s.Platform)
		}
		v.Tiles = append(v.Tiles, tile)
	}

	v.Columns = layout.Columns(len(v.Tiles), focused)
	return v
}

// Placeholder is the text shown in a tile without a playable identifier.
func Placeholder(p domain.Platform) string {
	return fmt.Sprintf("Enter a %s channel name", p)
}
