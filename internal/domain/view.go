package domain

// Snapshot is the host-independent viewer state captured after each mutation.
type Snapshot struct {
	Version     uint64              `json:"version"`
	Slots       []Slot              `json:"slots"`
	Suggestions map[SlotID][]string `json:"suggestions"`
	Focus       SlotID              `json:"focus,omitempty"`
	AppToken    AppTokenState       `json:"app_token"`
	SignedIn    bool                `json:"signed_in"`
	Profile     *Profile            `json:"profile,omitempty"`
	Follows     []FollowedChannel   `json:"follows"`
}
