package crdt

// Clock is a per-field Lamport counter plus the writer's peer ID as
// tiebreaker — the last-writer-wins register used for every field that can
// be concurrently edited. Higher counter wins; equal counters are broken by
// the lexicographically greater peer ID, so merge order never matters.
type Clock struct {
	Counter uint64 `json:"counter"`
	PeerID  string `json:"peer_id"`
}

// After reports whether c should overwrite other under the LWW rule.
func (c Clock) After(other Clock) bool {
	if c.Counter != other.Counter {
		return c.Counter > other.Counter
	}
	return c.PeerID > other.PeerID
}

const (
	ChannelKindText  = "text"
	ChannelKindVoice = "voice"

	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Message is an immutable (once appended) entry in a channel's message
// list. Deletion tombstones rather than removes the record, so a
// late-arriving DocumentOffer from a peer who hasn't seen the deletion
// can't resurrect it.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// Channel is a message stream within a community.
type Channel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
	Kind  string `json:"kind"`

	Position   int    `json:"position"`
	CategoryID string `json:"category_id,omitempty"`

	NameClock     Clock `json:"name_clock"`
	TopicClock    Clock `json:"topic_clock"`
	KindClock     Clock `json:"kind_clock"`
	PositionClock Clock `json:"position_clock"`
	CategoryClock Clock `json:"category_clock"`

	Messages []Message `json:"messages"`
}

// Category groups channels for display.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`

	NameClock     Clock `json:"name_clock"`
	PositionClock Clock `json:"position_clock"`
}

// Member is a community participant.
type Member struct {
	PeerID      string   `json:"peer_id"`
	DisplayName string   `json:"display_name"`
	JoinedAt    int64    `json:"joined_at"`
	Roles       []string `json:"roles"`

	DisplayNameClock Clock `json:"display_name_clock"`
	RolesClock       Clock `json:"roles_clock"`
}

// Meta is the community's top-level descriptive metadata.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   int64  `json:"created_at"`

	NameClock        Clock `json:"name_clock"`
	DescriptionClock Clock `json:"description_clock"`
	CreatedByClock   Clock `json:"created_by_clock"`
}

// Document is the full replicated state for one community.
type Document struct {
	CommunityID string               `json:"community_id"`
	Meta        Meta                 `json:"meta"`
	Channels    map[string]*Channel  `json:"channels"`
	Categories  map[string]*Category `json:"categories"`
	Members     map[string]*Member   `json:"members"`

	// LocalCounter is this replica's Lamport counter; incremented on every
	// local mutation and embedded in the Clock written for that mutation.
	LocalCounter uint64 `json:"local_counter"`
}

// CommunityMeta is the cached-for-listing projection of Document.Meta,
// stored separately by the storage layer for fast listing without decoding
// full documents.
type CommunityMeta struct {
	CommunityID string `json:"community_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   int64  `json:"created_at"`
}
