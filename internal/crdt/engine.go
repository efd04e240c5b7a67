// Package crdt is the in-memory registry of per-community replicated
// documents: load/merge/save plus typed accessors for channels, messages,
// members, and categories. Each concurrently-editable field is a
// last-writer-wins register (Lamport counter + peer-ID tiebreaker);
// collections merge by key union. This is the simplest CRDT that satisfies
// the commutativity/convergence requirement: any two peers that have seen
// the same set of gossip publishes on a community's topics converge to
// equal state, regardless of delivery order.
package crdt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Persister is the durable-storage side effect the engine drives after
// every successful mutation. Implemented by internal/storage; the engine
// treats community documents as opaque bytes for persistence purposes.
type Persister interface {
	SaveCommunityDocument(communityID string, data []byte) error
}

// Engine is the single-writer, many-reader in-memory document registry.
type Engine struct {
	mu        sync.RWMutex
	docs      map[string]*Document
	persister Persister
}

// NewEngine creates an empty Engine. persister may be nil for tests that
// don't need durability.
func NewEngine(persister Persister) *Engine {
	return &Engine{
		docs:      make(map[string]*Document),
		persister: persister,
	}
}

func generalChannelID(name string) string {
	sum := sha256.Sum256([]byte(name + "_general"))
	return "ch_" + hex.EncodeToString(sum[:])[:12]
}

func (e *Engine) persist(cid string) error {
	if e.persister == nil {
		return nil
	}
	doc := e.docs[cid]
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("crdt: marshal document %s: %w", cid, err)
	}
	return e.persister.SaveCommunityDocument(cid, data)
}

// CreateCommunity initializes a new document with a default "general" text
// channel and the creator as sole owner. Fails if cid is already loaded.
func (e *Engine) CreateCommunity(cid, name, desc, creatorPeerID string, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.docs[cid]; exists {
		return ErrCommunityExists
	}

	doc := newBaseDocument(cid, name, desc, creatorPeerID, now)
	clock := doc.nextClock(creatorPeerID)
	doc.Members[creatorPeerID] = &Member{
		PeerID:           creatorPeerID,
		DisplayName:      "",
		JoinedAt:         now,
		Roles:            []string{RoleOwner},
		DisplayNameClock: clock,
		RolesClock:       clock,
	}
	e.docs[cid] = doc
	return e.persist(cid)
}

// CreatePlaceholderCommunity initializes a document with the same default
// channel structure but no members — used when joining via invite before
// any sync has arrived.
func (e *Engine) CreatePlaceholderCommunity(cid, name, desc string, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.docs[cid]; exists {
		return ErrCommunityExists
	}
	e.docs[cid] = newBaseDocument(cid, name, "", cid, now)
	e.docs[cid].Meta.Description = desc
	return e.persist(cid)
}

func newBaseDocument(cid, name, desc, createdBy string, now int64) *Document {
	doc := &Document{
		CommunityID: cid,
		Meta: Meta{
			Name:        name,
			Description: desc,
			CreatedBy:   createdBy,
			CreatedAt:   now,
		},
		Channels:   make(map[string]*Channel),
		Categories: make(map[string]*Category),
		Members:    make(map[string]*Member),
	}
	clock := doc.nextClock(createdBy)
	doc.Meta.NameClock = clock
	doc.Meta.DescriptionClock = clock
	doc.Meta.CreatedByClock = clock

	chID := generalChannelID(name)
	doc.Channels[chID] = &Channel{
		ID:            chID,
		Name:          "general",
		Kind:          ChannelKindText,
		Position:      0,
		NameClock:     clock,
		TopicClock:    clock,
		KindClock:     clock,
		PositionClock: clock,
		CategoryClock: clock,
	}
	return doc
}

// nextClock increments the document's Lamport counter and stamps it with peerID.
func (d *Document) nextClock(peerID string) Clock {
	d.LocalCounter++
	return Clock{Counter: d.LocalCounter, PeerID: peerID}
}

// HasCommunity reports whether cid is loaded.
func (e *Engine) HasCommunity(cid string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.docs[cid]
	return ok
}

// MergeRemoteDoc merges a remote snapshot into the local document for cid.
// Rejected if cid is unknown locally, preventing unsolicited document
// injection from a DocumentOffer for a community this peer never joined.
func (e *Engine) MergeRemoteDoc(cid string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	local, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	var remote Document
	if err := json.Unmarshal(data, &remote); err != nil {
		return fmt.Errorf("crdt: unmarshal remote document: %w", err)
	}
	mergeDocuments(local, &remote)
	return e.persist(cid)
}

// InsertDoc merges the document decoded from bytes into the local document
// for cid, creating it if absent. Used for opaque snapshot import during sync.
func (e *Engine) InsertDoc(cid string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("crdt: unmarshal document: %w", err)
	}
	if existing, ok := e.docs[cid]; ok {
		mergeDocuments(existing, &doc)
	} else {
		doc.CommunityID = cid
		e.docs[cid] = &doc
	}
	return e.persist(cid)
}

// GetDocBytes returns the opaque snapshot export of cid's document.
func (e *Engine) GetDocBytes(cid string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[cid]
	if !ok {
		return nil, ErrCommunityUnknown
	}
	return json.Marshal(doc)
}

// AppendMessage appends msg to its channel's message list.
func (e *Engine) AppendMessage(cid string, msg Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	ch, ok := doc.Channels[msg.ChannelID]
	if !ok {
		return ErrChannelUnknown
	}
	ch.Messages = append(ch.Messages, msg)
	return e.persist(cid)
}

// GetMessages returns up to limit messages with timestamp < before (if
// given), most-recent-first internally but returned in chronological order.
// Tombstoned messages are excluded.
func (e *Engine) GetMessages(cid, chid string, before *int64, limit int) ([]Message, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[cid]
	if !ok {
		return nil, ErrCommunityUnknown
	}
	ch, ok := doc.Channels[chid]
	if !ok {
		return nil, ErrChannelUnknown
	}

	var candidates []Message
	for _, m := range ch.Messages {
		if m.Deleted {
			continue
		}
		if before != nil && m.Timestamp >= *before {
			continue
		}
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Timestamp > candidates[j].Timestamp })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Timestamp < candidates[j].Timestamp })
	return candidates, nil
}

// DeleteMessage tombstones the message with the given ID across all
// channels. Fails if not found (or already deleted).
func (e *Engine) DeleteMessage(cid, messageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	for _, ch := range doc.Channels {
		for i := range ch.Messages {
			if ch.Messages[i].ID == messageID && !ch.Messages[i].Deleted {
				ch.Messages[i].Deleted = true
				return e.persist(cid)
			}
		}
	}
	return ErrMessageNotFound
}

// GetMembers returns all members, sorted by join time ascending.
func (e *Engine) GetMembers(cid string) ([]Member, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[cid]
	if !ok {
		return nil, ErrCommunityUnknown
	}
	out := make([]Member, 0, len(doc.Members))
	for _, m := range doc.Members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt < out[j].JoinedAt })
	return out, nil
}

// GetChannels returns all channels, sorted by position ascending (ties
// broken by ID).
func (e *Engine) GetChannels(cid string) ([]Channel, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[cid]
	if !ok {
		return nil, ErrCommunityUnknown
	}
	out := make([]Channel, 0, len(doc.Channels))
	for _, c := range doc.Channels {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetCategories returns all categories, sorted by position ascending (ties
// broken by ID).
func (e *Engine) GetCategories(cid string) ([]Category, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[cid]
	if !ok {
		return nil, ErrCommunityUnknown
	}
	out := make([]Category, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ReorderChannels writes each channel's new position equal to its index in
// orderedIDs. Unknown IDs are ignored.
func (e *Engine) ReorderChannels(cid string, orderedIDs []string, actorPeerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	clock := doc.nextClock(actorPeerID)
	for i, id := range orderedIDs {
		if ch, ok := doc.Channels[id]; ok {
			ch.Position = i
			ch.PositionClock = clock
		}
	}
	return e.persist(cid)
}

// SetMemberRole replaces a member's role list.
func (e *Engine) SetMemberRole(cid, peerID string, roles []string, actorPeerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	m, ok := doc.Members[peerID]
	if !ok {
		return ErrMemberUnknown
	}
	m.Roles = roles
	m.RolesClock = doc.nextClock(actorPeerID)
	return e.persist(cid)
}

// TransferOwnership atomically demotes oldOwner to admin, promotes
// newOwner to owner, and updates meta.created_by.
func (e *Engine) TransferOwnership(cid, oldOwner, newOwner string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	oldM, ok := doc.Members[oldOwner]
	if !ok {
		return ErrMemberUnknown
	}
	newM, ok := doc.Members[newOwner]
	if !ok {
		return ErrMemberUnknown
	}

	clock := doc.nextClock(oldOwner)
	oldM.Roles = []string{RoleAdmin}
	oldM.RolesClock = clock
	newM.Roles = []string{RoleOwner}
	newM.RolesClock = clock
	doc.Meta.CreatedBy = newOwner
	doc.Meta.CreatedByClock = clock
	return e.persist(cid)
}

// RemoveMember deletes peerID from the members map.
func (e *Engine) RemoveMember(cid, peerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	delete(doc.Members, peerID)
	return e.persist(cid)
}

// RemoveCommunity drops cid's document (used by leave_community).
func (e *Engine) RemoveCommunity(cid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.docs, cid)
}

// Clear drops every document (identity reset).
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = make(map[string]*Document)
}

// CommunityIDs returns every loaded community ID.
func (e *Engine) CommunityIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
