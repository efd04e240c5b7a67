package crdt

// AddChannel creates a new channel for cid, appended after any existing
// channels, and returns ErrCommunityUnknown if cid isn't loaded.
func (e *Engine) AddChannel(cid, channelID, name, kind, actorPeerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	clock := doc.nextClock(actorPeerID)
	doc.Channels[channelID] = &Channel{
		ID:            channelID,
		Name:          name,
		Kind:          kind,
		Position:      len(doc.Channels),
		NameClock:     clock,
		TopicClock:    clock,
		KindClock:     clock,
		PositionClock: clock,
		CategoryClock: clock,
	}
	return e.persist(cid)
}

// AddMember inserts peerID into cid's member list with the given initial
// roles, used when a join is accepted locally ahead of the authoritative
// member list arriving over sync.
func (e *Engine) AddMember(cid, peerID, displayName string, roles []string, now int64, actorPeerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[cid]
	if !ok {
		return ErrCommunityUnknown
	}
	clock := doc.nextClock(actorPeerID)
	doc.Members[peerID] = &Member{
		PeerID:           peerID,
		DisplayName:      displayName,
		JoinedAt:         now,
		Roles:            roles,
		DisplayNameClock: clock,
		RolesClock:       clock,
	}
	return e.persist(cid)
}
