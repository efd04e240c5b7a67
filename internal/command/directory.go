package command

import (
	"context"
	"strings"

	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/storage"
)

// ListDirectory returns every known peer, local and relay-learned alike.
func (a *App) ListDirectory() ([]storage.DirectoryEntry, error) {
	entries, err := a.store.ListDirectoryEntries()
	if err != nil {
		return nil, wrapf("list directory entries: %w", err)
	}
	return entries, nil
}

// SearchDirectory filters the locally cached directory by a case-insensitive
// substring match on display name, then — if a node is running — augments
// the result with a relay-side search. The relay reports last_seen in
// seconds; it is multiplied by 1000 before comparison or storage, since
// every other timestamp in this system is milliseconds.
func (a *App) SearchDirectory(ctx context.Context, query string) ([]storage.DirectoryEntry, error) {
	all, err := a.store.ListDirectoryEntries()
	if err != nil {
		return nil, wrapf("list directory entries: %w", err)
	}

	q := strings.ToLower(query)
	matched := make(map[string]storage.DirectoryEntry)
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.DisplayName), q) {
			matched[e.PeerID] = e
		}
	}

	a.nodeMu.Lock()
	n := a.n
	a.nodeMu.Unlock()
	if n == nil {
		return flattenDirectory(matched), nil
	}

	resp := a.relaySearch(ctx, n, query)
	for _, r := range resp.Results {
		lastSeenMs := r.LastSeen * 1000
		existing, ok := matched[r.PeerID]
		if !ok {
			matched[r.PeerID] = storage.DirectoryEntry{PeerID: r.PeerID, DisplayName: r.DisplayName, LastSeen: lastSeenMs}
			continue
		}
		if lastSeenMs > existing.LastSeen {
			existing.LastSeen = lastSeenMs
			matched[r.PeerID] = existing
		}
	}
	return flattenDirectory(matched), nil
}

func flattenDirectory(matched map[string]storage.DirectoryEntry) []storage.DirectoryEntry {
	out := make([]storage.DirectoryEntry, 0, len(matched))
	for _, e := range matched {
		out = append(out, e)
	}
	return out
}

// relaySearch issues a directory search against the relay and waits for the
// reply, bounded by the default command timeout. A nil relay connection or a
// timed-out reply both resolve to an empty response.
func (a *App) relaySearch(ctx context.Context, n *node.Node, query string) protocol.DirectorySearchResponse {
	reply := make(chan protocol.DirectorySearchResponse, 1)
	sendCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	if err := n.Send(sendCtx, node.Command{DirectorySearch: &node.DirectorySearchCmd{Query: query, Reply: reply}}); err != nil {
		return protocol.DirectorySearchResponse{}
	}

	select {
	case resp := <-reply:
		return resp
	case <-sendCtx.Done():
		return protocol.DirectorySearchResponse{}
	}
}

// SetDirectoryFriend marks or unmarks a peer as a friend.
func (a *App) SetDirectoryFriend(peerID string, isFriend bool) error {
	if err := a.store.SetDirectoryFriend(peerID, isFriend); err != nil {
		return wrapf("set directory friend: %w", err)
	}
	return nil
}
