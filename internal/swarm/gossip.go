package swarm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pb "github.com/libp2p/go-libp2p-pubsub/pb"

	"github.com/duskchat/dusk-node/internal/topic"
)

// gossipSubParams tunes gossipsub's mesh maintenance: a faster-than-default
// heartbeat and a deliberately small mesh, sized for community sizes this
// node expects rather than gossipsub's public-network defaults.
func gossipSubParams() pubsub.GossipSubParams {
	params := pubsub.DefaultGossipSubParams()
	params.D = 6
	params.Dlo = 4
	params.Dhi = 12
	params.HistoryLength = 5
	params.HistoryGossip = 3
	params.HeartbeatInterval = time.Second
	return params
}

// messageIDFn derives a content-addressed message ID from the payload and
// sender, so that the same chat message published twice by accident (e.g.
// after a reconnect) de-duplicates instead of appearing twice.
func messageIDFn(pmsg *pb.Message) string {
	h := topic.Hash64(append(append([]byte{}, pmsg.Data...), pmsg.GetFrom()...))
	return strconv.FormatUint(h, 16)
}

// Subscribe joins t if not already joined and returns its subscription,
// reusing the existing one if already subscribed.
func (s *Swarm) Subscribe(t string) (*pubsub.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[t]; ok {
		return sub, nil
	}
	top, ok := s.topics[t]
	if !ok {
		var err error
		top, err = s.PubSub.Join(t)
		if err != nil {
			return nil, fmt.Errorf("swarm: join topic %s: %w", t, err)
		}
		s.topics[t] = top
	}
	sub, err := top.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("swarm: subscribe topic %s: %w", t, err)
	}
	s.subs[t] = sub
	return sub, nil
}

// Unsubscribe cancels the subscription on t and leaves the topic, if either
// is currently held.
func (s *Swarm) Unsubscribe(t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[t]; ok {
		sub.Cancel()
		delete(s.subs, t)
	}
	if top, ok := s.topics[t]; ok {
		top.Close()
		delete(s.topics, t)
	}
}

// Publish publishes data on t, joining the topic first if this node hasn't
// joined or subscribed to it yet.
func (s *Swarm) Publish(ctx context.Context, t string, data []byte) error {
	s.mu.Lock()
	top, ok := s.topics[t]
	if !ok {
		var err error
		top, err = s.PubSub.Join(t)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("swarm: join topic %s: %w", t, err)
		}
		s.topics[t] = top
	}
	s.mu.Unlock()

	if err := top.Publish(ctx, data); err != nil {
		return fmt.Errorf("swarm: publish on %s: %w", t, err)
	}
	return nil
}
