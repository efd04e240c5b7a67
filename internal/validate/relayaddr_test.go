package validate

import (
	"errors"
	"testing"
)

func TestRelayAddr(t *testing.T) {
	valid := []string{
		"/dns4/relay.dusk.chat/tcp/4001/p2p/12D3KooWGRujD3z3fRYxqEEjJEmTGY3nFKJbbEcfJPhFt8rXBbrq",
		"/ip4/203.0.113.7/udp/4001/quic-v1/p2p/12D3KooWGRujD3z3fRYxqEEjJEmTGY3nFKJbbEcfJPhFt8rXBbrq",
	}
	for _, addr := range valid {
		if err := RelayAddr(addr); err != nil {
			t.Errorf("RelayAddr(%q) = %v, want nil", addr, err)
		}
	}

	invalid := []string{
		"",
		"not-a-multiaddr",
		"/dns4/relay.dusk.chat/tcp/4001",
	}
	for _, addr := range invalid {
		if err := RelayAddr(addr); err == nil {
			t.Errorf("RelayAddr(%q) = nil, want error", addr)
		}
	}
}

func TestRelayAddr_SentinelError(t *testing.T) {
	err := RelayAddr("garbage")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrInvalidRelayAddr) {
		t.Errorf("error should wrap ErrInvalidRelayAddr, got: %v", err)
	}
}
