package command

import (
	"context"

	"github.com/duskchat/dusk-node/internal/config"
	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
)

// GetSettings returns the persisted user settings.
func (a *App) GetSettings() (config.Settings, error) {
	settings, err := a.store.LoadSettings()
	if err != nil {
		return config.Settings{}, wrapf("load settings: %w", err)
	}
	return settings, nil
}

// SetSettings persists settings wholesale. Relay address changes go through
// SetRelayAddress instead, since that path also restarts the node.
func (a *App) SetSettings(settings config.Settings) error {
	if err := a.store.SaveSettings(settings); err != nil {
		return wrapf("save settings: %w", err)
	}
	return nil
}

// SetRelayDiscoverable toggles whether this peer is discoverable through
// the relay's directory rendezvous namespace.
func (a *App) SetRelayDiscoverable(ctx context.Context, enabled bool) error {
	settings, err := a.store.LoadSettings()
	if err != nil {
		return wrapf("load settings: %w", err)
	}
	settings.RelayDiscoverable = enabled
	if err := a.store.SaveSettings(settings); err != nil {
		return wrapf("save settings: %w", err)
	}

	a.nodeMu.Lock()
	n := a.n
	a.nodeMu.Unlock()
	if n == nil {
		return nil
	}

	reply := make(chan error, 1)
	sendCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	if err := n.Send(sendCtx, node.Command{SetRelayDiscoverable: &node.SetRelayDiscoverableCmd{Enabled: enabled, Reply: reply}}); err != nil {
		return wrapf("send set relay discoverable: %w", err)
	}
	select {
	case err := <-reply:
		return err
	case <-sendCtx.Done():
		return sendCtx.Err()
	}
}

// GifSearch queries the relay's GIF search auxiliary service.
func (a *App) GifSearch(ctx context.Context, query string) (protocol.GifSearchResponse, error) {
	a.nodeMu.Lock()
	n := a.n
	a.nodeMu.Unlock()
	if n == nil {
		return protocol.GifSearchResponse{}, ErrNodeNotRunning
	}

	reply := make(chan protocol.GifSearchResponse, 1)
	sendCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	if err := n.Send(sendCtx, node.Command{GifSearch: &node.GifSearchCmd{Query: query, Reply: reply}}); err != nil {
		return protocol.GifSearchResponse{}, wrapf("send gif search: %w", err)
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-sendCtx.Done():
		return protocol.GifSearchResponse{}, sendCtx.Err()
	}
}

// UpdateProfile replaces the mutable profile metadata, persists it, and
// republishes the signed announcement so peers pick the change up. The
// verification proof carried by the prior profile is preserved.
func (a *App) UpdateProfile(ctx context.Context, displayName, bio string) error {
	profile := a.id.Profile()
	profile.DisplayName = displayName
	profile.Bio = bio
	a.id.SetProfile(profile)

	if err := a.store.SaveProfile(profile); err != nil {
		return wrapf("save profile: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	if a.isRunningLocked() {
		pubCtx, cancel := withDefaultTimeout(ctx)
		defer cancel()
		a.publishProfileAnnouncementLocked(pubCtx)
	}
	return nil
}
