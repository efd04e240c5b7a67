package protocol

import (
	"bufio"
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/network"
	msgio "github.com/libp2p/go-msgio"
)

// GifSearchRequest/Response carry the relay's GIF search auxiliary service.
type GifSearchRequest struct {
	RequestID string `cbor:"request_id"`
	Query     string `cbor:"query"`
}

type GifSearchResult struct {
	URL   string `cbor:"url"`
	Title string `cbor:"title"`
}

type GifSearchResponse struct {
	RequestID string            `cbor:"request_id"`
	Results   []GifSearchResult `cbor:"results"`
	Error     string            `cbor:"error,omitempty"`
}

// DirectorySearchRequest/Response query the relay's peer directory.
type DirectorySearchRequest struct {
	RequestID string `cbor:"request_id"`
	Query     string `cbor:"query"`
}

type DirectoryResult struct {
	PeerID      string `cbor:"peer_id"`
	DisplayName string `cbor:"display_name"`
	LastSeen    int64  `cbor:"last_seen"` // seconds, per the relay's wire contract
}

type DirectorySearchResponse struct {
	RequestID string            `cbor:"request_id"`
	Results   []DirectoryResult `cbor:"results"`
	Error     string            `cbor:"error,omitempty"`
}

// TurnCredentialsRequest/Response fetch ephemeral TURN credentials for
// voice calls from the relay.
type TurnCredentialsRequest struct {
	RequestID string `cbor:"request_id"`
}

type TurnCredentialsResponse struct {
	RequestID string   `cbor:"request_id"`
	URLs      []string `cbor:"urls"`
	Username  string   `cbor:"username"`
	Password  string   `cbor:"password"`
	Error     string   `cbor:"error,omitempty"`
}

// NewRequestID returns a fresh correlation ID for an outbound request.
func NewRequestID() string {
	return uuid.NewString()
}

const maxRequestResponseFrame = 1 << 20 // 1 MiB

// WriteCBORFrame length-prefix-frames a CBOR-encoded value onto the stream
// using go-msgio, matching the hand-rolled framing the auxiliary
// request-response protocols use over a raw libp2p stream.
func WriteCBORFrame(s network.Stream, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: cbor marshal: %w", err)
	}
	w := msgio.NewVarintWriter(s)
	return w.WriteMsg(data)
}

// ReadCBORFrame reads one length-prefixed CBOR frame and decodes it into v.
// If ctx carries a deadline, it is applied to the stream before reading.
func ReadCBORFrame(ctx context.Context, s network.Stream, v any) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = s.SetReadDeadline(dl)
	}
	r := msgio.NewVarintReaderSize(bufio.NewReader(s), maxRequestResponseFrame)
	data, err := r.ReadMsg()
	if err != nil {
		return fmt.Errorf("protocol: read frame: %w", err)
	}
	defer r.ReleaseMsg(data)
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("protocol: cbor unmarshal: %w", err)
	}
	return nil
}
