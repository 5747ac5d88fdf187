package netadapter

import (
	"context"
	"time"

	"github.com/dagnet/lightd/wire"
)

// NetworkAdapter is the boundary between the synchronization engine and
// whatever transport speaks to full nodes. Implementations own connection
// management; callers pass a context to bound every call and treat returned
// NetworkErrors as the full failure vocabulary.
type NetworkAdapter interface {
	// DiscoverPeers returns full node peers currently believed reachable.
	DiscoverPeers(ctx context.Context) ([]*Peer, error)

	// GetHeaders requests up to count consecutive headers starting at
	// fromHeight from the given peer. Fewer headers than requested is not
	// an error; it usually means the peer's chain ends there.
	GetHeaders(ctx context.Context, peer *Peer, fromHeight, count uint64) ([]*wire.BlockHeader, error)

	// GetBestTipHeight returns the height of the peer's selected tip.
	GetBestTipHeight(ctx context.Context, peer *Peer) (uint64, error)

	// SendTransaction relays a light transaction to the given peer.
	SendTransaction(ctx context.Context, peer *Peer, tx *wire.MsgTx) error
}

// Peer is a read-only view of a remote full node. The adapter owns the
// connection behind it and keeps these fields current; the sync engine only
// holds and compares them.
type Peer struct {
	// ID uniquely identifies the peer across reconnects.
	ID string

	// Address is the peer's host:port.
	Address string

	// ProtocolVersion is the peer's advertised protocol version. Zero
	// until the transport has learned it.
	ProtocolVersion uint32

	// LastSeen is the time of the last successful exchange with the
	// peer. The zero value means the peer has never answered.
	LastSeen time.Time
}

func (p *Peer) String() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Address
}
