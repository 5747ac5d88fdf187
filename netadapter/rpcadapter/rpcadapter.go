package rpcadapter

import (
	"bytes"
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/go-socks/socks"

	"github.com/dagnet/lightd/netadapter"
	"github.com/dagnet/lightd/wire"
)

const (
	// defaultRequestTimeout bounds a single RPC round trip when the
	// caller's context carries no deadline of its own.
	defaultRequestTimeout = 30 * time.Second

	// maxHeadersPerRequest caps how many headers a peer may return for a
	// single getHeaders call before the response is considered invalid.
	maxHeadersPerRequest = 2000
)

// Config holds the RPC adapter configuration.
type Config struct {
	// Seeds are RPC endpoints (host:port) used to bootstrap peer
	// discovery.
	Seeds []string

	// Proxy, when non-empty, routes all connections through the given
	// SOCKS5 proxy (host:port).
	Proxy     string
	ProxyUser string
	ProxyPass string

	// RequestTimeout bounds a single RPC round trip. Zero selects the
	// default.
	RequestTimeout time.Duration
}

// RPCAdapter implements netadapter.NetworkAdapter over JSON-RPC carried by
// HTTP POST requests, the protocol full nodes expose to light clients. It is
// safe for concurrent use by multiple goroutines.
type RPCAdapter struct {
	config     *Config
	httpClient *http.Client

	peersLock sync.RWMutex
	peers     map[string]*netadapter.Peer
}

// New returns an RPCAdapter bootstrapped with the configured seeds. When a
// proxy is configured, all traffic dials through it.
func New(config *Config) (*RPCAdapter, error) {
	timeout := config.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	dial := (&net.Dialer{Timeout: timeout}).DialContext
	if config.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     config.Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialTimeout := timeout
			if deadline, ok := ctx.Deadline(); ok {
				dialTimeout = time.Until(deadline)
			}
			return proxy.DialTimeout(network, addr, dialTimeout)
		}
	}

	adapter := &RPCAdapter{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{DialContext: dial},
			Timeout:   timeout,
		},
		peers: make(map[string]*netadapter.Peer),
	}

	for _, seed := range config.Seeds {
		adapter.addPeer(seed)
	}
	return adapter, nil
}

func (a *RPCAdapter) addPeer(address string) *netadapter.Peer {
	a.peersLock.Lock()
	defer a.peersLock.Unlock()
	if peer, ok := a.peers[address]; ok {
		return peer
	}
	peer := &netadapter.Peer{ID: address, Address: address}
	a.peers[address] = peer
	return peer
}

// touchPeer records a successful exchange with the peer.
func (a *RPCAdapter) touchPeer(peer *netadapter.Peer) {
	a.peersLock.Lock()
	defer a.peersLock.Unlock()
	if known, ok := a.peers[peer.ID]; ok {
		known.LastSeen = time.Now()
	}
}

// lookupPeer resolves a caller-held peer back to the adapter's own record.
func (a *RPCAdapter) lookupPeer(peer *netadapter.Peer) (*netadapter.Peer, error) {
	a.peersLock.RLock()
	defer a.peersLock.RUnlock()
	known, ok := a.peers[peer.ID]
	if !ok {
		return nil, netadapter.NewNetworkError(netadapter.ErrPeerNotFound,
			"peer "+peer.ID+" is not tracked by this adapter")
	}
	return known, nil
}

// DiscoverPeers asks every currently known peer for the addresses it knows
// and folds the answers into the tracked peer set. Peers that fail to answer
// are kept; deciding their fate is the sync engine's job.
func (a *RPCAdapter) DiscoverPeers(ctx context.Context) ([]*netadapter.Peer, error) {
	a.peersLock.RLock()
	known := make([]*netadapter.Peer, 0, len(a.peers))
	for _, peer := range a.peers {
		known = append(known, peer)
	}
	a.peersLock.RUnlock()

	for _, peer := range known {
		var addresses []string
		err := a.call(ctx, peer, "getPeerAddresses", nil, &addresses)
		if err != nil {
			log.Debugf("getPeerAddresses from %s failed: %s", peer, err)
			continue
		}
		for _, address := range addresses {
			a.addPeer(address)
		}

		if peer.ProtocolVersion == 0 {
			var protocolVersion uint32
			err = a.call(ctx, peer, "getProtocolVersion", nil, &protocolVersion)
			if err != nil {
				log.Debugf("getProtocolVersion from %s failed: %s", peer, err)
				continue
			}
			a.peersLock.Lock()
			peer.ProtocolVersion = protocolVersion
			a.peersLock.Unlock()
		}
	}

	a.peersLock.RLock()
	defer a.peersLock.RUnlock()
	if len(a.peers) == 0 {
		return nil, netadapter.NewNetworkError(netadapter.ErrConnectionFailed,
			"no peers discovered")
	}
	peers := make([]*netadapter.Peer, 0, len(a.peers))
	for _, peer := range a.peers {
		peers = append(peers, peer)
	}
	return peers, nil
}

// GetHeaders requests up to count consecutive serialized headers starting at
// fromHeight from the given peer.
func (a *RPCAdapter) GetHeaders(ctx context.Context, peer *netadapter.Peer,
	fromHeight, count uint64) ([]*wire.BlockHeader, error) {

	peer, err := a.lookupPeer(peer)
	if err != nil {
		return nil, err
	}

	var hexHeaders []string
	err = a.call(ctx, peer, "getHeaders", []interface{}{fromHeight, count}, &hexHeaders)
	if err != nil {
		return nil, err
	}
	if uint64(len(hexHeaders)) > count || len(hexHeaders) > maxHeadersPerRequest {
		return nil, netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			"peer "+peer.ID+" returned more headers than requested")
	}

	headers := make([]*wire.BlockHeader, 0, len(hexHeaders))
	for _, hexHeader := range hexHeaders {
		headerBytes, err := hex.DecodeString(hexHeader)
		if err != nil {
			return nil, netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
				"peer "+peer.ID+" returned a malformed header: "+err.Error())
		}
		header := &wire.BlockHeader{}
		err = header.Deserialize(bytes.NewReader(headerBytes))
		if err != nil {
			return nil, netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
				"peer "+peer.ID+" returned an undecodable header: "+err.Error())
		}
		headers = append(headers, header)
	}
	return headers, nil
}

// GetBestTipHeight returns the height of the peer's selected tip.
func (a *RPCAdapter) GetBestTipHeight(ctx context.Context, peer *netadapter.Peer) (uint64, error) {
	peer, err := a.lookupPeer(peer)
	if err != nil {
		return 0, err
	}

	var height uint64
	err = a.call(ctx, peer, "getSelectedTipHeight", nil, &height)
	if err != nil {
		return 0, err
	}
	return height, nil
}

// SendTransaction relays a serialized transaction to the given peer.
func (a *RPCAdapter) SendTransaction(ctx context.Context, peer *netadapter.Peer, tx *wire.MsgTx) error {
	peer, err := a.lookupPeer(peer)
	if err != nil {
		return err
	}

	txBytes, err := tx.Bytes()
	if err != nil {
		return err
	}

	var txID string
	return a.call(ctx, peer, "sendRawTransaction",
		[]interface{}{hex.EncodeToString(txBytes)}, &txID)
}
