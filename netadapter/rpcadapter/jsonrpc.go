package rpcadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/netadapter"
)

var _ netadapter.NetworkAdapter = (*RPCAdapter)(nil)

// rpcRequest models a JSON-RPC 1.0 request object.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse models a JSON-RPC 1.0 response object.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     uint64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

var requestID uint64

// call performs a single JSON-RPC round trip against the peer and decodes
// the result into result. Transport failures are translated into
// NetworkErrors so callers never see raw net or http errors.
func (a *RPCAdapter) call(ctx context.Context, peer *netadapter.Peer,
	method string, params []interface{}, result interface{}) error {

	if params == nil {
		params = []interface{}{}
	}
	id := atomic.AddUint64(&requestID, 1)
	requestBytes, err := json.Marshal(&rpcRequest{
		JSONRPC: "1.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	url := "http://" + peer.Address
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		bytes.NewReader(requestBytes))
	if err != nil {
		return errors.WithStack(err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	log.Tracef("Calling %s on %s", method, peer)
	httpResponse, err := a.httpClient.Do(httpRequest)
	if err != nil {
		return convertTransportError(err, peer)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode == http.StatusTooManyRequests {
		return netadapter.NewNetworkError(netadapter.ErrRateLimited,
			fmt.Sprintf("peer %s is rate limiting us", peer))
	}
	if httpResponse.StatusCode != http.StatusOK {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			fmt.Sprintf("peer %s answered %s to %s", peer, httpResponse.Status, method))
	}

	responseBytes, err := ioutil.ReadAll(httpResponse.Body)
	if err != nil {
		return convertTransportError(err, peer)
	}

	response := &rpcResponse{}
	err = json.Unmarshal(responseBytes, response)
	if err != nil {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			fmt.Sprintf("peer %s returned malformed JSON: %s", peer, err))
	}
	if response.Error != nil {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			fmt.Sprintf("peer %s rejected %s: %s", peer, method, response.Error))
	}
	if response.ID != id {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			fmt.Sprintf("peer %s answered with mismatched request id", peer))
	}

	err = json.Unmarshal(response.Result, result)
	if err != nil {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			fmt.Sprintf("peer %s returned an unexpected result shape: %s", peer, err))
	}

	a.touchPeer(peer)
	return nil
}

// convertTransportError maps low-level dial, write and read failures onto
// the adapter error vocabulary.
func convertTransportError(err error, peer *netadapter.Peer) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return netadapter.NewNetworkError(netadapter.ErrTimeout,
			fmt.Sprintf("request to peer %s timed out", peer))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return netadapter.NewNetworkError(netadapter.ErrTimeout,
			fmt.Sprintf("request to peer %s timed out", peer))
	}
	return netadapter.NewNetworkError(netadapter.ErrConnectionFailed,
		fmt.Sprintf("request to peer %s failed: %s", peer, err))
}
