// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

// DAGNet represents which DAG network a header belongs to.
type DAGNet uint32

// Constants used to indicate the network.
const (
	// Mainnet represents the main DAG network.
	Mainnet DAGNet = 0xd9b4bef9

	// Testnet represents the public test network.
	Testnet DAGNet = 0x0709110b

	// Simnet represents the simulation test network.
	Simnet DAGNet = 0x12141c16
)

// dagNetStrings is a map of DAG networks back to their constant names for
// pretty printing.
var dagNetStrings = map[DAGNet]string{
	Mainnet: "Mainnet",
	Testnet: "Testnet",
	Simnet:  "Simnet",
}

// String returns the DAGNet in human-readable form.
func (n DAGNet) String() string {
	if s, ok := dagNetStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown DAGNet (%d)", uint32(n))
}
