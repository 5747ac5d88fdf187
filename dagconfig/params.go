// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dagconfig

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// These variables are the DAG proof-of-work limit parameters for each default
// network.
var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowMax is the highest proof of work value a block can have for
	// the main network. It is the value 2^239 - 1.
	mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

	// testnetPowMax is the highest proof of work value a block can have
	// for the test network. It is the value 2^239 - 1.
	testnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

	// simnetPowMax is the highest proof of work value a block can have
	// for the simulation test network. It is the value 2^255 - 1, which
	// makes nearly every nonce a solution.
	simnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

const (
	targetTimePerBlock          = 1 * time.Second
	timestampDeviationTolerance = 2 * time.Minute
	tipLookbackWindow           = 1000
	maxOrphanHeaders            = 100
	orphanExpiration            = time.Hour
)

// Params defines a DAG network by its parameters. These parameters may be
// used by applications to differentiate networks as well as headers intended
// for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.DAGNet

	// RPCPort defines the port full nodes serve their RPC interface on.
	RPCPort string

	// DNSSeeds defines a list of DNS seeds for the network that are used
	// as one method to discover peers.
	DNSSeeds []string

	// GenesisHeader defines the first header of the DAG. It is accepted
	// axiomatically and never verified.
	GenesisHeader *wire.BlockHeader

	// GenesisHash is the hash of GenesisHeader.
	GenesisHash *daghash.Hash

	// PowMax defines the highest allowed proof of work value for a header
	// as a uint256.
	PowMax *big.Int

	// TargetTimePerBlock is the expected amount of time between headers.
	TargetTimePerBlock time.Duration

	// TimestampDeviationTolerance is the maximum offset a header timestamp
	// is allowed to be in the future before it gets rejected.
	TimestampDeviationTolerance time.Duration

	// TipLookbackWindow is how many generations back from the current tips
	// a new header's parent may be and still link into the DAG. Headers
	// whose parents are older than that are stale and get rejected.
	TipLookbackWindow uint64

	// MaxOrphanHeaders is the maximum number of orphan headers held while
	// waiting for their parents.
	MaxOrphanHeaders int

	// OrphanExpiration is how long an orphan header may wait for its
	// parent before it is evicted.
	OrphanExpiration time.Duration

	// AcceptUnroutable specifies whether this network accepts unroutable
	// IP addresses, such as 10.0.0.0/8
	AcceptUnroutable bool
}

// MainnetParams defines the network parameters for the main DAG network.
var MainnetParams = Params{
	Name:     "mainnet",
	Net:      wire.Mainnet,
	RPCPort:  "16110",
	DNSSeeds: []string{"dnsseed.dagnet.org"},

	// DAG parameters
	GenesisHeader:               &genesisHeader,
	GenesisHash:                 &genesisHash,
	PowMax:                      mainPowMax,
	TargetTimePerBlock:          targetTimePerBlock,
	TimestampDeviationTolerance: timestampDeviationTolerance,
	TipLookbackWindow:           tipLookbackWindow,
	MaxOrphanHeaders:            maxOrphanHeaders,
	OrphanExpiration:            orphanExpiration,

	AcceptUnroutable: false,
}

// TestnetParams defines the network parameters for the test DAG network.
var TestnetParams = Params{
	Name:     "testnet",
	Net:      wire.Testnet,
	RPCPort:  "16210",
	DNSSeeds: []string{"testnet-dnsseed.dagnet.org"},

	// DAG parameters
	GenesisHeader:               &testnetGenesisHeader,
	GenesisHash:                 &testnetGenesisHash,
	PowMax:                      testnetPowMax,
	TargetTimePerBlock:          targetTimePerBlock,
	TimestampDeviationTolerance: timestampDeviationTolerance,
	TipLookbackWindow:           tipLookbackWindow,
	MaxOrphanHeaders:            maxOrphanHeaders,
	OrphanExpiration:            orphanExpiration,

	AcceptUnroutable: true,
}

// SimnetParams defines the network parameters for the simulation test
// network. This network is similar to the normal test network except it is
// intended for private use within a group of individuals doing simulation
// testing, so the proof of work limit is trivial and there are no seeds.
var SimnetParams = Params{
	Name:     "simnet",
	Net:      wire.Simnet,
	RPCPort:  "16510",
	DNSSeeds: []string{},

	// DAG parameters
	GenesisHeader:               &simnetGenesisHeader,
	GenesisHash:                 &simnetGenesisHash,
	PowMax:                      simnetPowMax,
	TargetTimePerBlock:          targetTimePerBlock,
	TimestampDeviationTolerance: timestampDeviationTolerance,
	TipLookbackWindow:           16,
	MaxOrphanHeaders:            16,
	OrphanExpiration:            orphanExpiration,

	AcceptUnroutable: true,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a DAG
	// network could not be set due to the network already being a standard
	// network or previously-registered via this package.
	ErrDuplicateNet = errors.New("duplicate DAG network")

	registeredNets = map[wire.DAGNet]struct{}{}
)

// Register registers the network parameters for a DAG network. This may
// error with ErrDuplicateNet if the network is already registered (either
// due to a previous Register call, or the network being one of the default
// networks).
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return errors.WithStack(ErrDuplicateNet)
	}
	registeredNets[params.Net] = struct{}{}
	return nil
}

func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainnetParams)
	mustRegister(&TestnetParams)
	mustRegister(&SimnetParams)
}
