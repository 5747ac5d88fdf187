// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dagconfig

import (
	"time"

	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// genesisMerkleRoot is the merkle root committed to by the genesis header
// for the main network.
var genesisMerkleRoot = daghash.Hash([daghash.HashSize]byte{ // Make go vet happy.
	0x4a, 0x5e, 0x1e, 0x4b, 0xaa, 0xb8, 0x9f, 0x3a,
	0x32, 0x51, 0x8a, 0x88, 0xc3, 0x1b, 0xc8, 0x7f,
	0x61, 0x8f, 0x76, 0x67, 0x3e, 0x2c, 0xc7, 0x7a,
	0xb2, 0x12, 0x7b, 0x7a, 0xfd, 0xed, 0xa3, 0x3b,
})

// genesisHeader defines the genesis header of the DAG which serves as the
// starting point of verification for the main network. Genesis carries no
// producer key and no signature; it is trusted by construction rather than
// verified.
var genesisHeader = wire.BlockHeader{
	Version:        1,
	PrevBlock:      daghash.ZeroHash,
	HashMerkleRoot: genesisMerkleRoot,
	Height:         0,
	Timestamp:      time.Unix(0x5FD23400, 0), // 2020-12-10 20:00:00 +0000 UTC
	Bits:           0x1e7fffff,
	Nonce:          0,
}

// genesisHash is the hash of the genesis header for the main network. The
// signature is excluded from the hash, so the value is fully determined by
// the fields above.
var genesisHash = genesisHeader.BlockHash()

// testnetGenesisMerkleRoot is the merkle root committed to by the genesis
// header for the test network.
var testnetGenesisMerkleRoot = daghash.Hash([daghash.HashSize]byte{ // Make go vet happy.
	0x8a, 0xb7, 0xd0, 0x94, 0x16, 0x3f, 0x2c, 0x7e,
	0x1d, 0x42, 0x6a, 0x13, 0x95, 0x7e, 0xcf, 0x44,
	0x20, 0x8b, 0xd1, 0x69, 0x3c, 0x50, 0xaa, 0xf1,
	0x04, 0x9e, 0x28, 0x17, 0x56, 0xbf, 0x9d, 0x62,
})

// testnetGenesisHeader defines the genesis header for the test network.
var testnetGenesisHeader = wire.BlockHeader{
	Version:        1,
	PrevBlock:      daghash.ZeroHash,
	HashMerkleRoot: testnetGenesisMerkleRoot,
	Height:         0,
	Timestamp:      time.Unix(0x5FD23400, 0), // 2020-12-10 20:00:00 +0000 UTC
	Bits:           0x1e7fffff,
	Nonce:          0,
}

// testnetGenesisHash is the hash of the genesis header for the test network.
var testnetGenesisHash = testnetGenesisHeader.BlockHash()

// simnetGenesisMerkleRoot is the merkle root committed to by the genesis
// header for the simulation test network.
var simnetGenesisMerkleRoot = daghash.Hash([daghash.HashSize]byte{ // Make go vet happy.
	0x26, 0x1d, 0x9c, 0x44, 0x3e, 0x92, 0x0a, 0xd5,
	0x7f, 0x63, 0x11, 0xda, 0x82, 0x4e, 0x9f, 0x08,
	0x39, 0x75, 0xe1, 0x06, 0x2a, 0xc8, 0xf4, 0xbd,
	0x50, 0x2e, 0x63, 0x9b, 0x19, 0x40, 0x1c, 0x77,
})

// simnetGenesisHeader defines the genesis header for the simulation test
// network.
var simnetGenesisHeader = wire.BlockHeader{
	Version:        1,
	PrevBlock:      daghash.ZeroHash,
	HashMerkleRoot: simnetGenesisMerkleRoot,
	Height:         0,
	Timestamp:      time.Unix(0x5FD23400, 0), // 2020-12-10 20:00:00 +0000 UTC
	Bits:           0x207fffff,
	Nonce:          0,
}

// simnetGenesisHash is the hash of the genesis header for the simulation
// test network.
var simnetGenesisHash = simnetGenesisHeader.BlockHash()
