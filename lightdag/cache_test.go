package lightdag

import (
	"testing"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

func TestHeaderCacheEviction(t *testing.T) {
	// A budget of four headers keeps the LRU small enough to overflow
	// with a handful of inserts.
	cache, err := newHeaderCache(4 * wire.BlockHeaderPayload)
	if err != nil {
		t.Fatalf("newHeaderCache: %s", err)
	}

	producer := newTestProducer(t)
	chain := producer.buildChain(t, dagconfig.SimnetParams.GenesisHeader, 8)
	for _, header := range chain {
		cache.Add(header)
	}

	// The oldest entries must have been evicted.
	firstHash := chain[0].BlockHash()
	if _, ok := cache.Get(&firstHash); ok {
		t.Error("oldest header survived past the cache budget")
	}
	lastHash := chain[len(chain)-1].BlockHash()
	if _, ok := cache.Get(&lastHash); !ok {
		t.Error("newest header missing from the cache")
	}
}

func TestHeaderCachePinsTips(t *testing.T) {
	cache, err := newHeaderCache(4 * wire.BlockHeaderPayload)
	if err != nil {
		t.Fatalf("newHeaderCache: %s", err)
	}

	producer := newTestProducer(t)
	chain := producer.buildChain(t, dagconfig.SimnetParams.GenesisHeader, 2)
	tip := chain[len(chain)-1]
	tipHash := tip.BlockHash()

	cache.Add(chain[0])
	cache.Add(tip)
	cache.PinTips([]*daghash.Hash{&tipHash})

	// Flood the LRU; the pinned tip must survive.
	flood := producer.buildChain(t, tip, 10)
	for _, header := range flood {
		cache.Add(header)
	}
	if _, ok := cache.Get(&tipHash); !ok {
		t.Fatal("pinned tip evicted")
	}

	// Unpinning moves the former tip back under LRU policy.
	newTipHash := flood[len(flood)-1].BlockHash()
	cache.PinTips([]*daghash.Hash{&newTipHash})
	for _, header := range producer.buildChain(t, flood[len(flood)-1], 10) {
		cache.Add(header)
	}
	if _, ok := cache.Get(&tipHash); ok {
		t.Error("former tip survived eviction after being unpinned")
	}
	if _, ok := cache.Get(&newTipHash); !ok {
		t.Error("newly pinned tip missing")
	}
}
