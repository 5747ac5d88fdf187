package lightdag

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// defaultCacheBudget is the default number of bytes of header data the cache
// may hold.
const defaultCacheBudget = 8 * 1024 * 1024

// headerCache holds recently verified headers so callers can serve them
// without touching the database. The cache is bounded by a byte budget.
// Headers serialize to a fixed size, so the budget translates directly into
// an entry count. Tip headers are pinned: they sit outside the LRU and are
// never evicted, since the tip set is the part of the DAG everything else is
// verified against.
type headerCache struct {
	headers *lru.Cache
	pinned  map[daghash.Hash]*wire.BlockHeader
}

// newHeaderCache returns a header cache bounded by budgetBytes. A zero or
// negative budget falls back to the default.
func newHeaderCache(budgetBytes int) (*headerCache, error) {
	if budgetBytes <= 0 {
		budgetBytes = defaultCacheBudget
	}
	maxEntries := budgetBytes / wire.BlockHeaderPayload
	if maxEntries < 1 {
		maxEntries = 1
	}
	headers, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	return &headerCache{
		headers: headers,
		pinned:  make(map[daghash.Hash]*wire.BlockHeader),
	}, nil
}

// Add inserts a header into the cache, evicting the least recently used
// entry when the byte budget is exhausted.
func (c *headerCache) Add(header *wire.BlockHeader) {
	c.headers.Add(header.BlockHash(), header)
}

// Get returns the cached header for the given hash, checking pinned entries
// first.
func (c *headerCache) Get(hash *daghash.Hash) (*wire.BlockHeader, bool) {
	if header, ok := c.pinned[*hash]; ok {
		return header, true
	}
	entry, ok := c.headers.Get(*hash)
	if !ok {
		return nil, false
	}
	return entry.(*wire.BlockHeader), true
}

// PinTips replaces the pinned set with the headers of the given tip hashes.
// Former tips move back into the LRU where they age out normally.
func (c *headerCache) PinTips(tipHashes []*daghash.Hash) {
	stillTips := make(map[daghash.Hash]bool, len(tipHashes))
	for _, hash := range tipHashes {
		stillTips[*hash] = true
	}

	// Demote entries that are no longer tips.
	for hash, header := range c.pinned {
		if !stillTips[hash] {
			delete(c.pinned, hash)
			c.headers.Add(hash, header)
		}
	}

	// Promote new tips out of the LRU.
	for _, hash := range tipHashes {
		if _, ok := c.pinned[*hash]; ok {
			continue
		}
		if entry, ok := c.headers.Get(*hash); ok {
			c.pinned[*hash] = entry.(*wire.BlockHeader)
			c.headers.Remove(*hash)
		}
	}
}

// Len returns the number of cached headers, pinned entries included.
func (c *headerCache) Len() int {
	return c.headers.Len() + len(c.pinned)
}
