// Package btree implements the on-disk B+Tree: the sole index structure
// backing both a table's clustered storage and its secondary indexes. Keys
// and values are opaque byte strings; ordering is whatever bytes.Compare
// says, leaving the translation from typed column values to sortable keys
// to the table package above this one.
package btree

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/intellect4all/storagecore/buffer"
	"github.com/intellect4all/storagecore/common"
	"github.com/intellect4all/storagecore/page"

	alloclib "github.com/intellect4all/storagecore/alloc"
)

// Config holds a single tree's tunables. A BPlusTree never owns a buffer
// pool outright in a running engine — several trees (clustered and
// secondary, across every table) share one buffer.Pool — but Config lets a
// tree open standalone, which is how most tests use it.
type Config struct {
	DataDir   string
	TableID   uint32
	CacheSize int // pages kept in the private pool when Pool is nil
	Pool      *buffer.Pool
}

// DefaultConfig returns sensible defaults for a standalone tree rooted at
// dataDir, with table id 1.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:   dataDir,
		TableID:   1,
		CacheSize: 4096,
	}
}

// BPlusTree is one ordered index: a clustered table's primary storage, or
// one of its secondary indexes. It implements common.StorageEngine, the
// raw key-value contract independent of the table/schema layer above it.
type BPlusTree struct {
	dataDir string
	tableID uint32

	pool      *buffer.Pool
	ownedPool bool
	alloc     *alloclib.PageAllocator

	mu         sync.RWMutex
	rootPageID uint32

	numKeys    atomic.Int64
	writeCount atomic.Int64
	readCount  atomic.Int64

	closed atomic.Bool
}

// New opens or creates the tree described by cfg. When cfg.Pool is nil, the
// tree opens a private buffer.Pool sized to cfg.CacheSize.
func New(cfg Config) (*BPlusTree, error) {
	a, err := alloclib.NewPageAllocator(cfg.DataDir, cfg.TableID)
	if err != nil {
		return nil, err
	}

	pool := cfg.Pool
	ownedPool := false
	if pool == nil {
		pool = buffer.NewPool(cfg.DataDir, cfg.CacheSize)
		ownedPool = true
	}

	t := &BPlusTree{
		dataDir:   cfg.DataDir,
		tableID:   cfg.TableID,
		pool:      pool,
		ownedPool: ownedPool,
		alloc:     a,
	}

	rootID, found, err := loadRootPageID(cfg.DataDir, cfg.TableID)
	if err != nil {
		return nil, err
	}
	if found {
		t.rootPageID = rootID
		return t, nil
	}

	// Fresh tree: allocate an empty leaf as the initial root.
	leafID := a.Allocate()
	frame, err := t.newNodePage(leafID, &page.Node{IsLeaf: true})
	if err != nil {
		return nil, err
	}
	if err := t.pool.Unpin(t.tableID, leafID, true); err != nil {
		return nil, err
	}
	_ = frame
	t.rootPageID = leafID
	if err := persistRootPageID(cfg.DataDir, cfg.TableID, leafID); err != nil {
		return nil, err
	}
	if err := a.Persist(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *BPlusTree) newNodePage(id uint32, n *page.Node) (*buffer.Frame, error) {
	pg := page.New(id, page.KindIndex)
	frame, err := t.pool.NewPage(t.tableID, pg)
	if err != nil {
		return nil, err
	}
	ip, err := page.LoadIndexPage(frame.Page)
	if err != nil {
		return nil, err
	}
	if err := ip.SetNode(n); err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *BPlusTree) loadNode(pageID uint32) (*page.Node, *buffer.Frame, error) {
	frame, err := t.pool.Get(t.tableID, pageID)
	if err != nil {
		return nil, nil, err
	}
	ip, err := page.LoadIndexPage(frame.Page)
	if err != nil {
		_ = t.pool.Unpin(t.tableID, pageID, false)
		return nil, nil, err
	}
	n, err := ip.Node()
	if err != nil {
		_ = t.pool.Unpin(t.tableID, pageID, false)
		return nil, nil, err
	}
	return n, frame, nil
}

func (t *BPlusTree) saveNode(frame *buffer.Frame, n *page.Node) error {
	ip, err := page.LoadIndexPage(frame.Page)
	if err != nil {
		return err
	}
	return ip.SetNode(n)
}

// findLeafPath walks from the root to the leaf that would hold key,
// recording the page id chain for callers that need to walk back up
// (split propagation, merge/redistribute after delete).
func (t *BPlusTree) findLeafPath(key []byte) ([]uint32, error) {
	path := []uint32{t.rootPageID}
	pageID := t.rootPageID
	for {
		n, _, err := t.loadNode(pageID)
		if err != nil {
			return nil, err
		}
		isLeaf := n.IsLeaf
		var next uint32
		if !isLeaf {
			next = childFor(n, key)
		}
		if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
			return nil, err
		}
		if isLeaf {
			return path, nil
		}
		pageID = next
		path = append(path, pageID)
	}
}

// childFor returns the child page id that should hold key, given an
// internal node's separators. Separator i means "keys >= Entries[i].Key
// belong under Entries[i].Child"; keys below the first separator belong
// under LeftmostChild.
func childFor(n *page.Node, key []byte) uint32 {
	child := n.LeftmostChild
	for _, e := range n.Entries {
		if bytes.Compare(key, e.Key) >= 0 {
			child = e.Child
		} else {
			break
		}
	}
	return child
}

// leafSearch returns the index of key in a leaf's entries, or -1.
func leafSearch(n *page.Node, key []byte) int {
	for i, e := range n.Entries {
		if bytes.Equal(e.Key, key) {
			return i
		}
	}
	return -1
}

// leafInsertPos returns the index at which key should be inserted to keep
// entries sorted.
func leafInsertPos(n *page.Node, key []byte) int {
	for i, e := range n.Entries {
		if bytes.Compare(key, e.Key) < 0 {
			return i
		}
	}
	return len(n.Entries)
}

// Put inserts key with value, overwriting any existing value for key.
// Non-unique duplicate keys (used by non-unique secondary indexes) are
// handled one level up, in the table package, by encoding a row pointer
// into the key itself; the tree always treats equal keys as the same slot.
func (t *BPlusTree) Put(key, value []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if t.closed.Load() {
		return common.ErrClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.writeCount.Add(1)

	grew, err := t.insertAndSplit(t.rootPageID, key, value)
	if err != nil {
		return err
	}
	if grew != nil {
		if err := t.handleRootSplit(grew); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored at key, or common.ErrKeyNotFound.
func (t *BPlusTree) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrKeyEmpty
	}
	if t.closed.Load() {
		return nil, common.ErrClosed
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	t.readCount.Add(1)

	path, err := t.findLeafPath(key)
	if err != nil {
		return nil, err
	}
	leafID := path[len(path)-1]
	n, _, err := t.loadNode(leafID)
	if err != nil {
		return nil, err
	}
	defer t.pool.Unpin(t.tableID, leafID, false)

	idx := leafSearch(n, key)
	if idx < 0 {
		return nil, common.ErrKeyNotFound
	}
	return append([]byte(nil), n.Entries[idx].Value...), nil
}

// Delete removes key. It returns common.ErrKeyNotFound if key is absent.
func (t *BPlusTree) Delete(key []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if t.closed.Load() {
		return common.ErrClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.findLeafPath(key)
	if err != nil {
		return err
	}
	leafID := path[len(path)-1]
	n, frame, err := t.loadNode(leafID)
	if err != nil {
		return err
	}

	idx := leafSearch(n, key)
	if idx < 0 {
		_ = t.pool.Unpin(t.tableID, leafID, false)
		return common.ErrKeyNotFound
	}
	n.Entries = append(n.Entries[:idx], n.Entries[idx+1:]...)
	if err := t.saveNode(frame, n); err != nil {
		_ = t.pool.Unpin(t.tableID, leafID, false)
		return err
	}
	if err := t.pool.Unpin(t.tableID, leafID, true); err != nil {
		return err
	}

	t.writeCount.Add(1)
	return t.rebalance(path)
}

// Close persists the allocator state and marks the tree closed. A
// standalone tree closes its own pool, which flushes every dirty page. A
// tree sharing a pool with others (the normal engine-managed case) flushes
// only its root page and leaves the pool open for its siblings; its other
// dirty pages stay in the pool until the pool itself is flushed or closed.
func (t *BPlusTree) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if err := t.alloc.Persist(); err != nil {
		return err
	}
	if t.ownedPool {
		return t.pool.Close()
	}
	return t.pool.Flush(t.tableID, t.rootPageID)
}

// Sync flushes all dirty pages belonging to this tree's table and persists
// its allocator state.
func (t *BPlusTree) Sync() error {
	if t.closed.Load() {
		return common.ErrClosed
	}
	if err := t.pool.FlushAll(); err != nil {
		return err
	}
	return t.alloc.Persist()
}

// Stats reports counters for benchmarking and diagnostics.
func (t *BPlusTree) Stats() common.Stats {
	ps := t.pool.Stats()
	numPages := t.alloc.AllocatedCount()
	return common.Stats{
		NumKeys:       t.numKeys.Load(),
		NumPages:      numPages,
		TotalDiskSize: int64(numPages) * page.Size,
		WriteCount:    t.writeCount.Load(),
		ReadCount:     t.readCount.Load(),
		CacheHits:     ps.Hits,
		CacheMisses:   ps.Misses,
		Evictions:     ps.Evictions,
	}
}

// Compact is a no-op: a B+Tree updates in place and never accumulates the
// write-amplifying segment files an LSM engine would need to compact.
func (t *BPlusTree) Compact() error { return nil }

// Range returns every (key, value) pair with lo <= key <= hi, in ascending
// key order. A nil lo or hi means unbounded on that side. The tree holds
// one value per key, so a non-unique secondary index finds the several
// row pointers for one value by ranging over the composite keys that
// share that value as a prefix.
func (t *BPlusTree) Range(lo, hi []byte) ([]common.KV, error) {
	if t.closed.Load() {
		return nil, common.ErrClosed
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	startLeaf := t.rootPageID
	if lo != nil {
		path, err := t.findLeafPath(lo)
		if err != nil {
			return nil, err
		}
		startLeaf = path[len(path)-1]
	} else {
		path, err := t.leftmostLeafPath()
		if err != nil {
			return nil, err
		}
		startLeaf = path[len(path)-1]
	}

	var out []common.KV
	pageID := startLeaf
	for pageID != 0 {
		n, _, err := t.loadNode(pageID)
		if err != nil {
			return nil, err
		}
		next := n.NextLeafPageID
		for _, e := range n.Entries {
			if lo != nil && bytes.Compare(e.Key, lo) < 0 {
				continue
			}
			if hi != nil && bytes.Compare(e.Key, hi) > 0 {
				if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
					return nil, err
				}
				return out, nil
			}
			out = append(out, common.KV{Key: append([]byte(nil), e.Key...), Value: append([]byte(nil), e.Value...)})
		}
		if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
			return nil, err
		}
		pageID = next
	}
	return out, nil
}

func (t *BPlusTree) leftmostLeafPath() ([]uint32, error) {
	path := []uint32{t.rootPageID}
	pageID := t.rootPageID
	for {
		n, _, err := t.loadNode(pageID)
		if err != nil {
			return nil, err
		}
		isLeaf := n.IsLeaf
		var next uint32
		if !isLeaf {
			next = n.LeftmostChild
		}
		if err := t.pool.Unpin(t.tableID, pageID, false); err != nil {
			return nil, err
		}
		if isLeaf {
			return path, nil
		}
		pageID = next
		path = append(path, pageID)
	}
}

var _ common.StorageEngine = (*BPlusTree)(nil)

func fitsInPage(n *page.Node) bool {
	return n.EncodedSize() <= page.BodySize
}

func minOccupancy() int {
	return page.BodySize / 2
}
