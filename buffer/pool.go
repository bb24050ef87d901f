// Package buffer implements the process-wide page cache shared by every
// table's B+Tree. It is grounded on the teacher's single-tree Pager, widened
// to multiple tables behind one LRU and one file handle per table.
package buffer

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/intellect4all/storagecore/common"
	"github.com/intellect4all/storagecore/page"
)

// key identifies a cached page across every table. It is a struct, not an
// arithmetic combination of tableID and pageID: packing the two into a
// single integer risks two distinct (table, page) pairs colliding on the
// same cache slot once either id grows past the other's assumed bit width.
type key struct {
	tableID uint32
	pageID  uint32
}

// Frame is one cached page plus its pin/dirty bookkeeping. tableID is
// stamped once, by whichever call first loads the page into the pool, and
// is never re-derived from cache state afterward.
type Frame struct {
	Page     *page.Page
	tableID  uint32
	dirty    bool
	pinCount int
}

// Pool is the shared buffer pool. One Pool backs every table opened by a
// running engine.
type Pool struct {
	mu sync.Mutex

	dataDir  string
	capacity int

	frames map[key]*Frame
	lru    *list.List
	lruPos map[key]*list.Element

	files map[uint32]*os.File

	hits, misses, evictions int64
	reads, writes           int64
}

// NewPool creates a buffer pool backed by per-table files under dataDir,
// holding at most capacity pages in memory at once.
func NewPool(dataDir string, capacity int) *Pool {
	return &Pool{
		dataDir:  dataDir,
		capacity: capacity,
		frames:   make(map[key]*Frame),
		lru:      list.New(),
		lruPos:   make(map[key]*list.Element),
		files:    make(map[uint32]*os.File),
	}
}

func (p *Pool) fileFor(tableID uint32) (*os.File, error) {
	if f, ok := p.files[tableID]; ok {
		return f, nil
	}
	path := filepath.Join(p.dataDir, fmt.Sprintf("table_%d.db", tableID))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("buffer: opening %s: %w", path, err)
	}
	p.files[tableID] = f
	return f, nil
}

func (p *Pool) readFromDisk(tableID, pageID uint32) (*page.Page, error) {
	f, err := p.fileFor(tableID)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, page.Size)
	n, err := f.ReadAt(buf, int64(pageID)*page.Size)
	if err != nil && n == 0 {
		// Short or missing region: treat as a fresh, never-written page.
		return page.Load(make([]byte, page.Size))
	}
	if n < page.Size {
		return nil, common.ErrIoFailure
	}
	p.reads++
	return page.Load(buf)
}

func (p *Pool) writeToDisk(tableID uint32, pg *page.Page) error {
	f, err := p.fileFor(tableID)
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(pg.Bytes(), int64(pg.ID())*page.Size); err != nil {
		return fmt.Errorf("buffer: writing page %d: %w", pg.ID(), err)
	}
	p.writes++
	return nil
}

// Get loads a page into the pool, pinning it, and returns its frame. A
// cache hit moves the frame to the front of the LRU; a miss reads the page
// from disk (or synthesizes a zeroed one if the backing file doesn't yet
// extend that far) and may evict to make room.
func (p *Pool) Get(tableID, pageID uint32) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{tableID, pageID}
	if f, ok := p.frames[k]; ok {
		p.hits++
		p.touch(k)
		f.pinCount++
		return f, nil
	}

	p.misses++
	pg, err := p.readFromDisk(tableID, pageID)
	if err != nil {
		return nil, err
	}
	return p.insert(k, pg, false)
}

// NewPage installs a freshly allocated page into the pool, pinned once.
// It fails if the (table, page) key is already cached, since that would
// silently discard whatever the caller thinks it's creating.
func (p *Pool) NewPage(tableID uint32, pg *page.Page) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{tableID, pg.ID()}
	if _, ok := p.frames[k]; ok {
		return nil, fmt.Errorf("buffer: page %d already cached for table %d", pg.ID(), tableID)
	}
	return p.insert(k, pg, true)
}

func (p *Pool) insert(k key, pg *page.Page, dirty bool) (*Frame, error) {
	if len(p.frames) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return nil, err
		}
	}

	f := &Frame{Page: pg, tableID: k.tableID, dirty: dirty, pinCount: 1}
	p.frames[k] = f
	elem := p.lru.PushFront(k)
	p.lruPos[k] = elem
	return f, nil
}

func (p *Pool) touch(k key) {
	if elem, ok := p.lruPos[k]; ok {
		p.lru.MoveToFront(elem)
	}
}

// evictOne evicts the least-recently-used unpinned frame. Caller holds mu.
func (p *Pool) evictOne() error {
	for elem := p.lru.Back(); elem != nil; elem = elem.Prev() {
		k := elem.Value.(key)
		f := p.frames[k]
		if f.pinCount > 0 {
			continue
		}
		if f.dirty {
			if err := p.writeToDisk(f.tableID, f.Page); err != nil {
				return err
			}
		}
		delete(p.frames, k)
		delete(p.lruPos, k)
		p.lru.Remove(elem)
		p.evictions++
		return nil
	}
	return common.ErrAllPagesPinned
}

// Unpin releases one pin on a page, optionally marking it dirty.
func (p *Pool) Unpin(tableID, pageID uint32, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.frames[key{tableID, pageID}]
	if !ok {
		return common.ErrKeyNotFound
	}
	if f.pinCount == 0 {
		return fmt.Errorf("buffer: unpin of page %d (table %d) with zero pin count", pageID, tableID)
	}
	f.pinCount--
	if dirty {
		f.dirty = true
	}
	return nil
}

// Flush writes one page to disk if dirty, without evicting it.
func (p *Pool) Flush(tableID, pageID uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.frames[key{tableID, pageID}]
	if !ok || !f.dirty {
		return nil
	}
	if err := p.writeToDisk(f.tableID, f.Page); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// FlushAll writes every dirty frame to disk, regardless of table. Each
// frame carries its own tableID, set once when it entered the pool, so
// this never has to guess which file a page belongs to.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if !f.dirty {
			continue
		}
		if err := p.writeToDisk(f.tableID, f.Page); err != nil {
			return err
		}
		f.dirty = false
	}
	for _, f := range p.files {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Clear flushes every dirty frame, then drops the entire cache, for callers
// that want to force every subsequent Get to hit disk without discarding
// any pending writes.
func (p *Pool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if !f.dirty {
			continue
		}
		if err := p.writeToDisk(f.tableID, f.Page); err != nil {
			return err
		}
		f.dirty = false
	}

	p.frames = make(map[key]*Frame)
	p.lru = list.New()
	p.lruPos = make(map[key]*list.Element)
	return nil
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits, Misses, Evictions int64
	Reads, Writes           int64
	CachedFrames            int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Hits:         p.hits,
		Misses:       p.misses,
		Evictions:    p.evictions,
		Reads:        p.reads,
		Writes:       p.writes,
		CachedFrames: len(p.frames),
	}
}

// Close flushes every dirty frame and closes every open table file.
func (p *Pool) Close() error {
	if err := p.FlushAll(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, f := range p.files {
		if err := f.Close(); err != nil {
			return err
		}
		delete(p.files, id)
	}
	return nil
}
