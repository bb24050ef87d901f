// Package engine ties the table layer to a single shared buffer pool,
// giving callers a name-addressed registry of tables and their indexes —
// the storage engine's public front door.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/intellect4all/storagecore/btree"
	"github.com/intellect4all/storagecore/buffer"
	"github.com/intellect4all/storagecore/common"
	"github.com/intellect4all/storagecore/table"
)

// Config configures an Engine.
type Config struct {
	DataDir string

	// CacheSize is the number of pages the shared buffer pool holds.
	CacheSize int

	// Persistent enables the SYS_TABLES/SYS_COLUMNS system catalog: table
	// definitions created through this engine survive a restart and are
	// replayed by Open. Without it, Open always starts with zero tables,
	// matching the teacher's in-memory-schema default.
	Persistent bool
}

// DefaultConfig returns sensible defaults for an engine rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:    dataDir,
		CacheSize:  4096,
		Persistent: true,
	}
}

// Engine is the storage engine's registry and lifecycle owner: one shared
// BufferPool, a name-to-Table map, and the system catalog when persistent.
type Engine struct {
	cfg  Config
	pool *buffer.Pool

	mu          sync.RWMutex
	tables      map[string]*table.Table
	nextTableID uint32
	closed      atomic.Bool

	catalog *catalog
}

// Open creates or reopens an engine at cfg.DataDir. In persistent mode it
// replays SYS_TABLES and SYS_COLUMNS to reconstruct every previously
// created user table before returning.
func Open(cfg Config) (*Engine, error) {
	e := &Engine{
		cfg:         cfg,
		pool:        buffer.NewPool(cfg.DataDir, cfg.CacheSize),
		tables:      make(map[string]*table.Table),
		nextTableID: firstUserTableID,
	}

	if cfg.Persistent {
		cat, err := openCatalog(e)
		if err != nil {
			return nil, err
		}
		e.catalog = cat
		if err := cat.replay(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) allocTableID() uint32 {
	id := e.nextTableID
	e.nextTableID++
	return id
}

// CreateTable registers a new table named name with the given columns.
// The first column becomes the clustered primary key.
func (e *Engine) CreateTable(name string, columns common.Schema) (*table.Table, error) {
	if e.closed.Load() {
		return nil, common.ErrEngineClosed
	}
	if name == "" || len(columns) == 0 {
		return nil, common.ErrInvalidArgument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tables[name]; exists {
		return nil, common.ErrTableExists
	}

	id := e.allocTableID()
	tr, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: id, Pool: e.pool})
	if err != nil {
		return nil, err
	}
	tbl, err := table.NewTable(name, id, columns, tr)
	if err != nil {
		return nil, err
	}
	e.tables[name] = tbl

	if e.catalog != nil {
		if err := e.catalog.recordTable(tbl); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// GetTable returns the named table.
func (e *Engine) GetTable(name string) (*table.Table, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tbl, ok := e.tables[name]
	if !ok {
		return nil, common.ErrTableNotFound
	}
	return tbl, nil
}

// DropTable closes and removes the named table.
func (e *Engine) DropTable(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tbl, ok := e.tables[name]
	if !ok {
		return common.ErrTableNotFound
	}
	if err := tbl.Close(); err != nil {
		return err
	}
	delete(e.tables, name)

	if e.catalog != nil {
		return e.catalog.removeTable(tbl.ID)
	}
	return nil
}

// TableExists reports whether name is registered.
func (e *Engine) TableExists(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.tables[name]
	return ok
}

// AllTableNames returns every registered table's name, in no particular
// order.
func (e *Engine) AllTableNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tables))
	for n := range e.tables {
		names = append(names, n)
	}
	return names
}

// TableCount returns the number of registered tables.
func (e *Engine) TableCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tables)
}

// CreateIndex builds a new secondary index named indexName over column on
// the named table, back-filling it from the table's current rows.
func (e *Engine) CreateIndex(tableName, indexName, column string, unique bool) error {
	if e.closed.Load() {
		return common.ErrEngineClosed
	}

	e.mu.Lock()
	tbl, ok := e.tables[tableName]
	if !ok {
		e.mu.Unlock()
		return common.ErrTableNotFound
	}
	id := e.allocTableID()
	e.mu.Unlock()

	colIdx := tbl.Schema.IndexOf(column)
	if colIdx < 0 {
		return common.ErrColumnNotFound
	}

	if err := tbl.AddSecondaryIndex(indexName, tbl.Schema[colIdx], unique, e.pool, e.cfg.DataDir, id); err != nil {
		return err
	}
	if e.catalog != nil {
		return e.catalog.recordIndex(tbl.ID, indexName, column, unique, id)
	}
	return nil
}

// DropIndex removes indexName from the named table. Dropping "PRIMARY" is
// refused: the clustered index isn't a detachable secondary index.
func (e *Engine) DropIndex(tableName, indexName string) error {
	if indexName == "PRIMARY" {
		return common.ErrClusteredIndexImmutable
	}

	e.mu.RLock()
	tbl, ok := e.tables[tableName]
	e.mu.RUnlock()
	if !ok {
		return common.ErrTableNotFound
	}

	if err := tbl.DropSecondaryIndex(indexName); err != nil {
		return err
	}
	if e.catalog != nil {
		return e.catalog.removeIndex(tbl.ID, indexName)
	}
	return nil
}

// Close flushes and closes every table, then the shared pool. After Close,
// CreateTable and CreateIndex fail with common.ErrEngineClosed; the other
// Engine methods do not check for a closed engine.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, tbl := range e.tables {
		if err := tbl.Close(); err != nil {
			return fmt.Errorf("engine: closing table %q: %w", name, err)
		}
	}
	if e.catalog != nil {
		if err := e.catalog.close(); err != nil {
			return err
		}
	}
	return e.pool.Close()
}
