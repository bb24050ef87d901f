package common

import "errors"

// Sentinel errors returned across package boundaries. Callers match with
// errors.Is, as the table and engine packages do.
var (
	// ErrInvalidArgument covers null/empty names, wrong column counts and
	// type mismatches caught before any tree or page operation runs.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")

	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")

	ErrColumnNotFound = errors.New("column not found")

	// ErrClusteredIndexImmutable is raised when a caller tries to drop the
	// PRIMARY index of a table.
	ErrClusteredIndexImmutable = errors.New("clustered index is immutable")

	// ErrDuplicateKey is raised by a unique tree on a second insertion of
	// the same key.
	ErrDuplicateKey = errors.New("duplicate key")

	ErrKeyNotFound = errors.New("key not found")
	ErrKeyEmpty    = errors.New("key cannot be empty")

	// ErrPageFull is local to a heap or index page; it prompts the caller
	// to open a new page or split rather than propagating further.
	ErrPageFull = errors.New("page is full")

	// ErrAllPagesPinned signals every frame in the buffer pool is pinned
	// during an eviction attempt. It is a programmer bug, not a
	// recoverable condition.
	ErrAllPagesPinned = errors.New("all pages pinned")

	// ErrCorruptPage is raised by the page loader on a bad magic/kind byte.
	ErrCorruptPage = errors.New("corrupt page")

	ErrIoFailure = errors.New("io failure")

	ErrEngineClosed = errors.New("engine closed")
	ErrClosed       = errors.New("closed")
)
