package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/intellect4all/storagecore/btree"
	"github.com/intellect4all/storagecore/common"
	"github.com/intellect4all/storagecore/table"
)

// System table ids are fixed and reserved; user tables and indexes start
// numbering above them.
const (
	sysTablesID  uint32 = 1
	sysColumnsID uint32 = 2
	sysIndexesID uint32 = 3

	firstUserTableID uint32 = 4
)

var sysTablesSchema = common.Schema{
	{Name: "table_id", Type: common.TypeInt},
	{Name: "table_name", Type: common.TypeString, MaxLength: 128},
}

// SYS_COLUMNS holds one row per (table, column). table_id alone isn't a
// valid primary key here since every column of a table shares it, so the
// clustered key is row_key, a "<table_id>:<ordinal>" string built by
// columnRowKey.
var sysColumnsSchema = common.Schema{
	{Name: "row_key", Type: common.TypeString, MaxLength: 32},
	{Name: "table_id", Type: common.TypeInt},
	{Name: "ordinal", Type: common.TypeInt},
	{Name: "name", Type: common.TypeString, MaxLength: 128},
	{Name: "type_code", Type: common.TypeInt},
	{Name: "max_length", Type: common.TypeInt},
	{Name: "nullable", Type: common.TypeInt},
}

// SYS_INDEXES holds one row per (table, index), keyed the same way as
// SYS_COLUMNS for the same reason: table_id repeats across a table's
// indexes, so row_key ("<table_id>:<index_name>") is the real key.
var sysIndexesSchema = common.Schema{
	{Name: "row_key", Type: common.TypeString, MaxLength: 160},
	{Name: "table_id", Type: common.TypeInt},
	{Name: "index_name", Type: common.TypeString, MaxLength: 128},
	{Name: "column_name", Type: common.TypeString, MaxLength: 128},
	{Name: "is_unique", Type: common.TypeInt},
	{Name: "store_id", Type: common.TypeInt},
}

func columnRowKey(tableID uint32, ordinal int) common.Value {
	return common.StringValue(fmt.Sprintf("%d:%d", tableID, ordinal))
}

func indexRowKey(tableID uint32, indexName string) common.Value {
	return common.StringValue(fmt.Sprintf("%d:%s", tableID, indexName))
}

// catalog persists table and index definitions across restarts using
// three engine-hardcoded system tables, the same clustered-tree machinery
// every user table uses.
type catalog struct {
	tables  *table.Table
	columns *table.Table
	indexes *table.Table
}

func openCatalog(e *Engine) (*catalog, error) {
	tablesTree, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: sysTablesID, Pool: e.pool})
	if err != nil {
		return nil, err
	}
	tablesTbl, err := table.NewTable("SYS_TABLES", sysTablesID, sysTablesSchema, tablesTree)
	if err != nil {
		return nil, err
	}

	columnsTree, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: sysColumnsID, Pool: e.pool})
	if err != nil {
		return nil, err
	}
	columnsTbl, err := table.NewTable("SYS_COLUMNS", sysColumnsID, sysColumnsSchema, columnsTree)
	if err != nil {
		return nil, err
	}

	indexesTree, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: sysIndexesID, Pool: e.pool})
	if err != nil {
		return nil, err
	}
	indexesTbl, err := table.NewTable("SYS_INDEXES", sysIndexesID, sysIndexesSchema, indexesTree)
	if err != nil {
		return nil, err
	}

	return &catalog{tables: tablesTbl, columns: columnsTbl, indexes: indexesTbl}, nil
}

// replay reconstructs every user table (and its secondary indexes) from
// the catalog's own rows, run once by Open before the engine is handed to
// the caller.
func (c *catalog) replay(e *Engine) error {
	tableRows, err := c.tables.FullScan()
	if err != nil {
		return err
	}
	columnRows, err := c.columns.FullScan()
	if err != nil {
		return err
	}
	indexRows, err := c.indexes.FullScan()
	if err != nil {
		return err
	}

	maxID := firstUserTableID - 1
	for _, row := range tableRows {
		tableID := uint32(row[0].I32)
		name := row[1].Str

		// SYS_COLUMNS scans in row_key string order ("4:10" before "4:2"),
		// so columns are put back in ordinal order before building the schema.
		var cols []common.Row
		for _, col := range columnRows {
			if uint32(col[1].I32) == tableID {
				cols = append(cols, col)
			}
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i][2].I32 < cols[j][2].I32 })

		var schema common.Schema
		for _, col := range cols {
			schema = append(schema, common.Column{
				Name:      col[3].Str,
				Type:      common.ValueType(col[4].I32),
				MaxLength: int(col[5].I32),
				Nullable:  col[6].I32 != 0,
			})
		}
		if len(schema) == 0 {
			return errors.New("engine: catalog replay found table with no columns")
		}

		tr, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: tableID, Pool: e.pool})
		if err != nil {
			return err
		}
		tbl, err := table.NewTable(name, tableID, schema, tr)
		if err != nil {
			return err
		}
		e.tables[name] = tbl
		if tableID > maxID {
			maxID = tableID
		}

		for _, ixRow := range indexRows {
			if uint32(ixRow[1].I32) != tableID {
				continue
			}
			ixName := ixRow[2].Str
			colName := ixRow[3].Str
			unique := ixRow[4].I32 != 0
			storeID := uint32(ixRow[5].I32)

			colIdx := schema.IndexOf(colName)
			if colIdx < 0 {
				return errors.New("engine: catalog replay found index over unknown column")
			}
			ixTree, err := btree.New(btree.Config{DataDir: e.cfg.DataDir, TableID: storeID, Pool: e.pool})
			if err != nil {
				return err
			}
			tbl.AttachIndex(ixName, table.NewIndex(ixName, schema[colIdx], schema[0], unique, ixTree))
			if storeID > maxID {
				maxID = storeID
			}
		}
	}

	e.nextTableID = maxID + 1
	return nil
}

func (c *catalog) recordTable(tbl *table.Table) error {
	if err := c.tables.Insert(common.Row{
		common.IntValue(int32(tbl.ID)),
		common.StringValue(tbl.Name),
	}); err != nil {
		return err
	}
	for i, col := range tbl.Schema {
		nullable := int32(0)
		if col.Nullable {
			nullable = 1
		}
		if err := c.columns.Insert(common.Row{
			columnRowKey(tbl.ID, i),
			common.IntValue(int32(tbl.ID)),
			common.IntValue(int32(i)),
			common.StringValue(col.Name),
			common.IntValue(int32(col.Type)),
			common.IntValue(int32(col.MaxLength)),
			common.IntValue(nullable),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *catalog) removeTable(tableID uint32) error {
	columnRows, err := c.columns.FullScan()
	if err != nil {
		return err
	}
	for _, row := range columnRows {
		if uint32(row[1].I32) != tableID {
			continue
		}
		if err := c.columns.Delete(row[0]); err != nil && !errors.Is(err, common.ErrKeyNotFound) {
			return err
		}
	}

	indexRows, err := c.indexes.FullScan()
	if err != nil {
		return err
	}
	for _, row := range indexRows {
		if uint32(row[1].I32) != tableID {
			continue
		}
		if err := c.indexes.Delete(row[0]); err != nil && !errors.Is(err, common.ErrKeyNotFound) {
			return err
		}
	}

	return c.tables.Delete(common.IntValue(int32(tableID)))
}

func (c *catalog) recordIndex(tableID uint32, indexName, column string, unique bool, storeID uint32) error {
	u := int32(0)
	if unique {
		u = 1
	}
	return c.indexes.Insert(common.Row{
		indexRowKey(tableID, indexName),
		common.IntValue(int32(tableID)),
		common.StringValue(indexName),
		common.StringValue(column),
		common.IntValue(u),
		common.IntValue(int32(storeID)),
	})
}

func (c *catalog) removeIndex(tableID uint32, indexName string) error {
	err := c.indexes.Delete(indexRowKey(tableID, indexName))
	if err != nil && errors.Is(err, common.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (c *catalog) close() error {
	if err := c.tables.Close(); err != nil {
		return err
	}
	if err := c.columns.Close(); err != nil {
		return err
	}
	return c.indexes.Close()
}
