package btree

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/intellect4all/storagecore/common"
)

// rootMagic tags the tree's root-pointer sidecar file, the only piece of
// tree state that isn't a page: which page id is currently the root.
const rootMagic uint32 = 0x42504c54 // "BPLT"

func rootPath(dataDir string, tableID uint32) string {
	return filepath.Join(dataDir, fmt.Sprintf("table_%d.root", tableID))
}

func loadRootPageID(dataDir string, tableID uint32) (id uint32, found bool, err error) {
	data, err := os.ReadFile(rootPath(dataDir, tableID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("btree: reading root pointer: %w", err)
	}
	if len(data) != 8 || binary.BigEndian.Uint32(data[0:4]) != rootMagic {
		return 0, false, common.ErrCorruptPage
	}
	return binary.BigEndian.Uint32(data[4:8]), true, nil
}

func persistRootPageID(dataDir string, tableID uint32, rootPageID uint32) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], rootMagic)
	binary.BigEndian.PutUint32(buf[4:8], rootPageID)

	path := rootPath(dataDir, tableID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("btree: writing root pointer: %w", err)
	}
	return os.Rename(tmp, path)
}
