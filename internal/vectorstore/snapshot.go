package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/splashxmoon/domufi-app/internal/domain"
)

// snapshotFile is the name of the state file inside the store directory.
const snapshotFile = "vector_store.json"

// snapshot is the on-disk representation shared by both backends.
type snapshot struct {
	Dims    int                 `json:"dims"`
	Vectors [][]float32         `json:"vectors"`
	Items   []domain.StoredItem `json:"items"`
}

// saveSnapshot writes the snapshot atomically (write temp file, rename).
func saveSnapshot(dir string, snap snapshot) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp := filepath.Join(dir, snapshotFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, snapshotFile)); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// loadSnapshot reads a snapshot from the store directory. A missing or
// corrupt snapshot loads as an empty store: the memory is rebuilt by the
// learning loops, so a fresh start beats refusing to boot.
func loadSnapshot(dir string, dims int) snapshot {
	empty := snapshot{Dims: dims}
	if dir == "" {
		return empty
	}

	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("vectorstore: snapshot unreadable, starting empty: %v", err)
		}
		return empty
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("vectorstore: snapshot corrupt, starting empty: %v", err)
		return empty
	}

	if snap.Dims != dims || len(snap.Vectors) != len(snap.Items) {
		log.Printf("vectorstore: snapshot shape mismatch (dims %d vs %d, %d vectors vs %d items), starting empty",
			snap.Dims, dims, len(snap.Vectors), len(snap.Items))
		return empty
	}

	for _, v := range snap.Vectors {
		if len(v) != dims {
			log.Printf("vectorstore: snapshot vector dimension mismatch, starting empty")
			return empty
		}
	}

	return snap
}
