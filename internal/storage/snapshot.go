package storage

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SnapshotInterval paces state-directory backups.
const SnapshotInterval = 15 * time.Minute

// ObjectPutter is the upload surface the backup needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// SnapshotBackup uploads the JSON state files the learning loops persist
// to object storage, so a fresh instance can warm-start.
type SnapshotBackup struct {
	client   ObjectPutter
	stateDir string
	prefix   string
}

func NewSnapshotBackup(client ObjectPutter, stateDir, prefix string) *SnapshotBackup {
	if prefix == "" {
		prefix = "state"
	}
	return &SnapshotBackup{client: client, stateDir: stateDir, prefix: prefix}
}

// ProcessJobs uploads every JSON file under the state directory. Individual
// upload failures are logged and do not abort the pass.
func (b *SnapshotBackup) ProcessJobs(ctx context.Context) error {
	var uploaded int
	err := filepath.WalkDir(b.stateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("snapshot: read %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(b.stateDir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		key := b.prefix + "/" + filepath.ToSlash(rel)
		if err := b.client.PutObject(ctx, key, data, "application/json"); err != nil {
			log.Printf("snapshot: upload %s: %v", key, err)
			return nil
		}
		uploaded++
		return nil
	})
	if err != nil {
		return err
	}
	if uploaded > 0 {
		log.Printf("snapshot: uploaded %d state files", uploaded)
	}
	return nil
}
