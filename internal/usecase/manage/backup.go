package manage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/snippet"
)

const backupTimestampLayout = "20060102_150405"

// writeBackup writes the backup bundle for an entry:
//
//	backups/{YYYYMMDD_HHMMSS}_{name}/{file}.md ...
//	backups/{YYYYMMDD_HHMMSS}_{name}/config_backup.json
//
// Every written file is re-read and size-checked before success is
// reported; the caller must not mutate live state until this returns nil.
func (m *Manager) writeBackup(entry domain.MappingEntry, resolver *snippet.Resolver) (string, error) {
	if m.backupsDir == "" {
		return "", domain.NewBackupFailedError(entry.Name, "", fmt.Errorf("no backups directory configured"))
	}

	dirName := fmt.Sprintf("%s_%s", m.now().UTC().Format(backupTimestampLayout), entry.Name)
	backupDir := filepath.Join(m.backupsDir, dirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", domain.NewBackupFailedError(entry.Name, backupDir, err)
	}

	var written []struct {
		path string
		size int
	}

	for _, ref := range entry.Snippet {
		src := resolver.PathFor(ref)
		data, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			// Nothing to preserve for an already-missing file.
			continue
		}
		if err != nil {
			return "", domain.NewBackupFailedError(entry.Name, src, err)
		}
		dst := filepath.Join(backupDir, filepath.Base(ref))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return "", domain.NewBackupFailedError(entry.Name, dst, err)
		}
		written = append(written, struct {
			path string
			size int
		}{dst, len(data)})
	}

	snapshot, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", domain.NewBackupFailedError(entry.Name, backupDir, err)
	}
	snapshot = append(snapshot, '\n')
	snapshotPath := filepath.Join(backupDir, "config_backup.json")
	if err := os.WriteFile(snapshotPath, snapshot, 0o644); err != nil {
		return "", domain.NewBackupFailedError(entry.Name, snapshotPath, err)
	}
	written = append(written, struct {
		path string
		size int
	}{snapshotPath, len(snapshot)})

	// Confirm the bundle landed before the caller destroys anything.
	for _, w := range written {
		info, err := os.Stat(w.path)
		if err != nil {
			return "", domain.NewBackupFailedError(entry.Name, w.path, err)
		}
		if info.Size() != int64(w.size) {
			return "", domain.NewBackupFailedError(entry.Name, w.path,
				fmt.Errorf("backup size mismatch: wrote %d bytes, found %d", w.size, info.Size()))
		}
	}

	return backupDir, nil
}
