package manage

import (
	"context"
	"fmt"
	"os"

	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
)

// Delete removes an entry and its snippet files. With Backup set, the
// backup bundle is written and confirmed before any live state is touched;
// a failed backup aborts the whole operation.
func (m *Manager) Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	merged, err := m.mappings.Load()
	if err != nil {
		return DeleteResult{}, err
	}
	entry, ok := merged.Get(req.Name)
	if !ok {
		return DeleteResult{}, domain.NewNotFoundError(req.Name)
	}

	base, local, err := m.mappings.LoadDocuments()
	if err != nil {
		return DeleteResult{}, err
	}

	// Documents the entry will be removed from. An explicit target limits
	// removal to that document.
	targets := make(map[domain.Target]bool)
	if req.Target != "" {
		if !req.Target.Valid() {
			return DeleteResult{}, fmt.Errorf("unknown write target %q (want base or local)", req.Target)
		}
		doc := base
		if req.Target == domain.TargetLocal {
			doc = local
		}
		if indexOf(doc, req.Name) < 0 {
			return DeleteResult{}, domain.NewNotFoundError(req.Name)
		}
		targets[req.Target] = true
	} else {
		if indexOf(base, req.Name) >= 0 {
			targets[domain.TargetBase] = true
		}
		if indexOf(local, req.Name) >= 0 {
			targets[domain.TargetLocal] = true
		}
	}

	resolver := m.resolverFor(req.SnippetsDir)

	result := DeleteResult{Name: req.Name}
	if req.Backup {
		backupDir, err := m.writeBackup(entry, resolver)
		if err != nil {
			return DeleteResult{}, err
		}
		result.BackupDir = backupDir
	}

	if targets[domain.TargetBase] {
		base.Mappings = removeEntry(base.Mappings, req.Name)
		if err := m.mappings.Save(base, domain.TargetBase); err != nil {
			return DeleteResult{}, err
		}
	}
	if targets[domain.TargetLocal] {
		local.Mappings = removeEntry(local.Mappings, req.Name)
		if err := m.mappings.Save(local, domain.TargetLocal); err != nil {
			return DeleteResult{}, err
		}
	}

	// Snippet files go last, and only when no surviving entry still
	// references them.
	remaining := mapping.Merge(base, local)
	for _, ref := range entry.Snippet {
		if remaining.Has(req.Name) || referencedBy(remaining, ref) {
			continue
		}
		path := resolver.PathFor(ref)
		err := os.Remove(path)
		switch {
		case err == nil:
			result.RemovedFiles = append(result.RemovedFiles, path)
		case os.IsNotExist(err):
			// already gone, nothing to do
		default:
			result.OrphanedFiles = append(result.OrphanedFiles, path)
			m.logger.LogWarning(ctx, "delete left an orphan snippet file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	m.logger.LogInfo(ctx, "entry deleted", map[string]interface{}{
		"name":   req.Name,
		"backup": result.BackupDir,
	})
	return result, nil
}

func removeEntry(entries []domain.MappingEntry, name string) []domain.MappingEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}

// referencedBy reports whether any entry in the merged view still points at
// the snippet reference.
func referencedBy(cfg domain.MergedConfig, ref string) bool {
	for _, entry := range cfg.Entries() {
		for _, s := range entry.Snippet {
			if s == ref {
				return true
			}
		}
	}
	return false
}
