package manage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/mapping"
)

type fixture struct {
	manager     *Manager
	mappings    *mapping.Store
	snippetsDir string
	backupsDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	snippetsDir := filepath.Join(dir, "snippets")
	backupsDir := filepath.Join(dir, "backups")
	store := mapping.NewStore(filepath.Join(dir, "config.json"), filepath.Join(dir, "config.local.json"))

	hashes := 0
	manager := NewManager(Options{
		Mappings:    store,
		SnippetsDir: snippetsDir,
		BackupsDir:  backupsDir,
		Now:         func() time.Time { return time.Date(2026, 8, 24, 15, 4, 5, 0, time.UTC) },
		NewHash: func() (string, error) {
			hashes++
			return fmt.Sprintf("%032d", hashes), nil
		},
	})
	return &fixture{manager: manager, mappings: store, snippetsDir: snippetsDir, backupsDir: backupsDir}
}

func (f *fixture) create(t *testing.T, name, pattern, content string) EntryResult {
	t.Helper()
	res, err := f.manager.Create(context.Background(), CreateRequest{
		Name:    name,
		Pattern: pattern,
		Content: content,
		Enabled: true,
	})
	require.NoError(t, err)
	return res
}

func TestCreateWritesSnippetFileAndLocalConfig(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, "docker", `\b(docker|container)\b`, "# Docker\n\nUse multi-stage builds.")

	assert.Equal(t, "local", res.Source)
	assert.Equal(t, []string{"docker.md"}, res.Entry.Snippet)
	assert.NotEmpty(t, res.VerificationHash)

	raw, err := os.ReadFile(filepath.Join(f.snippetsDir, "docker.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "SNIPPET_NAME: docker")
	assert.Contains(t, string(raw), "**VERIFICATION_HASH:** `"+res.VerificationHash+"`")
	assert.Contains(t, string(raw), "Use multi-stage builds.")

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	entry, ok := merged.Get("docker")
	require.True(t, ok)
	assert.Equal(t, `\b(docker|container)\b`, entry.Pattern)
	assert.True(t, entry.Enabled)
}

func TestCreateListRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.create(t, "git", `\bgit\b`, "rebase carefully")

	res, err := f.manager.List(context.Background(), ListRequest{Name: "git"})
	require.NoError(t, err)
	require.NotNil(t, res.Detail)
	assert.Equal(t, `\bgit\b`, res.Detail.Entry.Pattern)
	assert.Contains(t, res.Detail.Body, "rebase carefully")
	assert.Equal(t, "git", res.Detail.FrontMatter.SnippetName)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "body")

	_, err := f.manager.Create(context.Background(), CreateRequest{
		Name: "docker", Pattern: "x", Content: "other", Enabled: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindDuplicateName))
}

func TestCreateRejectsEmptyPattern(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(context.Background(), CreateRequest{
		Name: "empty", Pattern: "", Content: "body", Enabled: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindInvalidPattern))

	// The document must stay loadable: an empty pattern compiles as a
	// regex but the loader rejects it, so persisting one would fail every
	// subsequent load.
	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
	assert.NoFileExists(t, filepath.Join(f.snippetsDir, "empty.md"))
}

func TestCreateRejectsPathLikeName(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"../escape", "a/b", `a\b`, ".", ".."} {
		_, err := f.manager.Create(context.Background(), CreateRequest{
			Name: name, Pattern: "x", Content: "body", Enabled: true,
		})
		require.Error(t, err, "name %q", name)
	}

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
}

func TestUpdateRejectsEmptyPattern(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", `\bdocker\b`, "body")

	empty := ""
	_, err := f.manager.Update(context.Background(), UpdateRequest{
		Name: "docker", Pattern: &empty,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindInvalidPattern))

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	entry, ok := merged.Get("docker")
	require.True(t, ok)
	assert.Equal(t, `\bdocker\b`, entry.Pattern)
}

func TestUpdateRejectsPathLikeRename(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "body")

	_, err := f.manager.Update(context.Background(), UpdateRequest{
		Name: "docker", Rename: "../escape",
	})
	require.Error(t, err)

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.True(t, merged.Has("docker"))
}

func TestCreateRejectsInvalidPattern(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(context.Background(), CreateRequest{
		Name: "bad", Pattern: "[unclosed", Content: "body", Enabled: true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindInvalidPattern))

	// No partial mutation: neither config entry nor snippet file exists.
	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.False(t, merged.Has("bad"))
	_, statErr := os.Stat(filepath.Join(f.snippetsDir, "bad.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateRequiresContentOrFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(context.Background(), CreateRequest{Name: "x", Pattern: "x", Enabled: true})
	assert.Error(t, err)
}

func TestCreateFromFile(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(t.TempDir(), "input.md")
	require.NoError(t, os.WriteFile(src, []byte("from a file"), 0o644))

	res, err := f.manager.Create(context.Background(), CreateRequest{
		Name: "filed", Pattern: "filed", File: src, Enabled: true,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(res.SnippetPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "from a file")
}

func TestUpdatePatternAndEnabled(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "body")

	pattern := `\bdocker\b`
	enabled := false
	res, err := f.manager.Update(context.Background(), UpdateRequest{
		Name:    "docker",
		Pattern: &pattern,
		Enabled: &enabled,
	})
	require.NoError(t, err)
	assert.Equal(t, pattern, res.Entry.Pattern)
	assert.False(t, res.Entry.Enabled)

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	entry, _ := merged.Get("docker")
	assert.Equal(t, pattern, entry.Pattern)
	assert.False(t, entry.Enabled)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Update(context.Background(), UpdateRequest{Name: "ghost"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))
}

func TestUpdateRejectsContentAndFileTogether(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "body")

	content := "a"
	file := "b.md"
	_, err := f.manager.Update(context.Background(), UpdateRequest{
		Name: "docker", Content: &content, File: &file,
	})
	assert.Error(t, err)
}

func TestUpdateContentRegeneratesVerificationHash(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, "docker", "docker", "old body")

	content := "new body"
	updated, err := f.manager.Update(context.Background(), UpdateRequest{
		Name: "docker", Content: &content,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, updated.VerificationHash)
	assert.NotEqual(t, created.VerificationHash, updated.VerificationHash)

	raw, err := os.ReadFile(updated.SnippetPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "new body")
	assert.NotContains(t, string(raw), "old body")
}

func TestUpdatePatternOnlyKeepsHashAndBody(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, "docker", "docker", "stable body")
	before, err := os.ReadFile(created.SnippetPath)
	require.NoError(t, err)

	pattern := "container"
	_, err = f.manager.Update(context.Background(), UpdateRequest{Name: "docker", Pattern: &pattern})
	require.NoError(t, err)

	after, err := os.ReadFile(created.SnippetPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRenameMovesFileAndConfigKey(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "container notes")

	res, err := f.manager.Update(context.Background(), UpdateRequest{
		Name: "docker", Rename: "containers",
	})
	require.NoError(t, err)
	assert.Equal(t, "containers", res.Entry.Name)
	assert.Equal(t, []string{"containers.md"}, res.Entry.Snippet)
	assert.Empty(t, res.OrphanedFiles)

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.False(t, merged.Has("docker"))
	entry, ok := merged.Get("containers")
	require.True(t, ok)

	// New-name content resolves; old file is gone.
	raw, err := os.ReadFile(filepath.Join(f.snippetsDir, "containers.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "container notes")
	assert.Contains(t, string(raw), "SNIPPET_NAME: containers")
	_, statErr := os.Stat(filepath.Join(f.snippetsDir, "docker.md"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, "docker", entry.Pattern)
}

func TestRenameCollisionFails(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "a")
	f.create(t, "podman", "podman", "b")

	_, err := f.manager.Update(context.Background(), UpdateRequest{Name: "docker", Rename: "podman"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindDuplicateName))
}

func TestRenameOrphanOldFileIsTolerated(t *testing.T) {
	// State after a crash between write-new and delete-old: both files on
	// disk, config already pointing at the new name. The merged config must
	// resolve to valid new-name content and the orphan must bother nothing.
	f := newFixture(t)
	f.create(t, "docker", "docker", "container notes")
	require.NoError(t, os.WriteFile(filepath.Join(f.snippetsDir, "docker-old.md"), []byte("orphan"), 0o644))

	_, err := f.manager.Update(context.Background(), UpdateRequest{Name: "docker", Rename: "containers"})
	require.NoError(t, err)

	res, err := f.manager.List(context.Background(), ListRequest{Name: "containers"})
	require.NoError(t, err)
	assert.Contains(t, res.Detail.Body, "container notes")
	assert.Empty(t, res.Detail.MissingFiles)
}

func TestDeleteWithBackupWritesBundleFirst(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "precious notes")

	res, err := f.manager.Delete(context.Background(), DeleteRequest{Name: "docker", Backup: true})
	require.NoError(t, err)

	// Backup layout: backups/{YYYYMMDD_HHMMSS}_{name}/{name}.md + config_backup.json
	assert.Equal(t, filepath.Join(f.backupsDir, "20260824_150405_docker"), res.BackupDir)

	backedUp, err := os.ReadFile(filepath.Join(res.BackupDir, "docker.md"))
	require.NoError(t, err)
	assert.Contains(t, string(backedUp), "precious notes")

	var snapshot domain.MappingEntry
	raw, err := os.ReadFile(filepath.Join(res.BackupDir, "config_backup.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, "docker", snapshot.Name)

	// Live state is gone.
	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.False(t, merged.Has("docker"))
	_, statErr := os.Stat(filepath.Join(f.snippetsDir, "docker.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteBackupRestoreCreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, "docker", `\bdocker\b`, "round trip body")

	deleted, err := f.manager.Delete(context.Background(), DeleteRequest{Name: "docker", Backup: true})
	require.NoError(t, err)

	var snapshot domain.MappingEntry
	raw, err := os.ReadFile(filepath.Join(deleted.BackupDir, "config_backup.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &snapshot))

	recreated, err := f.manager.Create(context.Background(), CreateRequest{
		Name:    snapshot.Name,
		Pattern: snapshot.Pattern,
		Content: "round trip body",
		Enabled: snapshot.Enabled,
	})
	require.NoError(t, err)
	assert.Equal(t, created.Entry.Name, recreated.Entry.Name)
	assert.Equal(t, created.Entry.Pattern, recreated.Entry.Pattern)
	assert.Equal(t, created.Entry.Snippet, recreated.Entry.Snippet)
	assert.Equal(t, created.Entry.Enabled, recreated.Entry.Enabled)
}

func TestDeleteWithoutSuccessfulBackupLeavesStateIntact(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "keep me")

	// Make the backups directory unusable: a plain file blocks MkdirAll.
	require.NoError(t, os.WriteFile(f.backupsDir, []byte("not a dir"), 0o644))

	_, err := f.manager.Delete(context.Background(), DeleteRequest{Name: "docker", Backup: true})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindBackupFailed))

	// Original entry and file fully intact.
	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.True(t, merged.Has("docker"))
	raw, err := os.ReadFile(filepath.Join(f.snippetsDir, "docker.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "keep me")
}

func TestDeleteWithoutBackup(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "body")

	res, err := f.manager.Delete(context.Background(), DeleteRequest{Name: "docker", Backup: false})
	require.NoError(t, err)
	assert.Empty(t, res.BackupDir)

	merged, err := f.mappings.Load()
	require.NoError(t, err)
	assert.False(t, merged.Has("docker"))
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Delete(context.Background(), DeleteRequest{Name: "ghost", Backup: true})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))
}

func TestDeleteKeepsFilesSharedWithOtherEntries(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", "docker", "shared body")

	// Second entry referencing the same snippet file.
	doc, err := mapping.LoadDocument(f.mappings.LocalPath())
	require.NoError(t, err)
	doc.Mappings = append(doc.Mappings, domain.MappingEntry{
		Name: "containers", Pattern: "container", Snippet: []string{"docker.md"}, Enabled: true,
	})
	require.NoError(t, f.mappings.Save(doc, domain.TargetLocal))

	_, err = f.manager.Delete(context.Background(), DeleteRequest{Name: "docker", Backup: false})
	require.NoError(t, err)

	// The surviving entry still resolves.
	_, statErr := os.Stat(filepath.Join(f.snippetsDir, "docker.md"))
	assert.NoError(t, statErr)
}

func TestListSummariesReportSource(t *testing.T) {
	f := newFixture(t)
	baseDoc := domain.ConfigDocument{Mappings: []domain.MappingEntry{
		{Name: "docker", Pattern: "docker", Snippet: []string{"docker.md"}, Enabled: true},
	}}
	require.NoError(t, f.mappings.Save(baseDoc, domain.TargetBase))
	f.create(t, "tmux", "tmux", "tmux body")

	res, err := f.manager.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "docker", res.Entries[0].Name)
	assert.Equal(t, "base", res.Entries[0].Source)
	assert.Equal(t, "tmux", res.Entries[1].Name)
	assert.Equal(t, "local", res.Entries[1].Source)
}

func TestListDetailReportsMissingFiles(t *testing.T) {
	f := newFixture(t)
	doc := domain.ConfigDocument{Mappings: []domain.MappingEntry{
		{Name: "stale", Pattern: "stale", Snippet: []string{"gone.md"}, Enabled: true},
	}}
	require.NoError(t, f.mappings.Save(doc, domain.TargetLocal))

	res, err := f.manager.List(context.Background(), ListRequest{Name: "stale"})
	require.NoError(t, err)
	require.NotNil(t, res.Detail)
	require.Len(t, res.Detail.MissingFiles, 1)
	assert.Contains(t, res.Detail.MissingFiles[0], "gone.md")
}

func TestTestCommandMatchesOneEntry(t *testing.T) {
	f := newFixture(t)
	f.create(t, "docker", `\b(docker|container)\b`, "body")

	res, err := f.manager.Test(context.Background(), TestRequest{Name: "docker", Sample: "my docker image"})
	require.NoError(t, err)
	assert.True(t, res.Matched)

	res, err = f.manager.Test(context.Background(), TestRequest{Name: "docker", Sample: "gardening"})
	require.NoError(t, err)
	assert.False(t, res.Matched)

	_, err = f.manager.Test(context.Background(), TestRequest{Name: "ghost", Sample: "x"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrKindNotFound))
}
