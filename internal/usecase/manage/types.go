package manage

import (
	"github.com/bkyoung/snipctx/internal/domain"
)

// CreateRequest captures the inputs for creating a new mapping entry.
// Exactly one of Content/File must be set.
type CreateRequest struct {
	Name        string
	Pattern     string
	Content     string
	File        string
	Enabled     bool
	Description string
	Announce    bool
	Separator   string

	// Target selects the document to append to. Defaults to local.
	Target domain.Target
	// SnippetsDir overrides the configured snippet root for this call.
	SnippetsDir string
}

// UpdateRequest captures a partial mutation of an existing entry. Nil
// pointer fields are left unchanged. At most one of Content/File may be
// set.
type UpdateRequest struct {
	Name        string
	Pattern     *string
	Content     *string
	File        *string
	Enabled     *bool
	Description *string
	Rename      string

	Target      domain.Target
	SnippetsDir string
}

// DeleteRequest captures a deletion. Backup defaults to true at the CLI
// layer; refusing to delete without a confirmed backup is the manager's
// job.
type DeleteRequest struct {
	Name   string
	Backup bool

	// Target limits the deletion to one document. Unset removes the entry
	// from every document defining it.
	Target      domain.Target
	SnippetsDir string
}

// EntryResult reports a successful create or update.
type EntryResult struct {
	Entry            domain.MappingEntry `json:"entry"`
	Source           string              `json:"source"`
	SnippetPath      string              `json:"snippetPath,omitempty"`
	VerificationHash string              `json:"verificationHash,omitempty"`
	// OrphanedFiles lists old snippet files a rename could not remove.
	// Config correctness wins over filesystem tidiness.
	OrphanedFiles []string `json:"orphanedFiles,omitempty"`
}

// DeleteResult reports a successful deletion.
type DeleteResult struct {
	Name         string   `json:"name"`
	BackupDir    string   `json:"backupDir,omitempty"`
	RemovedFiles []string `json:"removedFiles,omitempty"`
	// OrphanedFiles lists snippet files that survived a failed removal.
	OrphanedFiles []string `json:"orphanedFiles,omitempty"`
}

// EntrySummary is the per-entry line of a full listing. Built from config
// alone; no snippet files are read.
type EntrySummary struct {
	Name    string   `json:"name"`
	Pattern string   `json:"pattern"`
	Snippet []string `json:"snippet"`
	Enabled bool     `json:"enabled"`
	Source  string   `json:"source"`
}

// EntryDetail is the full view of one entry, including resolved snippet
// metadata and body.
type EntryDetail struct {
	Entry       domain.MappingEntry `json:"entry"`
	Source      string              `json:"source"`
	FrontMatter domain.FrontMatter  `json:"frontMatter"`
	Body        string              `json:"body,omitempty"`
	// MissingFiles lists referenced snippet paths that do not exist.
	MissingFiles []string `json:"missingFiles,omitempty"`
}

// TestResult reports a single-entry pattern test.
type TestResult struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Sample  string `json:"sample"`
	Matched bool   `json:"matched"`
}

// Severity grades validation problems.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Problem is one finding of the validate operation.
type Problem struct {
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

// ValidationReport is the structured outcome of validate. Valid means no
// error-severity problems were found; warnings do not fail validation.
type ValidationReport struct {
	Valid      bool      `json:"valid"`
	Entries    int       `json:"entries"`
	ConfigHash string    `json:"configHash,omitempty"`
	Problems   []Problem `json:"problems"`
}
