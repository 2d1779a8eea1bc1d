package domain

import "fmt"

// ErrorKind categorizes the failure modes of the injection subsystem.
type ErrorKind int

const (
	// ErrKindConfigParse indicates a config document is not valid JSON.
	// Fatal at load time; never auto-repaired.
	ErrKindConfigParse ErrorKind = iota
	// ErrKindSchema indicates a config document is valid JSON but violates
	// the mapping schema (missing required fields, wrong types).
	ErrKindSchema
	// ErrKindInvalidPattern indicates a regex that does not compile.
	ErrKindInvalidPattern
	// ErrKindDuplicateName indicates a name collision in the merged view.
	ErrKindDuplicateName
	// ErrKindNotFound indicates no entry exists with the requested name.
	ErrKindNotFound
	// ErrKindMissingSnippetFile indicates a referenced snippet file does not
	// exist. Recoverable: callers skip the entry and continue.
	ErrKindMissingSnippetFile
	// ErrKindBackupFailed indicates a backup bundle could not be written.
	// Destructive operations refuse to proceed on this error.
	ErrKindBackupFailed
)

// String returns a human-readable description of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindConfigParse:
		return "config parse error"
	case ErrKindSchema:
		return "schema error"
	case ErrKindInvalidPattern:
		return "invalid pattern"
	case ErrKindDuplicateName:
		return "duplicate name"
	case ErrKindNotFound:
		return "not found"
	case ErrKindMissingSnippetFile:
		return "missing snippet file"
	case ErrKindBackupFailed:
		return "backup failed"
	default:
		return "unknown error"
	}
}

// Error is the structured error type for the subsystem: kind + message +
// offending name/path.
type Error struct {
	Kind    ErrorKind
	Message string
	Name    string // offending entry name, when known
	Path    string // offending file path, when known
	Err     error  // wrapped cause, when any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Name != "" {
		msg += fmt.Sprintf(" (name: %s)", e.Name)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind, enabling errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is a subsystem Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Kind == kind
}

// NewConfigParseError reports a malformed JSON document.
func NewConfigParseError(path string, cause error) *Error {
	return &Error{
		Kind:    ErrKindConfigParse,
		Message: "config document is not valid JSON",
		Path:    path,
		Err:     cause,
	}
}

// NewSchemaError reports a document violating the mapping schema.
func NewSchemaError(path, message string) *Error {
	return &Error{
		Kind:    ErrKindSchema,
		Message: message,
		Path:    path,
	}
}

// NewInvalidPatternError reports an uncompilable regex for an entry.
func NewInvalidPatternError(name, pattern string, cause error) *Error {
	return &Error{
		Kind:    ErrKindInvalidPattern,
		Message: fmt.Sprintf("pattern %q does not compile", pattern),
		Name:    name,
		Err:     cause,
	}
}

// NewDuplicateNameError reports a name collision.
func NewDuplicateNameError(name string) *Error {
	return &Error{
		Kind:    ErrKindDuplicateName,
		Message: "an entry with this name already exists",
		Name:    name,
	}
}

// NewNotFoundError reports a missing entry.
func NewNotFoundError(name string) *Error {
	return &Error{
		Kind:    ErrKindNotFound,
		Message: "no entry with this name",
		Name:    name,
	}
}

// NewMissingSnippetFileError reports a dangling snippet reference.
func NewMissingSnippetFileError(name, path string) *Error {
	return &Error{
		Kind:    ErrKindMissingSnippetFile,
		Message: "referenced snippet file does not exist",
		Name:    name,
		Path:    path,
	}
}

// NewBackupFailedError reports a failed backup bundle write.
func NewBackupFailedError(name, path string, cause error) *Error {
	return &Error{
		Kind:    ErrKindBackupFailed,
		Message: "backup bundle could not be written",
		Name:    name,
		Path:    path,
		Err:     cause,
	}
}
