// Package cli wires the cobra command tree. Commands stay thin: flag
// parsing and confirmation prompts live here, everything else is delegated
// to the use case layer through the Dependencies interfaces.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	outjson "github.com/bkyoung/snipctx/internal/adapter/output/json"
	"github.com/bkyoung/snipctx/internal/domain"
	"github.com/bkyoung/snipctx/internal/store"
	"github.com/bkyoung/snipctx/internal/usecase/manage"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// SnippetManager defines the dependency required by the management commands.
type SnippetManager interface {
	Create(ctx context.Context, req manage.CreateRequest) (manage.EntryResult, error)
	Update(ctx context.Context, req manage.UpdateRequest) (manage.EntryResult, error)
	Delete(ctx context.Context, req manage.DeleteRequest) (manage.DeleteResult, error)
	List(ctx context.Context, req manage.ListRequest) (manage.ListResult, error)
	Test(ctx context.Context, req manage.TestRequest) (manage.TestResult, error)
	Validate(ctx context.Context, req manage.ValidateRequest) (manage.ValidationReport, error)
}

// PromptHook defines the dependency required by the hook command.
type PromptHook interface {
	OnPrompt(ctx context.Context, prompt string) (domain.InjectionResult, error)
}

// HistoryLister defines the dependency required by the history command.
type HistoryLister interface {
	ListInjections(ctx context.Context, limit int) ([]store.InjectionEvent, error)
}

// Arguments encapsulates IO streams injected from the host process.
type Arguments struct {
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Manager SnippetManager
	Hook    PromptHook
	History HistoryLister // optional; nil disables the history command
	Args    Arguments
	Version string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "snipctx",
		Short: "Manage and inject prompt context snippets",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	inReader := deps.Args.InReader
	if inReader == nil {
		inReader = os.Stdin
	}
	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetIn(inReader)
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(createCommand(deps.Manager))
	root.AddCommand(updateCommand(deps.Manager))
	root.AddCommand(deleteCommand(deps.Manager))
	root.AddCommand(listCommand(deps.Manager))
	root.AddCommand(testCommand(deps.Manager))
	root.AddCommand(validateCommand(deps.Manager))
	root.AddCommand(hookCommand(deps.Hook))
	if deps.History != nil {
		root.AddCommand(historyCommand(deps.History))
	}

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func createCommand(manager SnippetManager) *cobra.Command {
	var pattern string
	var content string
	var file string
	var enabled bool
	var description string
	var announce bool
	var separator string
	var target string
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new mapping entry and its snippet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedTarget, err := resolveTarget(target)
			if err != nil {
				return err
			}
			result, err := manager.Create(cmd.Context(), manage.CreateRequest{
				Name:        args[0],
				Pattern:     pattern,
				Content:     content,
				File:        file,
				Enabled:     enabled,
				Description: description,
				Announce:    announce,
				Separator:   separator,
				Target:      resolvedTarget,
				SnippetsDir: snippetsDir,
			})
			if err != nil {
				return err
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Regular expression matched against prompts (required)")
	cmd.Flags().StringVar(&content, "content", "", "Snippet body; mutually exclusive with --file")
	cmd.Flags().StringVar(&file, "file", "", "File whose contents become the snippet body; mutually exclusive with --content")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Whether the entry participates in matching")
	cmd.Flags().StringVar(&description, "description", "", "Human-readable description stored in the snippet front matter")
	cmd.Flags().BoolVar(&announce, "announce", false, "Announce the entry in the Active Contexts banner when it matches")
	cmd.Flags().StringVar(&separator, "separator", "", "Separator between multiple snippet files (default \\n)")
	addTargetFlags(cmd, &target, &snippetsDir)
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func updateCommand(manager SnippetManager) *cobra.Command {
	var pattern string
	var content string
	var file string
	var enabled bool
	var description string
	var rename string
	var target string
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Update fields of an existing mapping entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedTarget, err := resolveTarget(target)
			if err != nil {
				return err
			}
			req := manage.UpdateRequest{
				Name:        args[0],
				Rename:      rename,
				Target:      resolvedTarget,
				SnippetsDir: snippetsDir,
			}
			// Only flags the user actually passed become mutations.
			flags := cmd.Flags()
			if flags.Changed("pattern") {
				req.Pattern = &pattern
			}
			if flags.Changed("content") {
				req.Content = &content
			}
			if flags.Changed("file") {
				req.File = &file
			}
			if flags.Changed("enabled") {
				req.Enabled = &enabled
			}
			if flags.Changed("description") {
				req.Description = &description
			}

			result, err := manager.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "New regular expression")
	cmd.Flags().StringVar(&content, "content", "", "New snippet body; mutually exclusive with --file")
	cmd.Flags().StringVar(&file, "file", "", "File whose contents replace the snippet body; mutually exclusive with --content")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "Enable or disable the entry")
	cmd.Flags().StringVar(&description, "description", "", "New description for the snippet front matter")
	cmd.Flags().StringVar(&rename, "rename", "", "Rename the entry and its snippet file")
	addTargetFlags(cmd, &target, &snippetsDir)

	return cmd
}

func deleteCommand(manager SnippetManager) *cobra.Command {
	var noBackup bool
	var yes bool
	var target string
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a mapping entry and its snippet files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolvedTarget, err := resolveTarget(target)
			if err != nil {
				return err
			}
			if !yes {
				confirmed, err := confirmDeletion(cmd, args[0])
				if err != nil {
					return err
				}
				if !confirmed {
					return fmt.Errorf("deletion of %q aborted", args[0])
				}
			}

			result, err := manager.Delete(cmd.Context(), manage.DeleteRequest{
				Name:        args[0],
				Backup:      !noBackup,
				Target:      resolvedTarget,
				SnippetsDir: snippetsDir,
			})
			if err != nil {
				return err
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the timestamped backup before deleting")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the interactive confirmation prompt")
	addTargetFlags(cmd, &target, &snippetsDir)

	return cmd
}

// confirmDeletion asks for confirmation on the command's input stream. A
// non-interactive session without --yes is refused rather than silently
// proceeding.
func confirmDeletion(cmd *cobra.Command, name string) (bool, error) {
	if cmd.InOrStdin() == os.Stdin && !manage.IsInteractive() {
		return false, fmt.Errorf("refusing to delete %q without confirmation; pass --yes in non-interactive sessions", name)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Delete entry %q and its snippet files? [y/N]: ", name)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func listCommand(manager SnippetManager) *cobra.Command {
	var human bool
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "list [NAME]",
		Short: "List mapping entries, or show one entry in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := manage.ListRequest{SnippetsDir: snippetsDir}
			if len(args) > 0 {
				req.Name = args[0]
			}
			result, err := manager.List(cmd.Context(), req)
			if err != nil {
				return err
			}
			if human {
				renderHumanList(cmd.OutOrStdout(), result)
				return nil
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	cmd.Flags().BoolVar(&human, "human", false, "Render a readable table instead of JSON")
	cmd.Flags().StringVar(&snippetsDir, "snippets-dir", "", "Override the configured snippet directory")

	return cmd
}

// renderHumanList prints entries one per line. Detail views print the
// resolved front matter followed by the body.
func renderHumanList(out io.Writer, result manage.ListResult) {
	title := cases.Title(language.English)

	if result.Detail != nil {
		d := result.Detail
		_, _ = fmt.Fprintf(out, "%s (%s)\n", d.Entry.Name, title.String(d.Source))
		_, _ = fmt.Fprintf(out, "  Pattern:  %s\n", d.Entry.Pattern)
		_, _ = fmt.Fprintf(out, "  Snippet:  %s\n", strings.Join(d.Entry.Snippet, ", "))
		_, _ = fmt.Fprintf(out, "  Enabled:  %t\n", d.Entry.Enabled)
		if d.FrontMatter.Description != "" {
			_, _ = fmt.Fprintf(out, "  Description: %s\n", d.FrontMatter.Description)
		}
		for _, missing := range d.MissingFiles {
			_, _ = fmt.Fprintf(out, "  Missing:  %s\n", missing)
		}
		if d.Body != "" {
			_, _ = fmt.Fprintf(out, "\n%s", d.Body)
		}
		return
	}

	for _, entry := range result.Entries {
		state := "enabled"
		if !entry.Enabled {
			state = "disabled"
		}
		_, _ = fmt.Fprintf(out, "%-20s %-8s %-6s %s\n", entry.Name, state, title.String(entry.Source), entry.Pattern)
	}
}

func testCommand(manager SnippetManager) *cobra.Command {
	var target string
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "test NAME TEXT",
		Short: "Test an entry's pattern against sample text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Accepted for surface consistency with the other commands;
			// testing a pattern reads config only, never snippet files.
			if _, err := resolveTarget(target); err != nil {
				return err
			}
			result, err := manager.Test(cmd.Context(), manage.TestRequest{
				Name:   args[0],
				Sample: args[1],
			})
			if err != nil {
				return err
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	addTargetFlags(cmd, &target, &snippetsDir)

	return cmd
}

func validateCommand(manager SnippetManager) *cobra.Command {
	var snippetsDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the mapping documents and referenced snippet files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := manager.Validate(cmd.Context(), manage.ValidateRequest{SnippetsDir: snippetsDir})
			if err != nil {
				return err
			}
			if err := outjson.NewEncoder(cmd.OutOrStdout()).Encode(report); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("configuration invalid: %d problem(s) found", len(report.Problems))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snippetsDir, "snippets-dir", "", "Override the configured snippet directory")

	return cmd
}

// hookPayload is the optional JSON shape accepted on stdin. Plain text that
// is not a JSON object is treated as the prompt itself.
type hookPayload struct {
	Prompt string `json:"prompt"`
}

func hookCommand(hook PromptHook) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Read a prompt from stdin and emit the injection result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read prompt from stdin: %w", err)
			}
			prompt := decodePrompt(raw)

			result, err := hook.OnPrompt(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
	return cmd
}

// decodePrompt accepts either a {"prompt": "..."} JSON object or raw text.
func decodePrompt(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var payload hookPayload
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Prompt != "" {
			return payload.Prompt
		}
	}
	return trimmed
}

func historyCommand(history HistoryLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded injection events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := history.ListInjections(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if events == nil {
				events = []store.InjectionEvent{}
			}
			return outjson.NewEncoder(cmd.OutOrStdout()).Encode(events)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of events to show (0 uses the default)")

	return cmd
}

func addTargetFlags(cmd *cobra.Command, target *string, snippetsDir *string) {
	cmd.Flags().StringVar(target, "target", "", "Mapping document to modify: base or local (default local)")
	cmd.Flags().StringVar(snippetsDir, "snippets-dir", "", "Override the configured snippet directory")
}

// resolveTarget converts the flag value. Empty means "let the manager pick
// its default".
func resolveTarget(value string) (domain.Target, error) {
	if value == "" {
		return "", nil
	}
	target := domain.Target(value)
	if !target.Valid() {
		return "", fmt.Errorf("invalid --target %q: must be base or local", value)
	}
	return target, nil
}
