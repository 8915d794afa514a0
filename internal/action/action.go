// Package action resolves an item's system tag to a concrete dispatch and
// carries it out: opening a URL, copying to the clipboard, running a shell
// command, rendering markdown, or printing an env bundle to stdout.
package action

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/pkg/browser"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/config"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/render"
	"github.com/bkmr/bkmr/internal/store"
)

// Opener abstracts opening a URL or file path with the OS-level handler, so
// tests can substitute a recording fake instead of actually spawning one.
type Opener interface {
	Open(target string) error
}

// osOpener shells out to pkg/browser, which picks the right `open`/`xdg-open`/
// `rundll32` invocation for the host OS.
type osOpener struct{}

func (osOpener) Open(target string) error {
	return browser.OpenURL(target)
}

// Clipboard abstracts the clipboard handoff.
type Clipboard interface {
	WriteAll(text string) error
}

type osClipboard struct{}

func (osClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Dispatcher resolves an item's system tag and carries out its action. It
// holds no per-call state; every field is a collaborator that can be
// swapped out in tests.
type Dispatcher struct {
	Store     *store.Store
	Engine    *render.Engine
	Config    *config.Config
	Opener    Opener
	Clipboard Clipboard
	Stdout    *os.File
	Stdin     *os.File

	// HistoryFile, when non-empty, has the rendered command appended to it
	// before an interactive shell prompt. The file is not read back: the
	// prompt is seeded from the rendered command only.
	HistoryFile string

	// EmbedRefresher, when set, is invoked after a markdown action reloads
	// a file-backed item whose content changed, to recompute its embedding.
	EmbedRefresher EmbeddingRefresher
}

// New returns a Dispatcher wired to OS-level openers and clipboard.
func New(s *store.Store, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		Store:     s,
		Engine:    render.New(),
		Config:    cfg,
		Opener:    osOpener{},
		Clipboard: osClipboard{},
		Stdout:    os.Stdout,
		Stdin:     os.Stdin,
	}
}

// Result carries the outcome of dispatching a single item, for batch
// reporting.
type Result struct {
	Item *model.Item
	Err  error
}

// DispatchBatch runs Dispatch over each item sequentially in order. A
// failure on one item is recorded and does not abort the remaining items.
func (d *Dispatcher) DispatchBatch(ctx context.Context, items []*model.Item, extraArgv []string) []Result {
	results := make([]Result, 0, len(items))
	for _, it := range items {
		err := d.Dispatch(ctx, it, extraArgv)
		results = append(results, Result{Item: it, Err: err})
	}
	return results
}

// Dispatch resolves it's system tag and executes the matching action. After
// execution it asks the store to record an access, fire-and-forget: a
// failure to persist the access count does not fail the action itself.
func (d *Dispatcher) Dispatch(ctx context.Context, it *model.Item, extraArgv []string) error {
	defer func() {
		_ = d.Store.RecordAccess(ctx, it.ID)
	}()

	switch it.ResolvedSystemTag() {
	case model.SystemTagSnippet, model.SystemTagImported:
		return d.runSnippet(it)
	case model.SystemTagShell:
		return d.runShell(ctx, it, extraArgv)
	case model.SystemTagMarkdown:
		return d.runMarkdown(ctx, it)
	case model.SystemTagEnv:
		return d.runEnv(it)
	default:
		return d.runURI(it)
	}
}

func (d *Dispatcher) runURI(it *model.Item) error {
	rendered, err := d.Engine.RenderIfNeeded(it.URL, it)
	if err != nil {
		return err
	}
	if err := d.Opener.Open(rendered); err != nil {
		return apperr.Wrap(apperr.CodeOpenError, fmt.Sprintf("while opening item %d", it.ID), err)
	}
	return nil
}

func (d *Dispatcher) runSnippet(it *model.Item) error {
	rendered, err := d.Engine.RenderIfNeeded(it.URL, it)
	if err != nil {
		return err
	}
	if err := d.Clipboard.WriteAll(rendered); err != nil {
		return apperr.Wrap(apperr.CodeClipboardError, fmt.Sprintf("while copying item %d", it.ID), err)
	}
	return nil
}

func (d *Dispatcher) runEnv(it *model.Item) error {
	rendered, err := d.Engine.RenderIfNeeded(it.URL, it)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(d.Stdout, rendered)
	return err
}

func (d *Dispatcher) runShell(ctx context.Context, it *model.Item, extraArgv []string) error {
	rendered, err := d.Engine.RenderIfNeeded(it.URL, it)
	if err != nil {
		return err
	}

	interactive := d.Config != nil && d.Config.ShellOpts.Interactive
	if interactive && isatty.IsTerminal(d.Stdin.Fd()) {
		rendered, err = d.promptShellCommand(rendered)
		if err != nil {
			return err
		}
		return d.execScript(ctx, rendered, nil)
	}
	return d.execScript(ctx, rendered, extraArgv)
}

// promptShellCommand appends the rendered command to the dispatcher's
// history file (when set), prints it, and reads one replacement line from
// stdin. An empty line or a read error keeps the rendered command. Previous
// history entries are not offered in the prompt.
func (d *Dispatcher) promptShellCommand(seed string) (string, error) {
	if d.HistoryFile != "" {
		if f, err := os.OpenFile(d.HistoryFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			_, _ = fmt.Fprintln(f, seed)
			_ = f.Close()
		}
	}

	fmt.Fprintf(d.Stdout, "%s\n> ", seed)
	reader := bufio.NewReader(d.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return seed, nil
	}
	line = trimNewline(line)
	if line == "" {
		return seed, nil
	}
	return line, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (d *Dispatcher) execScript(ctx context.Context, script string, extraArgv []string) error {
	args := append([]string{script}, extraArgv...)
	cmd := exec.CommandContext(ctx, "sh", append([]string{"-c"}, args...)...)
	cmd.Stdin = d.Stdin
	cmd.Stdout = d.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		return apperr.ShellErrorWithExitCode(exitErr.ExitCode(), err)
	}
	return apperr.Wrap(apperr.CodeShellError, "while running shell action", err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
