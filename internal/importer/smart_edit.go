package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/config"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

// EditorRunner spawns an editor on a path and waits for it to exit. Tests
// substitute a fake that mutates the file without actually launching one.
type EditorRunner interface {
	Run(path string) error
}

// osEditor spawns $EDITOR (falling back to vi) with inherited stdio.
type osEditor struct{}

func (osEditor) Run(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// NewOSEditor returns an EditorRunner backed by the user's $EDITOR.
func NewOSEditor() EditorRunner { return osEditor{} }

// SmartEdit edits it in place. When it has a backing file, the editor opens
// the resolved path directly and, on clean exit, the file is re-parsed and
// reconciled (update-if-hash-differs). When it has no backing file, a
// temporary buffer holding the item's fields is opened instead, and the
// edited buffer is re-parsed and written back to the store on save.
func SmartEdit(ctx context.Context, s *store.Store, cfg *config.Config, it *model.Item, editor EditorRunner) error {
	if it.FilePath != nil {
		return editBackedFile(ctx, s, cfg, it, editor)
	}
	return editScratchBuffer(ctx, s, it, editor)
}

func editBackedFile(ctx context.Context, s *store.Store, cfg *config.Config, it *model.Item, editor EditorRunner) error {
	path := expandSentinelPath(cfg, *it.FilePath)
	if err := editor.Run(path); err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while running editor on "+path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while re-reading "+path, err)
	}
	sum := sha256.Sum256(raw)
	newHash := hex.EncodeToString(sum[:])

	if it.FileHash != nil && *it.FileHash == newHash {
		return nil
	}

	fm, body, err := ParseFrontMatter(string(raw), filepath.Ext(path))
	if err != nil {
		return err
	}
	tags, err := model.MergeTags(fm.Tags, []string{fm.Type})
	if err != nil {
		return apperr.Wrap(apperr.CodeBadTagToken, "while merging front matter tags", err)
	}

	it.URL = body
	it.Metadata = fm.Name
	it.Tags = tags
	it.FileHash = &newHash
	return s.Update(ctx, it)
}

// editScratchBuffer serializes it's fields into a temporary plain-text
// buffer, opens the editor on it, and re-parses the result back into the
// item on save.
func editScratchBuffer(ctx context.Context, s *store.Store, it *model.Item, editor EditorRunner) error {
	tmp, err := os.CreateTemp("", "bkmr-edit-*.txt")
	if err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while creating scratch buffer", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	fmt.Fprintf(tmp, "# name: %s\n# tags: %s\n\n%s", it.Metadata, strings.Join(it.TagSet(), ","), it.URL)
	tmp.Close()

	if err := editor.Run(path); err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while running editor on scratch buffer", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while re-reading scratch buffer", err)
	}

	fm, body, err := ParseFrontMatter(string(raw), "")
	if err != nil {
		return err
	}
	tags, err := model.CanonicalizeTags(fm.Tags)
	if err != nil {
		return apperr.Wrap(apperr.CodeBadTagToken, "while canonicalizing edited tags", err)
	}

	it.URL = body
	it.Metadata = fm.Name
	it.Tags = tags
	return s.Update(ctx, it)
}

