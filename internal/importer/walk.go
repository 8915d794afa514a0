package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/config"
	"github.com/bkmr/bkmr/internal/gitignore"
	"github.com/bkmr/bkmr/internal/model"
	"github.com/bkmr/bkmr/internal/store"
)

// Options controls one Import walk.
type Options struct {
	Roots         []string
	Update        bool
	DeleteMissing bool
	DryRun        bool
}

// Result summarizes what a walk did, or would do under DryRun.
type Result struct {
	Inserted   int
	Updated    int
	Unchanged  int
	Deleted    int
	Duplicates []string
}

// HadDuplicate reports whether the walk saw at least one DuplicateName, the
// condition that maps to the command-level exit code 65.
func (r Result) HadDuplicate() bool {
	return len(r.Duplicates) > 0
}

// Import walks opts.Roots, reconciling every eligible file against s.
func Import(ctx context.Context, s *store.Store, cfg *config.Config, opts Options) (Result, error) {
	var result Result
	seenUnderRoots := make(map[string]bool)

	for _, root := range opts.Roots {
		matcher := loadIgnoreMatcher(root)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			if matcher.Match(rel, false) {
				return nil
			}
			if !eligibleExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			seenUnderRoots[abs] = true

			return reconcileFile(ctx, s, cfg, abs, opts, &result)
		})
		if err != nil {
			return result, apperr.Wrap(apperr.CodeUnreadableFile, "while walking "+root, err)
		}
	}

	if opts.DeleteMissing && !opts.DryRun {
		deleted, err := deleteMissing(ctx, s, cfg, opts.Roots, seenUnderRoots)
		if err != nil {
			return result, err
		}
		result.Deleted = deleted
	}

	return result, nil
}

func loadIgnoreMatcher(root string) *gitignore.Matcher {
	m := gitignore.New()
	_ = m.AddFromFile(filepath.Join(root, ".gitignore"), "")
	return m
}

func reconcileFile(ctx context.Context, s *store.Store, cfg *config.Config, abs string, opts Options, result *Result) error {
	raw, err := os.ReadFile(abs)
	if err != nil {
		return apperr.Wrap(apperr.CodeUnreadableFile, "while reading "+abs, err)
	}

	ext := strings.ToLower(filepath.Ext(abs))
	fm, body, err := ParseFrontMatter(string(raw), ext)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(raw)
	fileHash := hex.EncodeToString(hash[:])
	storedPath := resolveSentinelPath(cfg, abs)

	tags, err := model.MergeTags(fm.Tags, []string{fm.Type})
	if err != nil {
		return apperr.Wrap(apperr.CodeBadTagToken, "while merging front matter tags", err)
	}

	existing, err := s.GetByMetadata(ctx, fm.Name)
	if err != nil {
		return err
	}

	if opts.DryRun {
		if existing == nil {
			result.Inserted++
		} else if existing.FileHash == nil || *existing.FileHash != fileHash {
			result.Updated++
		} else {
			result.Unchanged++
		}
		return nil
	}

	if existing == nil {
		mtime := fileInfoMtime(abs)
		_, err := s.Insert(ctx, &model.Item{
			URL:       body,
			Metadata:  fm.Name,
			Tags:      tags,
			FilePath:  &storedPath,
			FileMtime: &mtime,
			FileHash:  &fileHash,
		})
		if err != nil {
			return err
		}
		result.Inserted++
		return nil
	}

	if !opts.Update {
		result.Duplicates = append(result.Duplicates, fm.Name)
		return nil
	}

	if existing.FileHash != nil && *existing.FileHash == fileHash {
		result.Unchanged++
		return nil
	}

	existing.URL = body
	existing.Tags = tags
	existing.Metadata = fm.Name
	mtime := fileInfoMtime(abs)
	existing.FileMtime = &mtime
	existing.FileHash = &fileHash
	existing.FilePath = &storedPath
	if err := s.Update(ctx, existing); err != nil {
		return err
	}
	result.Updated++
	return nil
}

func fileInfoMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now().Unix()
	}
	return info.ModTime().Unix()
}

// resolveSentinelPath rewrites abs to use a configured base-path sentinel
// when one of cfg.BasePaths covers it, e.g. "/home/u/scripts/foo.sh" becomes
// "$SCRIPTS_HOME/foo.sh".
func resolveSentinelPath(cfg *config.Config, abs string) string {
	if cfg == nil {
		return abs
	}
	for sentinel := range cfg.BasePaths {
		expanded, ok := cfg.ExpandBasePath(sentinel)
		if !ok {
			continue
		}
		if strings.HasPrefix(abs, expanded) {
			return "$" + sentinel + strings.TrimPrefix(abs, expanded)
		}
	}
	return abs
}

// expandSentinelPath reverses resolveSentinelPath, turning a stored
// "$SENTINEL/..." path back into an absolute filesystem path.
func expandSentinelPath(cfg *config.Config, stored string) string {
	if cfg == nil || !strings.HasPrefix(stored, "$") {
		return stored
	}
	for sentinel := range cfg.BasePaths {
		prefix := "$" + sentinel
		if strings.HasPrefix(stored, prefix) {
			if expanded, ok := cfg.ExpandBasePath(sentinel); ok {
				return expanded + strings.TrimPrefix(stored, prefix)
			}
		}
	}
	return stored
}

// deleteMissing removes every store row whose file_path resolves under one
// of roots and no longer exists on disk.
func deleteMissing(ctx context.Context, s *store.Store, cfg *config.Config, roots []string, seen map[string]bool) (int, error) {
	items, err := s.List(ctx, store.Filter{})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, it := range items {
		if it.FilePath == nil {
			continue
		}
		abs := expandSentinelPath(cfg, *it.FilePath)
		if seen[abs] {
			continue
		}
		if !underAnyRoot(abs, roots) {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			continue
		}
		if err := s.Delete(ctx, it.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func underAnyRoot(path string, roots []string) bool {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if strings.HasPrefix(path, abs) {
			return true
		}
	}
	return false
}
