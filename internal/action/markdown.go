package action

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

// mathjaxHead is injected ahead of the rendered body: it configures MathJax
// for the $...$ and $$...$$ LaTeX delimiters and loads the MathJax bundle
// from a CDN when the page is opened.
const mathjaxHead = `<script>
MathJax = { tex: { inlineMath: [['$', '$']], displayMath: [['$$', '$$']] } };
</script>
<script src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>
`

// EmbeddingRefresher is the action package's view of the embedding sync
// collaborator, invoked after a markdown action reloads a file-backed item.
type EmbeddingRefresher interface {
	SyncOnWrite(ctx context.Context, it *model.Item) error
}

func (d *Dispatcher) runMarkdown(ctx context.Context, it *model.Item) error {
	body, fromFile, err := loadMarkdownBody(it)
	if err != nil {
		return err
	}

	if fromFile && it.Embeddable && d.EmbedRefresher != nil {
		if sum, herr := hashFile(*it.FilePath); herr == nil {
			if it.FileHash == nil || *it.FileHash != sum {
				it.URL = body
				hashCopy := sum
				it.FileHash = &hashCopy
				if rerr := d.EmbedRefresher.SyncOnWrite(ctx, it); rerr != nil {
					return rerr
				}
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(mathjaxHead)
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return apperr.Wrap(apperr.CodeRenderError, fmt.Sprintf("while rendering item %d to HTML", it.ID), err)
	}

	tmp, err := os.CreateTemp("", "bkmr-*.html")
	if err != nil {
		return apperr.Wrap(apperr.CodeRenderError, "while creating temporary html file", err)
	}
	defer tmp.Close()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return apperr.Wrap(apperr.CodeRenderError, "while writing temporary html file", err)
	}

	if err := d.Opener.Open(tmp.Name()); err != nil {
		return apperr.Wrap(apperr.CodeOpenError, fmt.Sprintf("while opening rendered item %d", it.ID), err)
	}
	return nil
}

// loadMarkdownBody returns an item's markdown source: the contents of the
// item's file_path when that file exists, else the contents of url when url
// is an absolute path to an existing file, otherwise url itself as literal
// markdown. The bool return reports whether a file was read.
func loadMarkdownBody(it *model.Item) (string, bool, error) {
	if it.FilePath != nil {
		path := *it.FilePath
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", false, apperr.Wrap(apperr.CodeRenderError, fmt.Sprintf("while reading %s", path), err)
			}
			return string(data), true, nil
		}
	}
	if _, err := os.Stat(it.URL); err == nil && filepath.IsAbs(it.URL) {
		data, err := os.ReadFile(it.URL)
		if err != nil {
			return "", false, apperr.Wrap(apperr.CodeRenderError, fmt.Sprintf("while reading %s", it.URL), err)
		}
		return string(data), true, nil
	}
	return it.URL, false, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
