// Package importer walks a set of root directories, parses each eligible
// file's front matter, and reconciles the result against the store: insert
// new files, update changed ones, report duplicates, and optionally delete
// rows whose backing file has disappeared.
package importer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

// FrontMatter is the set of recognised keys at the top of an imported file.
type FrontMatter struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags"`
	Type string   `yaml:"type"`
}

// defaultSystemTag maps a file extension to the system tag an item gets
// when its front matter does not declare one explicitly.
func defaultSystemTag(ext string) model.SystemTag {
	switch ext {
	case ".sh":
		return model.SystemTagShell
	case ".py":
		return model.SystemTagSnippet
	case ".md":
		return model.SystemTagMarkdown
	default:
		return ""
	}
}

// eligibleExtensions lists the file extensions the importer walks.
var eligibleExtensions = map[string]bool{".sh": true, ".py": true, ".md": true}

// ParseFrontMatter splits raw file content into its declared front matter
// and body, recognising a YAML block delimited by "---" lines or a
// contiguous block of "# key: value" comment lines at the top of the file.
// ext picks the type default when the front matter omits "type".
func ParseFrontMatter(raw string, ext string) (FrontMatter, string, error) {
	lines := strings.Split(raw, "\n")

	var fm FrontMatter
	var body string
	switch {
	case len(lines) > 0 && strings.TrimSpace(lines[0]) == "---":
		meta, rest, err := parseYAMLBlock(lines)
		if err != nil {
			return FrontMatter{}, "", err
		}
		fm, body = meta, rest
	case len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#"):
		meta, rest := parseHashBlock(lines)
		fm, body = meta, rest
	default:
		body = raw
	}

	if strings.TrimSpace(fm.Name) == "" {
		return FrontMatter{}, "", apperr.New(apperr.CodeMissingField, "front matter is missing required field \"name\"", nil)
	}
	if strings.TrimSpace(fm.Type) == "" {
		fm.Type = string(defaultSystemTag(ext))
	} else if !model.IsSystemTag(fm.Type) {
		return FrontMatter{}, "", apperr.New(apperr.CodeInvalidFrontMatter,
			fmt.Sprintf("unknown type %q in front matter", fm.Type), nil)
	}

	return fm, body, nil
}

func parseYAMLBlock(lines []string) (FrontMatter, string, error) {
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return FrontMatter{}, "", apperr.New(apperr.CodeInvalidFrontMatter, "unterminated yaml front matter block", nil)
	}

	var fm FrontMatter
	block := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return FrontMatter{}, "", apperr.Wrap(apperr.CodeInvalidFrontMatter, "while parsing yaml front matter", err)
	}
	body := strings.Join(lines[end+1:], "\n")
	return fm, strings.TrimPrefix(body, "\n"), nil
}

func parseHashBlock(lines []string) (FrontMatter, string) {
	var fm FrontMatter
	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		kv := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		idx := strings.Index(kv, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(kv[:idx])
		value := strings.TrimSpace(kv[idx+1:])
		switch strings.ToLower(key) {
		case "name":
			fm.Name = value
		case "type":
			fm.Type = value
		case "tags":
			fm.Tags = splitTags(value)
		}
	}
	body := strings.Join(lines[i:], "\n")
	return fm, strings.TrimPrefix(body, "\n")
}

func splitTags(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if tok := strings.TrimSpace(part); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
