package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkmr/bkmr/internal/apperr"
)

func TestParseFrontMatter_YAMLBlock(t *testing.T) {
	raw := "---\nname: deploy\ntags: [ops, prod]\n---\necho deploying\n"

	fm, body, err := ParseFrontMatter(raw, ".sh")

	require.NoError(t, err)
	assert.Equal(t, "deploy", fm.Name)
	assert.Equal(t, []string{"ops", "prod"}, fm.Tags)
	assert.Equal(t, "_shell_", fm.Type)
	assert.Equal(t, "echo deploying\n", body)
}

func TestParseFrontMatter_HashCommentBlock(t *testing.T) {
	raw := "# name: snippet-one\n# tags: py, util\nprint('hi')\n"

	fm, body, err := ParseFrontMatter(raw, ".py")

	require.NoError(t, err)
	assert.Equal(t, "snippet-one", fm.Name)
	assert.Equal(t, []string{"py", "util"}, fm.Tags)
	assert.Equal(t, "_snip_", fm.Type)
	assert.Equal(t, "print('hi')\n", body)
}

func TestParseFrontMatter_ExplicitTypeOverridesExtensionDefault(t *testing.T) {
	raw := "---\nname: x\ntype: _md_\n---\nbody\n"

	fm, _, err := ParseFrontMatter(raw, ".sh")

	require.NoError(t, err)
	assert.Equal(t, "_md_", fm.Type)
}

func TestParseFrontMatter_MissingNameIsMissingField(t *testing.T) {
	raw := "---\ntags: [a]\n---\nbody\n"

	_, _, err := ParseFrontMatter(raw, ".md")

	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeMissingField, code)
}

func TestParseFrontMatter_UnknownTypeIsInvalidFrontMatter(t *testing.T) {
	raw := "---\nname: x\ntype: _bogus_\n---\nbody\n"

	_, _, err := ParseFrontMatter(raw, ".md")

	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidFrontMatter, code)
}

func TestParseFrontMatter_NoFrontMatterIsMissingNameError(t *testing.T) {
	raw := "just content, no header\n"

	_, body, err := ParseFrontMatter(raw, ".md")

	// Then: absent "name" is still a missing-field error, even with no front matter
	require.Error(t, err)
	_ = body
}

func TestParseFrontMatter_UnterminatedYAMLBlockFails(t *testing.T) {
	raw := "---\nname: x\nbody without closer\n"

	_, _, err := ParseFrontMatter(raw, ".md")

	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidFrontMatter, code)
}
