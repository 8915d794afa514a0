package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

func fixedEngine(t time.Time) *Engine {
	return &Engine{Now: func() time.Time { return t }}
}

func TestNeedsRender_DetectsSubstitutionAndControlSyntax(t *testing.T) {
	assert.True(t, NeedsRender("hello {{ title }}"))
	assert.True(t, NeedsRender("{% if x %}y{% endif %}"))
	assert.False(t, NeedsRender("plain text, no markup"))
}

func TestRenderIfNeeded_PassthroughLawForPlainText(t *testing.T) {
	// Given: text containing neither "{{" nor "{%"
	e := New()
	it := &model.Item{Metadata: "title"}

	// When: rendering
	out, err := e.RenderIfNeeded("just a plain bookmark description", it)

	// Then: render(s) = s
	require.NoError(t, err)
	assert.Equal(t, "just a plain bookmark description", out)
}

func TestRenderIfNeeded_SubstitutesItemScalarFields(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	e := fixedEngine(now)
	it := &model.Item{
		ID:          7,
		Metadata:    "My Title",
		Description: "a description",
		Tags:        ",go,web,",
	}

	out, err := e.RenderIfNeeded("{{ title }} ({{ id }}): {{ description }}", it)

	require.NoError(t, err)
	assert.Equal(t, "My Title (7): a description", out)
}

func TestRenderIfNeeded_CurrentDateUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := fixedEngine(now)
	it := &model.Item{}

	out, err := e.RenderIfNeeded("{{ current_date|strftime:\"%Y-%m-%d\" }}", it)

	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", out)
}

func TestRenderIfNeeded_EnvFallbackWhenUnset(t *testing.T) {
	e := New()
	it := &model.Item{}

	out, err := e.RenderIfNeeded(`{{ env("BKMR_TEST_DEFINITELY_UNSET", "fallback") }}`, it)

	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestRenderIfNeeded_UnsafeShellArgumentIsClassified(t *testing.T) {
	e := New()
	it := &model.Item{}

	_, err := e.RenderIfNeeded(`{{ "rm -rf / ; echo pwned"|shell }}`, it)

	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnsafeShellArg, code)
}

func TestRenderIfNeeded_ParseErrorIsTemplateParseCode(t *testing.T) {
	e := New()
	it := &model.Item{}

	_, err := e.RenderIfNeeded("{% if %}", it)

	require.Error(t, err)
	code, ok := apperr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeTemplateParse, code)
}

func TestRenderIfNeeded_TagsAreAvailableAsList(t *testing.T) {
	e := New()
	it := &model.Item{Tags: ",alpha,beta,"}

	out, err := e.RenderIfNeeded("{% for t in tags %}{{ t }},{% endfor %}", it)

	require.NoError(t, err)
	assert.Equal(t, "alpha,beta,", out)
}
