// Package render implements the Jinja-family template engine: substitution
// and control structures over pongo2, a closed set of date/shell/string
// filters, and the render_if_needed passthrough contract that leaves plain
// text untouched.
package render

import (
	"errors"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/bkmr/bkmr/internal/apperr"
	"github.com/bkmr/bkmr/internal/model"
)

// Engine renders item-scoped template text. It holds no mutable state:
// every call is a pure function of its arguments and the process
// environment/clock, aside from the shell filter's side effect.
type Engine struct {
	// Now is injectable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// New returns a ready-to-use Engine.
func New() *Engine {
	return &Engine{Now: time.Now}
}

// NeedsRender reports whether text contains template syntax at all, the
// fast-path check render_if_needed uses to skip parsing plain text.
func NeedsRender(text string) bool {
	return strings.Contains(text, "{{") || strings.Contains(text, "{%")
}

// RenderIfNeeded returns text unchanged unless it contains "{{" or "{%", in
// which case it is parsed and evaluated against its context. This is the
// render(s) = s passthrough law for plain text.
func (e *Engine) RenderIfNeeded(text string, it *model.Item) (string, error) {
	if !NeedsRender(text) {
		return text, nil
	}

	tpl, err := pongo2.FromString(text)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeTemplateParse, "while parsing template", err)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	out, err := tpl.Execute(itemContext(it, now()))
	if err != nil {
		return "", wrapEvalError(err)
	}
	return out, nil
}

// wrapEvalError classifies a pongo2 execution failure, surfacing the
// dedicated UnsafeShellArgument code when the shell filter's denylist
// rejected its argument.
func wrapEvalError(err error) error {
	var perr *pongo2.Error
	cause := err
	if errors.As(err, &perr) && perr.OrigError != nil {
		cause = perr.OrigError
	}
	if errors.Is(cause, errUnsafeShellArgument) {
		return apperr.Wrap(apperr.CodeUnsafeShellArg, "shell filter argument rejected", cause)
	}
	return apperr.Wrap(apperr.CodeTemplateEval, "while evaluating template", err)
}
