// Package apperr provides bkmr's structured error type: a single kind with
// a closed taxonomy of codes, a human message, optional structured
// details, and a chained cause. Each layer that returns an error across a
// component boundary wraps it here and attaches its own contextual
// prefix, rather than letting raw driver/library errors leak to the CLI.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the seven families this taxonomy names.
type Kind string

const (
	KindInput    Kind = "INPUT"
	KindStore    Kind = "STORE"
	KindTemplate Kind = "TEMPLATE"
	KindAction   Kind = "ACTION"
	KindImport   Kind = "IMPORT"
	KindEmbed    Kind = "EMBED"
	KindConfig   Kind = "CONFIG"
)

// Code enumerates the concrete error codes in the closed taxonomy.
type Code string

const (
	// Input/Usage
	CodeBadQuery      Code = "BAD_QUERY"
	CodeBadTagToken   Code = "BAD_TAG_TOKEN"
	CodeUnknownSysTag Code = "UNKNOWN_SYSTEM_TAG"
	CodeAmbiguousArgs Code = "AMBIGUOUS_ARGS"

	// Store
	CodeNotFound        Code = "NOT_FOUND"
	CodeDuplicateURL    Code = "DUPLICATE_URL"
	CodeDuplicateName   Code = "DUPLICATE_NAME"
	CodeSchemaError     Code = "SCHEMA_ERROR"
	CodeMigrationFailed Code = "MIGRATION_FAILED"

	// Template
	CodeTemplateParse  Code = "TEMPLATE_PARSE_ERROR"
	CodeTemplateEval   Code = "TEMPLATE_EVAL_ERROR"
	CodeUnsafeShellArg Code = "UNSAFE_SHELL_ARGUMENT"

	// Action
	CodeOpenError      Code = "OPEN_ERROR"
	CodeClipboardError Code = "CLIPBOARD_ERROR"
	CodeShellError     Code = "SHELL_ERROR"
	CodeRenderError    Code = "RENDER_ERROR"

	// Import
	CodeInvalidFrontMatter Code = "INVALID_FRONT_MATTER"
	CodeMissingField       Code = "MISSING_REQUIRED_FIELD"
	CodeUnreadableFile     Code = "UNREADABLE_FILE"
	CodeBasePathUnresolved Code = "BASE_PATH_UNRESOLVED"

	// Embedding
	CodeEmbedderUnavailable Code = "EMBEDDER_UNAVAILABLE"
	CodeEmbedTimeout        Code = "EMBED_TIMEOUT"
	CodeEmbedFormatError    Code = "EMBED_FORMAT_ERROR"

	// Config
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeConfigValueError Code = "CONFIG_VALUE_ERROR"
)

var codeKind = map[Code]Kind{
	CodeBadQuery:      KindInput,
	CodeBadTagToken:   KindInput,
	CodeUnknownSysTag: KindInput,
	CodeAmbiguousArgs: KindInput,

	CodeNotFound:        KindStore,
	CodeDuplicateURL:    KindStore,
	CodeDuplicateName:   KindStore,
	CodeSchemaError:     KindStore,
	CodeMigrationFailed: KindStore,

	CodeTemplateParse:  KindTemplate,
	CodeTemplateEval:   KindTemplate,
	CodeUnsafeShellArg: KindTemplate,

	CodeOpenError:      KindAction,
	CodeClipboardError: KindAction,
	CodeShellError:     KindAction,
	CodeRenderError:    KindAction,

	CodeInvalidFrontMatter: KindImport,
	CodeMissingField:       KindImport,
	CodeUnreadableFile:     KindImport,
	CodeBasePathUnresolved: KindImport,

	CodeEmbedderUnavailable: KindEmbed,
	CodeEmbedTimeout:        KindEmbed,
	CodeEmbedFormatError:    KindEmbed,

	CodeConfigParseError: KindConfig,
	CodeConfigValueError: KindConfig,
}

// Error is bkmr's structured error type.
type Error struct {
	Code       Code
	Kind       Kind
	Message    string
	Cause      error
	Details    map[string]string
	ExitStatus int // shell exit code when this error terminates the CLI, 0 = unset/default
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the chained cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is(err, apperr.New(apperr.CodeNotFound, "", nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given code and message; kind is derived
// from the code's place in the closed taxonomy.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Kind:    codeKind[code],
		Message: message,
		Cause:   cause,
	}
}

// Wrap turns an arbitrary error into an Error tagged with code, prefixing
// the message with ctx (e.g. "while updating item 42"). Each layer attaches
// its own contextual prefix as the error propagates. Returns nil if err is nil.
func Wrap(code Code, ctx string, err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok && ctx == "" {
		return ae
	}
	msg := ctx
	if msg == "" {
		msg = err.Error()
	}
	return New(code, msg, err)
}

// GetCode extracts the code from err if it is (or wraps) an *Error.
func GetCode(err error) (Code, bool) {
	var ae *Error
	if !errors.As(err, &ae) {
		return "", false
	}
	return ae.Code, true
}

// ShellErrorWithExitCode builds the Action taxonomy's ShellError(code) case,
// carrying the child process's exit code as a detail.
func ShellErrorWithExitCode(exitCode int, cause error) *Error {
	return New(CodeShellError, fmt.Sprintf("shell command exited with status %d", exitCode), cause).
		WithDetail("exit_code", fmt.Sprintf("%d", exitCode))
}
