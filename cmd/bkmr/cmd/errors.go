package cmd

import "github.com/bkmr/bkmr/internal/apperr"

// badQuery wraps a CLI-level argument problem as the usage-kind error that
// maps to exit code 64.
func badQuery(msg string) error {
	return apperr.New(apperr.CodeAmbiguousArgs, msg, nil)
}

// userCancelled marks an error as the 130 user-cancellation exit case.
func userCancelled(msg string) error {
	return &apperr.Error{
		Code:       apperr.CodeShellError,
		Kind:       apperr.KindAction,
		Message:    msg,
		ExitStatus: apperr.ExitUserCancelled,
	}
}

// actionErr wraps an external-command failure (fzf, editor) as an action
// error.
func actionErr(ctx string, cause error) error {
	return apperr.Wrap(apperr.CodeOpenError, ctx, cause)
}
