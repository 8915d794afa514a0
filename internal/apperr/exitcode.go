package apperr

// Exit codes this CLI's error taxonomy maps onto.
const (
	ExitSuccess       = 0
	ExitUsage         = 64
	ExitDuplicateName = 65
	ExitUserCancelled = 130
	ExitGeneric       = 1
)

// ExitCode maps an error to the CLI exit status it should produce.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	ae, ok := err.(*Error)
	if !ok {
		return ExitGeneric
	}
	if ae.ExitStatus != 0 {
		return ae.ExitStatus
	}
	switch ae.Code {
	case CodeDuplicateName:
		return ExitDuplicateName
	case CodeBadQuery, CodeBadTagToken, CodeAmbiguousArgs, CodeUnknownSysTag:
		return ExitUsage
	default:
		return ExitGeneric
	}
}
