package render

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

// shellDenylist is the set of metacharacters that reject a shell filter
// argument outright; any other character passes through to the command's
// whitespace-split argv.
const shellDenylist = ";|><&$("

// shellFilterTimeout bounds how long the shell filter waits for its child
// process.
const shellFilterTimeout = 3 * time.Second

func init() {
	_ = pongo2.RegisterFilter("strftime", filterStrftime)
	_ = pongo2.RegisterFilter("add_days", filterAddDays)
	_ = pongo2.RegisterFilter("subtract_days", filterSubtractDays)
	_ = pongo2.RegisterFilter("shell", filterShell)
}

func filterStrftime(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok {
		return pongo2.AsValue(""), &pongo2.Error{Sender: "filter:strftime", OrigError: errInvalidDateValue}
	}
	layout := strftimeToGoLayout(param.String())
	return pongo2.AsValue(t.Format(layout)), nil
}

func filterAddDays(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok {
		return pongo2.AsValue(""), &pongo2.Error{Sender: "filter:add_days", OrigError: errInvalidDateValue}
	}
	return pongo2.AsValue(t.AddDate(0, 0, param.Integer())), nil
}

func filterSubtractDays(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok {
		return pongo2.AsValue(""), &pongo2.Error{Sender: "filter:subtract_days", OrigError: errInvalidDateValue}
	}
	return pongo2.AsValue(t.AddDate(0, 0, -param.Integer())), nil
}

// filterShell runs its input as a command and returns stdout with a
// trailing newline stripped. Any denylisted metacharacter rejects the
// argument outright rather than ever reaching a shell.
func filterShell(in, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	arg := in.String()
	if strings.ContainsAny(arg, shellDenylist) {
		return pongo2.AsValue(""), &pongo2.Error{Sender: "filter:shell", OrigError: errUnsafeShellArgument}
	}

	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return pongo2.AsValue(""), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellFilterTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, fields[0], fields[1:]...).Output()
	if err != nil {
		return pongo2.AsValue(""), &pongo2.Error{Sender: "filter:shell", OrigError: err}
	}
	return pongo2.AsValue(strings.TrimRight(string(out), "\n")), nil
}

// strftimeToGoLayout translates the small set of strftime directives the
// filter needs into Go's reference-time layout.
func strftimeToGoLayout(fmtSpec string) string {
	r := strings.NewReplacer(
		"%Y", "2006", "%m", "01", "%d", "02",
		"%H", "15", "%M", "04", "%S", "05",
		"%y", "06", "%B", "January", "%b", "Jan",
		"%A", "Monday", "%a", "Mon",
	)
	return r.Replace(fmtSpec)
}
