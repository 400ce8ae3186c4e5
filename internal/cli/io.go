package cli

import (
	"fmt"
	"io"
)

// IO is a command's stdout and stderr plus the warnings it collected.
// Warnings go to stderr before the first stdout write and again at Finish,
// so they survive head and tail. Any warning makes the exit code 1.
type IO struct {
	out, errOut io.Writer
	warnings    []string
	shown       bool
}

func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records issue together with what the user can do about it.
func (o *IO) Warn(issue, action string) {
	o.warnings = append(o.warnings, issue+": "+action)
}

func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.Out(), a...)
}

func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.Out(), format, a...)
}

func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Out returns stdout after showing any pending warnings.
func (o *IO) Out() io.Writer {
	if !o.shown {
		o.showWarnings()
	}

	return o.out
}

// Finish repeats the warnings and returns 1 if there were any.
func (o *IO) Finish() int {
	if len(o.warnings) == 0 {
		return 0
	}

	if !o.shown {
		o.showWarnings()
	}

	o.showWarnings()

	return 1
}

func (o *IO) showWarnings() {
	if len(o.warnings) == 0 {
		return
	}

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	o.shown = true
}
