package cli_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/flagskin/internal/cli"
)

func Test_IO_Finish_Repeats_Warnings_Around_Output(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut)
	o.Warn("invalid color", "use #RRGGBB")
	o.Println("report")

	if got := o.Finish(); got != 1 {
		t.Fatalf("Finish()=%d, want 1", got)
	}

	want := "warning: invalid color: use #RRGGBB\nwarning: invalid color: use #RRGGBB\n"
	if diff := cmp.Diff(want, errOut.String()); diff != "" {
		t.Fatalf("stderr mismatch (-want +got):\n%s", diff)
	}

	if got := out.String(); got != "report\n" {
		t.Fatalf("stdout=%q", got)
	}
}

func Test_IO_Finish_Returns_Zero_When_No_Warnings(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut)
	o.Printf("%s\n", "ok")

	if got := o.Finish(); got != 0 {
		t.Fatalf("Finish()=%d, want 0", got)
	}

	if errOut.Len() != 0 {
		t.Fatalf("unexpected stderr: %q", errOut.String())
	}
}

func Test_IO_Finish_Prints_Warnings_Twice_When_Nothing_Written(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut)
	o.Warn("a", "b")

	if got := o.Finish(); got != 1 {
		t.Fatalf("Finish()=%d, want 1", got)
	}

	if diff := cmp.Diff("warning: a: b\nwarning: a: b\n", errOut.String()); diff != "" {
		t.Fatalf("stderr mismatch (-want +got):\n%s", diff)
	}
}
