package cli_test

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/flagskin/internal/cli"
)

func Test_Bare_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	// Call Run directly without test helper (which adds --cwd)
	var stdout, stderr bytes.Buffer

	exitCode := cli.Run(nil, &stdout, &stderr, []string{"flagskin"}, nil, nil)

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stderr.String(), ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout.String(), "flagskin - re-skin faction flags")
	cli.AssertContains(t, stdout.String(), "--cwd")
	cli.AssertContains(t, stdout.String(), "preview --scene <file>")
	cli.AssertContains(t, stdout.String(), "cache <ls|key <url>>")
}

func Test_Flags_Unknown_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--invalid-flag", "print-config")

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
}

func Test_Flags_Config_Requires_Argument_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--config")

	cli.AssertContains(t, stderr, "flag needs an argument")
}

func Test_Unknown_Command_Prints_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("paint")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if stdout != "" {
		t.Errorf("stdout=%q, want empty", stdout)
	}

	cli.AssertContains(t, stderr, "unknown command: paint")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Help_Flags_Print_Usage_When_Invoked(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"-h", "--help"} {
		c := cli.NewCLI(t)
		stdout := c.MustRun(flag)

		cli.AssertContains(t, stdout, "Usage: flagskin")
		cli.AssertContains(t, stdout, "watch --scene <file>")
	}
}

func Test_Command_Help_Shows_Flags_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("preview", "--help")

	cli.AssertContains(t, stdout, "Usage: flagskin preview --scene <file>")
	cli.AssertContains(t, stdout, "--scene")
}

func Test_Command_Unknown_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("preview", "--bogus")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "error: unknown flag: --bogus")
	cli.AssertContains(t, stdout, "Usage: flagskin preview")
}
