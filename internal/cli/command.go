package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one flagskin subcommand.
type Command struct {
	Name    string
	Args    string // argument synopsis after Name, e.g. "--scene <file>"
	Summary string
	Help    string // shown by --help; Summary when empty
	Flags   *flag.FlagSet
	Exec    func(ctx context.Context, o *IO, args []string) error
}

func (c *Command) synopsis() string {
	if c.Args == "" {
		return c.Name
	}

	return c.Name + " " + c.Args
}

func (c *Command) printHelp(o *IO) {
	help := c.Help
	if help == "" {
		help = c.Summary
	}

	o.Printf("Usage: flagskin %s\n\n%s\n", c.synopsis(), help)

	if c.Flags.HasFlags() {
		o.Printf("\nFlags:\n%s", c.Flags.FlagUsages())
	}
}

// Run parses args and executes c, returning the exit code. Parse and exec
// errors go to stderr.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.printHelp(o)

			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.printHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
