package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinalkan/flagskin/internal/fs"
	"github.com/calvinalkan/flagskin/internal/skin"

	flag "github.com/spf13/pflag"
)

var (
	errCacheSubcommand = errors.New("expected subcommand: ls or key <url>")
	errURLRequired     = errors.New("url is required")
)

// CacheCmd returns the cache command.
func CacheCmd(cfg *skin.Config) *Command {
	return &Command{
		Name:    "cache",
		Args:    "<ls|key <url>>",
		Summary: "Inspect the texture cache",
		Flags:   flag.NewFlagSet("cache", flag.ContinueOnError),
		Help: "ls lists the cached downloads with their sizes.\n" +
			"key <url> prints the file a URL is cached in.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) == 0 {
				return errCacheSubcommand
			}

			cache := skin.NewCache(cfg.CacheDir, fs.NewReal())

			switch args[0] {
			case "ls":
				return execCacheLs(io, cache)
			case "key":
				if len(args) < 2 || args[1] == "" {
					return errURLRequired
				}

				io.Println(cache.Path(args[1]))

				return nil
			default:
				return fmt.Errorf("%w (got %q)", errCacheSubcommand, args[0])
			}
		},
	}
}

func execCacheLs(io *IO, cache *skin.Cache) error {
	entries, err := cache.Entries()
	if err != nil {
		return err
	}

	io.Println("# " + cache.Dir())

	if len(entries) == 0 {
		io.Println("(empty)")

		return nil
	}

	var total int64

	for _, e := range entries {
		io.Printf("%s%s  %d\n", e.Key, skin.CacheExt, e.Size)
		total += e.Size
	}

	io.Printf("%d entries, %d bytes\n", len(entries), total)

	return nil
}
