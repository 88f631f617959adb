// Command parkctl prepares the citation datasets the risk service loads and
// renders the static parking maps.
//
// Usage:
//
//	parkctl fetch --limit 500000
//	parkctl filter
//	parkctl geocode
//	parkctl merge
//	parkctl render
//	parkctl validate
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(afero.NewOsFs(), os.Stdout)
	err := root.cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
