// Command git-log-html converts colorized git history to HTML.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dhamidi/git-log-html/internal/cli"
	flag "github.com/spf13/pflag"
)

func main() {
	cli.SetupLog(os.Stderr)
	ctx, cancel := cli.WithSignals(context.Background())
	err := cli.Main(ctx, os.Args)
	cancel()
	if err != nil {
		// A canceled run was interrupted by the user, there is nothing to add.
		if !errors.Is(err, flag.ErrHelp) && !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintf(os.Stderr, "%s: %s\n", cli.Name, err)
		}
		os.Exit(1)
	}
}
