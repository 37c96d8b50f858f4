package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// WithSignals returns a context canceled by the first SIGINT or SIGTERM.
// The handler is removed at that point, so a second signal terminates the
// process even while it is blocked reading its input.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case <-signalChannel:
		case <-ctx.Done():
		}
		signal.Stop(signalChannel)
		cancel()
	}()
	return ctx, cancel
}

// SetupLog sends the standard logger to f with the program name as prefix,
// highlighted when f is a terminal.
func SetupLog(f *os.File) {
	log.SetFlags(0)
	if os.Getenv("TERM") != "dumb" && isatty.IsTerminal(f.Fd()) {
		log.SetOutput(colorable.NewColorable(f))
		log.SetPrefix("\x1b[34;1m" + Name + "\x1b[0m ")
		return
	}
	log.SetOutput(f)
	log.SetPrefix(Name + " ")
}
