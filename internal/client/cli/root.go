package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) getStatus() string {
	s := ""
	if a.email != "" {
		s = a.email + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root probes the server once, starts the status watcher and hands control
// to the REPL.
func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to gophauth CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.ping(ctx); err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
