package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit".
//
//	Not logged in:
//	  help, register, login, exit | quit
//
//	Logged in:
//	  help, whoami, refresh, logout, exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ga %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "refresh":
			if !requireLogin(a) {
				continue
			}
			_ = a.Refresh(ctx)

		case "whoami":
			if !requireLogin(a) {
				continue
			}
			_ = a.WhoAmI(ctx)

		case "logout":
			if !requireLogin(a) {
				continue
			}
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func requireLogin(a execIface) bool {
	if a.isLoggedIn() {
		return true
	}
	printlnFn("Not logged in. Use register or login first.")
	return false
}
