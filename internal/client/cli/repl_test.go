package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) WhoAmI(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			parts = append(parts, strings.TrimSpace(toString(v)))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"whoami",
		"refresh",
		"logout",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "whoami", "refresh", "logout"}, exec.calls)
}

func TestRunREPL_SessionCommandsNeedLogin(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.NewReader("whoami\nrefresh\nlogout\n\nquit\n")
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Not logged in. Use register or login first.")
	assert.Contains(t, *lines, "Bye!")
}

func TestRunREPL_EOFStops(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("register")))

	assert.Equal(t, []string{"register"}, exec.calls)
}

func TestRunREPL_UnknownCommand(t *testing.T) {
	lines := capturePrintln(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewScanner(strings.NewReader("addnote\nexit\n")))

	assert.Contains(t, *lines, "Unknown command: addnote")
}
