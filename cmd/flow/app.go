package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"flowfinance/internal/api"
	"flowfinance/internal/core"
	"flowfinance/internal/dashboard"
	"flowfinance/internal/log"
	"flowfinance/internal/resource"
	"flowfinance/internal/session"
	"flowfinance/internal/storage"
)

var errUsage = errors.New("usage")

type appOptions struct {
	publisher  resource.Publisher
	windowDays int
	logger     *log.Logger
	now        func() time.Time
}

// app is one invocation of the terminal client.
type app struct {
	client       *api.Client
	session      *session.Store
	accounts     *resource.Accounts
	categories   *resource.Categories
	transactions *resource.Transactions

	windowDays int
	now        func() time.Time
	logger     *log.Logger

	stdin  *bufio.Reader
	rawIn  io.Reader
	stdout io.Writer
}

func newApp(client *api.Client, tokens storage.TokenStore, opts appOptions, stdin io.Reader, stdout io.Writer) *app {
	if opts.logger == nil {
		opts.logger = log.Discard()
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.windowDays <= 0 {
		opts.windowDays = dashboard.DefaultWindowDays
	}

	sess := session.New(client, tokens, session.WithLogger(opts.logger))
	client.SetTokenSource(sess)

	ctrlOpts := []resource.Option{
		resource.WithGuard(sess.Guard),
		resource.WithLogger(opts.logger),
	}
	if opts.publisher != nil {
		ctrlOpts = append(ctrlOpts, resource.WithPublisher(opts.publisher))
	}

	now := opts.now
	return &app{
		client:     client,
		session:    sess,
		accounts:   resource.NewAccounts(client, ctrlOpts...),
		categories: resource.NewCategories(client, ctrlOpts...),
		transactions: resource.NewTransactions(client, func() core.Date {
			y, m, d := now().Date()
			return core.NewDate(y, int(m), d)
		}, ctrlOpts...),
		windowDays: opts.windowDays,
		now:        now,
		logger:     opts.logger,
		stdin:      bufio.NewReader(stdin),
		rawIn:      stdin,
		stdout:     stdout,
	}
}

// run restores the session and dispatches args to a command.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if err := a.session.Initialize(ctx); err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		a.session.Logout()
		fmt.Fprintln(a.stdout, "Logged out.")
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return nil
	}

	if !a.session.IsAuthenticated() {
		return fmt.Errorf("%w: run `flow login` first", session.ErrNotAuthenticated)
	}

	switch cmd {
	case "whoami":
		return a.whoami()
	case "profile":
		return a.profile(ctx, rest)
	case resource.NameAccounts:
		return a.accountsCmd(ctx, rest)
	case resource.NameCategories:
		return a.categoriesCmd(ctx, rest)
	case resource.NameTransactions:
		return a.transactionsCmd(ctx, rest)
	case "dashboard":
		return a.dashboard(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "import":
		return a.importFile(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// prompt prints label and reads one line of input.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.stdout, label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// password reads a secret without echo when stdin is a terminal.
func (a *app) password(label string) (string, error) {
	if f, ok := a.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stdout, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stdout)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return a.prompt(label)
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (a *app) confirm(question string) (bool, error) {
	answer, err := a.prompt(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
