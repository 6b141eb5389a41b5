// Command flow is the Flow Finance terminal client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"flowfinance/internal/api"
	"flowfinance/internal/cli"
	"flowfinance/internal/log"
)

const usage = `Usage: flow <command> [flags]

Session:
  login                 log in (-u USER, prompts for the password)
  register              create an account and log in (-email, -u)
  logout                forget the stored credential
  whoami                show the logged-in user
  profile update        change email, username or password (-email, -u, -p)
  profile delete        permanently delete the account

Records:
  accounts     list|add|edit|delete
  categories   list|add|edit|delete
  transactions list|add|edit|delete

Reports:
  dashboard             totals, daily series and spending by category (-days N)
  export                download all transactions as a zip (-o FILE)
  import FILE           upload a JSON file of transactions
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	infra := cli.InitBackend(ctx, logger, cfg)
	client := api.New(cfg.APIBaseURL, nil, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))

	a := newApp(client, infra.Tokens, appOptions{
		publisher:  infra.Publisher(),
		windowDays: cfg.DashboardWindowDays,
		logger:     logger,
	}, os.Stdin, os.Stdout)

	err := a.run(ctx, os.Args[1:])
	if cerr := infra.Cleanup(); cerr != nil {
		logger.Warn("Cleanup failed", log.FieldError, cerr.Error())
	}
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err on stderr and maps it to a process exit status.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}
