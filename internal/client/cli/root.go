package cli

import (
	"context"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/spf13/cobra"
)

// credentials are the persistent login flags shared by every command.
type credentials struct {
	user      string
	password  string
	anonymous bool
}

// NewRootCommand builds the gridctl command tree bound to a.
func NewRootCommand(a *App) *cobra.Command {
	creds := &credentials{}

	root := &cobra.Command{
		Use:   "gridctl",
		Short: "Query stored-procedure grids over the authenticated API",
		Long: `gridctl logs in to the grid backend, calls stored procedures and prints
the returned rows as tables, sorted, filtered and paged on the client.

Connection settings are read before the command line is parsed:
  -a, --addr        API base URL
  -t, --timeout     per-request timeout
  -c, --config      JSON or YAML config file
  --log-level       debug, info, warn or error
  --log-format      text, json or zap
  --page-size       default page size
  --tz              time zone for YYYYMMDD dates`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.out)
	root.SetIn(a.reader)

	pf := root.PersistentFlags()
	pf.StringVarP(&creds.user, "user", "u", "", "username; prompted when empty")
	pf.StringVarP(&creds.password, "password", "p", "", "password; prompted without echo when empty")
	pf.BoolVar(&creds.anonymous, "anonymous", false, "skip login and call the API without a token")

	root.AddCommand(
		newGridCommand(a, creds),
		newGridsCommand(a, creds),
		newLoginCommand(a, creds),
		newCallCommand(a, creds),
		newDatesCommand(a),
	)
	return root
}

// login authenticates with the flag values, prompting for whatever is missing.
func (a *App) login(ctx context.Context, c *credentials) (*session.User, error) {
	user := c.user
	if user == "" {
		var err error
		if user, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
			return nil, err
		}
	}

	var pw []byte
	if c.password != "" {
		pw = []byte(c.password)
	} else {
		var err error
		if pw, err = GetPassword(a.out); err != nil {
			return nil, err
		}
	}
	return a.authService.Login(ctx, user, pw)
}

// withSession runs fn between a login and a logout. Anonymous runs skip both.
func (a *App) withSession(ctx context.Context, c *credentials, fn func(context.Context) error) error {
	if c.anonymous {
		return fn(ctx)
	}
	if _, err := a.login(ctx, c); err != nil {
		return err
	}
	defer a.authService.Logout(context.WithoutCancel(ctx))
	return fn(ctx)
}
