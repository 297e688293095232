package cli

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLoginCommand(a *App, creds *credentials) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and show the user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			u, err := a.login(ctx, creds)
			if err != nil {
				return err
			}
			defer a.authService.Logout(ctx)

			rows := [][]string{
				{"User ID", u.UserID},
				{"User name", u.UserName},
			}
			if u.Email != "" {
				rows = append(rows, []string{"Email", u.Email})
			}
			if len(u.Roles) > 0 {
				rows = append(rows, []string{"Roles", strings.Join(u.Roles, ", ")})
			}
			table, err := pterm.DefaultTable.WithData(rows).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, pterm.Success.Sprintf("Logged in as %s", u.UserName))
			fmt.Fprintln(a.out, table)
			return nil
		},
	}
}
