package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/eumgrid/internal/client/transport"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/spf13/cobra"
)

func newCallCommand(a *App, creds *credentials) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "call <path>",
		Short: "POST a JSON body to an API path and print the normalised envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := map[string]any{}
			if body != "" {
				if err := json.Unmarshal([]byte(body), &in); err != nil {
					return fmt.Errorf("%w: body: %w", common.ErrValidation, err)
				}
			}

			return a.withSession(cmd.Context(), creds, func(ctx context.Context) error {
				env := transport.Call[any](ctx, a.transport, args[0], in)

				out, err := json.MarshalIndent(env, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(out))
				if !env.Success {
					return fmt.Errorf("call %s: %w", args[0], env.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "JSON object to send; userId and requestId are added")
	return cmd
}
