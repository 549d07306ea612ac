package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/spf13/cobra"
)

var callMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

func (c *CLI) callCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Send an arbitrary request to the admin API",
		Long: `Send an authenticated request and print the JSON response.

PATH is relative to the API root and may carry a query string, e.g.
  dhadmin call GET '/admin/users?search=smith'
  dhadmin call PATCH /admin/users/42 --data '{"isEmailVerified":true}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if !callMethods[method] {
				return fmt.Errorf("unsupported method %q", args[0])
			}

			path, rawQuery, _ := strings.Cut(args[1], "?")
			if !strings.HasPrefix(path, "/") {
				return errors.New("path must start with /")
			}
			query, err := url.ParseQuery(rawQuery)
			if err != nil {
				return fmt.Errorf("invalid query string: %w", err)
			}

			req := adminsdk.Request{Method: method, Path: path, Query: query}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data is not valid JSON")
				}
				req.Body = json.RawMessage(data)
			}

			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			var resp json.RawMessage
			if err := session.Do(ctx, req, &resp); err != nil {
				return err
			}

			if len(resp) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no content)")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "JSON request body")
	return cmd
}
