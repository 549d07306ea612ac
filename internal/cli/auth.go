package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/jwtx"
	"github.com/spf13/cobra"
)

func (c *CLI) signinCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the admin API",
		Long: `Sign in with an administrator's email and password.

Without --password the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			a, ctx, err := c.application(cmd.Context())
			if err != nil {
				return err
			}

			admin, err := a.SignIn(ctx, email, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(admin))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password (default: read from stdin)")
	return cmd
}

func (c *CLI) signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Session().SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *CLI) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ctx, err := c.application(cmd.Context())
			if err != nil {
				return err
			}

			creds, err := a.Store().Load(ctx)
			if errors.Is(err, adminsdk.ErrNoCredentials) {
				return errNotSignedIn
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if creds.Identity != nil {
				fmt.Fprintf(out, "Signed in as %s\n", displayName(creds.Identity))
			} else {
				fmt.Fprintln(out, "Signed in (identity unknown)")
			}
			fmt.Fprintf(out, "API: %s\n", a.Config().APIURL)
			fmt.Fprintln(out, describeAccessToken(creds.AccessToken, time.Now()))
			return nil
		},
	}
}

func displayName(p *adminsdk.Principal) string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return fmt.Sprintf("%s <%s>", name, p.Email)
}

// describeAccessToken reads the token's expiry for display. The signature
// is not checked; the API is the only judge of validity.
func describeAccessToken(token string, now time.Time) string {
	claims, err := jwtx.ParseUnverified(token)
	if err != nil {
		return "Access token: unreadable"
	}

	exp := claims.Expiry()
	switch {
	case exp.IsZero():
		return "Access token: no expiry"
	case !now.Before(exp):
		return fmt.Sprintf("Access token: expired at %s, refreshed on next request", exp.Local().Format(time.RFC3339))
	default:
		return fmt.Sprintf("Access token: expires in %s (%s)",
			exp.Sub(now).Round(time.Second), exp.Local().Format(time.RFC3339))
	}
}
