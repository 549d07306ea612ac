// Package cli implements the dhadmin command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/aussiebroadwan/dhadmin/internal/app"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `dhadmin signin` first")

const expiredHint = "Your session has expired. Run `dhadmin signin` to sign in again."

// Options wires the CLI to its environment. Zero fields fall back to the
// process's stdio and app.LoadConfig.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	LoadConfig func() (app.Config, error)
}

// CLI is one invocation of dhadmin.
type CLI struct {
	opts Options

	// persistent flags
	apiURL      string
	storeDriver string
	jsonOutput  bool

	app     *app.Application
	expired atomic.Bool
}

func New(opts Options) *CLI {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = app.LoadConfig
	}
	return &CLI{opts: opts}
}

// Command builds the root command.
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "dhadmin",
		Short: "DirectHealth admin console",
		Long: `dhadmin manages a DirectHealth deployment through its admin API.

Sign in once with "dhadmin signin"; the session is kept in the configured
credential store and refreshed automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "Admin API root (overrides DH_API_URL)")
	root.PersistentFlags().StringVar(&c.storeDriver, "store", "", "Credential store: file, sqlite, redis, memory (overrides DH_STORE_DRIVER)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Print raw JSON responses")

	root.SetIn(c.opts.Stdin)
	root.SetOut(c.opts.Stdout)
	root.SetErr(c.opts.Stderr)

	root.AddCommand(
		c.signinCmd(),
		c.signoutCmd(),
		c.whoamiCmd(),
		c.statsCmd(),
		c.usersCmd(),
		c.providersCmd(),
		c.collectionCmd("locations", "Manage locations",
			(*adminsdk.Session).ListLocations, (*adminsdk.Session).CreateLocation, locationColumns),
		c.collectionCmd("specialties", "Manage specialties",
			(*adminsdk.Session).ListSpecialties, nil, specialtyColumns),
		c.collectionCmd("appointments", "Manage appointments",
			(*adminsdk.Session).ListAppointments, (*adminsdk.Session).CreateAppointment, appointmentColumns),
		c.callCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs args and returns the process exit code. Errors are printed
// to stderr.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	root := c.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.renderError(err)
		return 1
	}
	return 0
}

// application builds the app on first use, so commands like version never
// touch the credential store.
func (c *CLI) application(ctx context.Context) (*app.Application, context.Context, error) {
	if c.app == nil {
		cfg, err := c.opts.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		if c.apiURL != "" {
			cfg.APIURL = c.apiURL
		}
		if c.storeDriver != "" {
			cfg.StoreDriver = c.storeDriver
		}

		a, err := app.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := a.OnSessionExpired(func(error) { c.expired.Store(true) }); err != nil {
			_ = a.Close()
			return nil, nil, err
		}
		c.app = a
	}
	return c.app, c.app.Context(ctx), nil
}

// session returns the signed-in session, or errNotSignedIn.
func (c *CLI) session(ctx context.Context) (*adminsdk.Session, context.Context, error) {
	a, ctx, err := c.application(ctx)
	if err != nil {
		return nil, nil, err
	}

	signedIn, err := a.Session().SignedIn(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !signedIn {
		return nil, nil, errNotSignedIn
	}
	return a.Session(), ctx, nil
}

func (c *CLI) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *CLI) renderError(err error) {
	w := c.opts.Stderr

	if c.expired.Load() {
		fmt.Fprintln(w, expiredHint)
		return
	}

	apiErr, ok := adminsdk.AsAPIError(err)
	if !ok {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %s\n", apiErr.Banner())
	for _, msg := range apiErr.FieldErrors() {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}
