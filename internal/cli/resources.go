package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/cryptox"
	"github.com/spf13/cobra"
)

// generatedPasswordLength is used by users create when no password is given.
const generatedPasswordLength = 16

type listFunc func(s *adminsdk.Session, ctx context.Context, q adminsdk.ListQuery) (*adminsdk.Page[adminsdk.Record], error)

type createFunc func(s *adminsdk.Session, ctx context.Context, payload any) (adminsdk.Record, error)

type listFlags struct {
	page    int
	limit   int
	search  string
	filters []string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 0, "Page number (default: server default)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Records per page (default: server default)")
	cmd.Flags().StringVar(&f.search, "search", "", "Free-text search")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Filter as key=value (repeatable)")
}

func (f *listFlags) query() (adminsdk.ListQuery, error) {
	q := adminsdk.ListQuery{Page: f.page, Limit: f.limit, Search: f.search}
	for _, raw := range f.filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return adminsdk.ListQuery{}, fmt.Errorf("invalid filter %q, expected key=value", raw)
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[key] = value
	}
	return q, nil
}

func (c *CLI) listCmd(list listFunc, cols []column) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}

			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			page, err := list(session, ctx, q)
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return printPage(cmd.OutOrStdout(), page, cols)
		},
	}

	flags.register(cmd)
	return cmd
}

// collectionCmd groups list and, when create is non-nil, create under name.
func (c *CLI) collectionCmd(name, short string, list listFunc, create createFunc, cols []column) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
	}
	cmd.AddCommand(c.listCmd(list, cols))
	if create != nil {
		cmd.AddCommand(c.createCmd(strings.TrimSuffix(name, "s"), create))
	}
	return cmd
}

func (c *CLI) createCmd(noun string, create createFunc) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create one " + noun,
		Long: `Create one ` + noun + ` from a JSON object.

Use --data - to read the object from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := []byte(data)
			if data == "-" {
				var err error
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
				return fmt.Errorf("--data must be a JSON object")
			}

			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			created, err := create(session, ctx, payload)
			if err != nil {
				return err
			}
			return c.printCreated(cmd.OutOrStdout(), noun, created)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Record as a JSON object, or - for stdin")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (c *CLI) printCreated(out io.Writer, noun string, created adminsdk.Record) error {
	if c.jsonOutput {
		return printJSON(out, created)
	}

	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created, &rec); err != nil || rec.ID == "" {
		return fmt.Errorf("%s created but the response carried no id", noun)
	}
	fmt.Fprintf(out, "Created %s %s\n", noun, rec.ID)
	return nil
}

func (c *CLI) providersCmd() *cobra.Command {
	cmd := c.collectionCmd("providers", "Manage providers",
		(*adminsdk.Session).ListProviders, (*adminsdk.Session).CreateProvider, providerColumns)
	cmd.AddCommand(c.timeSlotsCmd())
	return cmd
}

func (c *CLI) timeSlotsCmd() *cobra.Command {
	var (
		flags listFlags
		date  string
	)

	cmd := &cobra.Command{
		Use:   "timeslots PROVIDER_ID",
		Short: "List a provider's time slots",
		Long: `List a provider's time slots on a date.

Only available slots are listed unless --filter status=... says otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}

			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			page, err := session.ListProviderTimeSlots(ctx, args[0], date, q)
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return printPage(cmd.OutOrStdout(), page, timeSlotColumns)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "Day to list, as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (c *CLI) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			stats, err := session.DashboardStats(ctx)
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Users\t%d\n", stats.TotalUsers)
			fmt.Fprintf(tw, "Providers\t%d\n", stats.TotalProviders)
			fmt.Fprintf(tw, "Locations\t%d\n", stats.TotalLocations)
			fmt.Fprintf(tw, "Specialties\t%d\n", stats.TotalSpecialties)
			fmt.Fprintf(tw, "Appointments\t%d\n", stats.TotalAppointments)
			fmt.Fprintf(tw, "  upcoming\t%d\n", stats.AppointmentsByStatus.Upcoming)
			fmt.Fprintf(tw, "  past\t%d\n", stats.AppointmentsByStatus.Past)
			fmt.Fprintf(tw, "  cancelled\t%d\n", stats.AppointmentsByStatus.Cancelled)
			return tw.Flush()
		},
	}
}

func (c *CLI) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(
		c.listCmd((*adminsdk.Session).ListUsers, userColumns),
		c.userCreateCmd(),
	)
	return cmd
}

func (c *CLI) userCreateCmd() *cobra.Command {
	var firstName, lastName, email, password, phone string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long: `Create a user account.

Without --password a random password is generated and printed once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			generated := password == ""
			if generated {
				var err error
				password, err = cryptox.GeneratePassword(generatedPasswordLength)
				if err != nil {
					return err
				}
			}

			// Empty fields are sent as-is; the API reports what is missing.
			payload := map[string]any{
				"firstName": firstName,
				"lastName":  lastName,
				"email":     email,
				"password":  password,
			}
			if phone != "" {
				payload["phoneNumber"] = phone
			}

			session, ctx, err := c.session(cmd.Context())
			if err != nil {
				return err
			}

			created, err := session.CreateUser(ctx, payload)
			if err != nil {
				return err
			}

			if err := c.printCreated(out, "user", created); err != nil {
				return err
			}

			if generated {
				fmt.Fprintf(out, "Generated password: %s\n", password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Initial password (default: generated)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	return cmd
}
