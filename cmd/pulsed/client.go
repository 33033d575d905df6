package main

import (
	"encoding/json"
	"fmt"
	"time"

	"Mansoor88-6/pulse-tracker/internal/client"
	"Mansoor88-6/pulse-tracker/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type clientOptions struct {
	server  string
	user    string
	role    string
	timeout time.Duration
}

func (o *clientOptions) build() *client.APIClient {
	c := client.NewAPIClient(o.server, o.user, o.timeout, zap.NewNop())
	c.SetRole(o.role)
	return c
}

func newClientCmd() *cobra.Command {
	opts := &clientOptions{}

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Drive a running pulse server",
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:3001", "Base URL of the pulse server")
	cmd.PersistentFlags().StringVar(&opts.user, "user", "", "User ID sent with each request")
	cmd.PersistentFlags().StringVar(&opts.role, "role", "", "Role sent with each request")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	var (
		notes    string
		reason   string
		minutes  int
		period   string
		compare  bool
		billable bool
	)

	start := &cobra.Command{
		Use:   "start PROJECT_ID",
		Short: "Start a pulse on a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.StartPulseRequest{ProjectID: args[0], Notes: notes}
			if cmd.Flags().Changed("billable") {
				req.Billable = &billable
			}
			pulse, err := opts.build().StartPulse(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, pulse)
		},
	}
	start.Flags().StringVar(&notes, "notes", "", "Notes for the pulse")
	start.Flags().BoolVar(&billable, "billable", true, "Whether the pulse is billable")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current pulse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pulse, err := opts.build().CurrentPulse(cmd.Context())
			if err != nil {
				return err
			}
			if pulse == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no pulse running")
				return nil
			}
			return printJSON(cmd, pulse)
		},
	}

	pause := currentPulseCmd(opts, "pause", "Pause the current pulse", func(cmd *cobra.Command, c *client.APIClient, id string) (*models.Pulse, error) {
		return c.PausePulse(cmd.Context(), id)
	})
	resume := currentPulseCmd(opts, "resume", "Resume the current pulse", func(cmd *cobra.Command, c *client.APIClient, id string) (*models.Pulse, error) {
		return c.ResumePulse(cmd.Context(), id)
	})

	stop := currentPulseCmd(opts, "stop", "Stop the current pulse", func(cmd *cobra.Command, c *client.APIClient, id string) (*models.Pulse, error) {
		req := models.StopPulseRequest{}
		if cmd.Flags().Changed("notes") {
			req.Notes = &notes
		}
		return c.StopPulse(cmd.Context(), id, req)
	})
	stop.Flags().StringVar(&notes, "notes", "", "Replace the pulse notes")

	addBreak := currentPulseCmd(opts, "break", "Record a manual break on the current pulse", func(cmd *cobra.Command, c *client.APIClient, id string) (*models.Pulse, error) {
		return c.AddBreak(cmd.Context(), id, models.AddBreakRequest{Reason: reason, Duration: minutes})
	})
	addBreak.Flags().StringVar(&reason, "reason", "", "Why the break was taken")
	addBreak.Flags().IntVar(&minutes, "minutes", 0, "Break length in minutes")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print analytics for a period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.build().Summary(cmd.Context(), period, compare)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	summary.Flags().StringVar(&period, "period", "week", "today, week, month or year")
	summary.Flags().BoolVar(&compare, "compare", false, "Include the previous period")

	cmd.AddCommand(start, status, pause, resume, stop, addBreak, summary)
	return cmd
}

// currentPulseCmd builds a command that acts on the caller's current pulse.
func currentPulseCmd(opts *clientOptions, use, short string, act func(*cobra.Command, *client.APIClient, string) (*models.Pulse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := opts.build()
			current, err := c.CurrentPulse(cmd.Context())
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("no pulse running")
			}
			pulse, err := act(cmd, c, current.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd, pulse)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
