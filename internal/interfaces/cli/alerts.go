package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/bootstrap"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// NewAlertsCmd builds the alerts command group: list a tenant's alerts and
// drive the alert lifecycle (acknowledge, resolve, false-positive).
func NewAlertsCmd(opts *RootOptions) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Work the alert queue",
	}

	var (
		listPage     int
		listPageSize int
		actor        string
		notes        string
	)

	listCmd := &cobra.Command{
		Use:   "list <tenant-id>",
		Short: "List a tenant's alerts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAlertManager(cmd.Context(), opts, func(ctx context.Context, mgr *monitoring.AlertManager) error {
				alerts, pagination, err := mgr.ListAlerts(ctx, common.ID(args[0]), listPage, listPageSize)
				if err != nil {
					return err
				}
				result := struct {
					Alerts     []*monitoring.Alert      `json:"alerts"`
					Pagination *common.PaginationResult `json:"pagination"`
				}{alerts, pagination}
				return printResult(opts, result, func() string { return formatAlertsText(alerts, pagination) })
			})
		},
	}
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 50, "alerts per page")

	transition := func(use, short string, apply func(ctx context.Context, mgr *monitoring.AlertManager, id common.ID) (*monitoring.Alert, error)) *cobra.Command {
		cmd := &cobra.Command{
			Use:   use + " <alert-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAlertManager(cmd.Context(), opts, func(ctx context.Context, mgr *monitoring.AlertManager) error {
					alert, err := apply(ctx, mgr, common.ID(args[0]))
					if err != nil {
						return err
					}
					return printResult(opts, alert, func() string {
						return fmt.Sprintf("alert %s is now %s\n", alert.ID, alert.Status)
					})
				})
			},
		}
		cmd.Flags().StringVar(&actor, "actor", "", "acting operator identifier (required)")
		cmd.Flags().StringVar(&notes, "notes", "", "note to append to the alert")
		_ = cmd.MarkFlagRequired("actor")
		return cmd
	}

	alertsCmd.AddCommand(
		listCmd,
		transition("ack", "Acknowledge an open alert",
			func(ctx context.Context, mgr *monitoring.AlertManager, id common.ID) (*monitoring.Alert, error) {
				return mgr.Acknowledge(ctx, id, actor, notes)
			}),
		transition("resolve", "Resolve an open or acknowledged alert",
			func(ctx context.Context, mgr *monitoring.AlertManager, id common.ID) (*monitoring.Alert, error) {
				return mgr.Resolve(ctx, id, actor, notes)
			}),
		transition("false-positive", "Close an alert as a false positive",
			func(ctx context.Context, mgr *monitoring.AlertManager, id common.ID) (*monitoring.Alert, error) {
				return mgr.MarkFalsePositive(ctx, id, actor, notes)
			}),
	)
	return alertsCmd
}

// withAlertManager opens the runtime, builds the engine, and runs fn under
// the global timeout.
func withAlertManager(parent context.Context, opts *RootOptions, fn func(ctx context.Context, mgr *monitoring.AlertManager) error) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	engine, err := bootstrap.BuildEngine(rt.Config, rt.Postgres, rt.Redis, rt.Producer, nil, rt.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()
	return fn(ctx, engine.AlertManager)
}

func formatAlertsText(alerts []*monitoring.Alert, pagination *common.PaginationResult) string {
	if len(alerts) == 0 {
		return "no alerts\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-24s %-24s %-16s %-10s %-13s %s\n",
		"ALERT", "COUNTERPARTY", "CONDITION", "SEVERITY", "STATUS", "CREATED")
	for _, a := range alerts {
		fmt.Fprintf(&sb, "%-24s %-24s %-16s %-10s %-13s %s\n",
			a.ID, a.CounterpartyID, a.Condition, a.Severity.String(), a.Status.String(),
			a.CreatedAt.Format("2006-01-02 15:04"))
	}
	if pagination != nil {
		fmt.Fprintf(&sb, "\npage %d of %d (%d alerts total)\n",
			pagination.Page, pagination.TotalPages, pagination.Total)
	}
	return sb.String()
}
