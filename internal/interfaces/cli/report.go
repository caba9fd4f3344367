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

// NewReportCmd builds the report command: the tenant-level monitoring
// overview, rendered as text or JSON.
func NewReportCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report <tenant-id>",
		Short: "Print a tenant's monitoring report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			engine, err := bootstrap.BuildEngine(rt.Config, rt.Postgres, rt.Redis, rt.Producer, nil, rt.Logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			report, err := engine.Reports.GetMonitoringReport(ctx, common.ID(args[0]))
			if err != nil {
				return err
			}
			return printResult(opts, report, func() string { return formatReportText(report) })
		},
	}
}

// formatReportText renders the report for a terminal.
func formatReportText(r *monitoring.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Monitoring report for tenant %s (generated %s)\n",
		r.TenantID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "  Counterparties: %d   High risk: %d   Open alerts: %d\n\n",
		r.TotalCounterparties, r.HighRiskCount, r.OpenAlertCount)

	if len(r.Counterparties) > 0 {
		sb.WriteString("Counterparties:\n")
		for _, cp := range r.Counterparties {
			status := "ok"
			if cp.LastCycleFailed {
				status = "CHECKS FAILING"
			} else if cp.LastSuccessfulCheckAt == nil {
				status = "never checked"
			}
			fmt.Fprintf(&sb, "  %-24s %-28s score %5.1f  %-8s %s\n",
				cp.ID, truncate(cp.Name, 28), cp.RiskScore, cp.RiskLevel, status)
		}
		sb.WriteString("\n")
	}

	if len(r.RecentChanges) > 0 {
		fmt.Fprintf(&sb, "Recent changes (%d):\n", len(r.RecentChanges))
		for _, ch := range r.RecentChanges {
			fmt.Fprintf(&sb, "  %s  %s: %q -> %q\n",
				ch.DetectedAt.Format("2006-01-02 15:04"), ch.Field, truncate(ch.OldValue, 32), truncate(ch.NewValue, 32))
		}
		sb.WriteString("\n")
	}

	if len(r.RecentAlerts) > 0 {
		fmt.Fprintf(&sb, "Recent alerts (%d):\n", len(r.RecentAlerts))
		for _, a := range r.RecentAlerts {
			fmt.Fprintf(&sb, "  %-24s %-16s %-10s %-13s %s\n",
				a.ID, a.Condition, a.Severity.String(), a.Status.String(), truncate(a.Message, 48))
		}
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
