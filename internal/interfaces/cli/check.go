package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/turtacn/KYB-Sentinel/internal/bootstrap"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// NewCheckNowCmd builds the check-now command: one immediate check cycle for
// one counterparty, subject to the same per-counterparty exclusion as
// scheduled cycles.
func NewCheckNowCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-now <counterparty-id>",
		Short: "Run one immediate check cycle for a counterparty",
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

			id := common.ID(args[0])
			if err := engine.Orchestrator.RunCheckNow(ctx, id); err != nil {
				if errors.IsCode(err, errors.ErrCodeCycleInProgress) {
					printSuccess("check cycle already in flight for %s, nothing to do", id)
					return nil
				}
				return err
			}
			printSuccess("check cycle completed for %s", id)
			return nil
		},
	}
}
