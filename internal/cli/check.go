package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkgresolve/internal/app"
	"pkgresolve/internal/core"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run a frozen-mode resolution against the existing lockfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Check(ctx, app.CheckRequest{
		Production: resolveBool(cmd, service.Config.Production, "production", "production"),
	})
	if err != nil {
		return core.NewConstraintError("lockfile is out of date: "+core.ErrorMessage(err), err)
	}
	if result.WouldChange {
		return core.NewConstraintError(fmt.Sprintf(
			"lockfile would change: %d added, %d removed, %d changed",
			len(result.Diff.Added), len(result.Diff.Removed), len(result.Diff.Changed)), nil)
	}
	fmt.Println("lockfile satisfies every dependency")
	return nil
}
