package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkgresolve/internal/app"
)

func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve every dependency and write the lockfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	release, err := service.Mutex.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	result, err := service.Resolve(ctx, app.ResolveRequest{
		Production: resolveBool(cmd, service.Config.Production, "production", "production"),
		Flat:       resolveBool(cmd, service.Config.Flat, "flat", "flat"),
		Frozen:     resolveBool(cmd, service.Config.Frozen, "frozen", "frozen"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("resolved %s: %d packages\n", result.RootName, result.TotalCount)
	if len(result.Diff.Added) > 0 {
		fmt.Printf("  + %d added\n", len(result.Diff.Added))
	}
	if len(result.Diff.Removed) > 0 {
		fmt.Printf("  - %d removed\n", len(result.Diff.Removed))
	}
	if len(result.Diff.Changed) > 0 {
		fmt.Printf("  ~ %d changed\n", len(result.Diff.Changed))
	}
	for name, ranges := range result.Conflicts {
		fmt.Printf("  ! %s: could not reconcile %v under --flat\n", name, ranges)
	}
	return nil
}
