package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkgresolve/internal/app"
	"pkgresolve/internal/core"
)

func newWhyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "why <pattern>",
		Short: "Print the requester chain behind a resolved pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runWhy(ctx context.Context, pattern string) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Why(ctx, app.WhyRequest{Pattern: pattern})
	if err != nil {
		return err
	}
	if !result.Found {
		return core.NewUserError("pattern not found in resolution: "+pattern, nil)
	}
	fmt.Printf("%s@%s (level %d)\n", result.Name, result.Version, result.Level)
	for _, req := range result.Requests {
		fmt.Printf("  requested by %s at depth %d\n", req.Pattern, req.Depth)
	}
	return nil
}
