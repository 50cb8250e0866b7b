package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"depscout/internal/app"
)

type locateOptions struct {
	Machine    string
	Candidates []string
	SearchDirs []string
}

func newLocateCommand() *cobra.Command {
	opts := locateOptions{}
	cmd := &cobra.Command{
		Use:   "locate <name>",
		Short: "Show where a build tool would be found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.Machine, "machine", "host", "Machine to locate for (build, host)")
	cmd.Flags().StringSliceVar(&opts.Candidates, "candidates", nil, "Alternative basenames to probe")
	cmd.Flags().StringSliceVar(&opts.SearchDirs, "search-dirs", nil, "Directories searched before PATH")
	return cmd
}

func runLocate(ctx context.Context, cmd *cobra.Command, name string, opts locateOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Locate(ctx, app.LocateRequest{
		Name:       name,
		Machine:    resolveString(cmd, opts.Machine, "machine", "machine"),
		Candidates: opts.Candidates,
		SearchDirs: opts.SearchDirs,
	})
	if err != nil {
		return err
	}
	if !result.Found {
		fmt.Printf("%s: not found (probed %s)\n", name, strings.Join(result.Probed, ", "))
		return nil
	}
	fmt.Printf("%s: %s\n", name, strings.Join(result.Command, " "))
	return nil
}
