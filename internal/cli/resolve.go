package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"depscout/internal/app"
)

type resolveOptions struct {
	Version         []string
	Method          string
	Machine         string
	Language        string
	Modules         []string
	OptionalModules []string
	Components      []string
	IncludeType     string
	Tools           []string
	NotFoundMessage string
	Required        bool
	Static          bool
	JSON            bool
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve one external dependency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Version, "version", nil, "Version constraints (e.g. '>=1.2', '<2.0')")
	cmd.Flags().StringVar(&opts.Method, "method", "", "Detection method (auto, pkg-config, config-tool, cmake, extraframework, system)")
	cmd.Flags().StringVar(&opts.Machine, "machine", "host", "Machine to resolve for (build, host)")
	cmd.Flags().StringVar(&opts.Language, "language", "", "Language the dependency is for")
	cmd.Flags().StringSliceVar(&opts.Modules, "modules", nil, "Required cmake modules")
	cmd.Flags().StringSliceVar(&opts.OptionalModules, "optional-modules", nil, "Optional cmake modules")
	cmd.Flags().StringSliceVar(&opts.Components, "components", nil, "find_package components")
	cmd.Flags().StringVar(&opts.IncludeType, "include-type", "preserve", "Include flag style (preserve, system, non-system)")
	cmd.Flags().StringSliceVar(&opts.Tools, "tools", nil, "Config tool basenames to try")
	cmd.Flags().StringVar(&opts.NotFoundMessage, "not-found-message", "", "Extra message shown when the dependency is missing")
	cmd.Flags().BoolVar(&opts.Required, "required", true, "Fail when the dependency is not found")
	cmd.Flags().BoolVar(&opts.Static, "static", false, "Prefer static libraries")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Emit the resolution as JSON")

	_ = viper.BindPFlag("method", cmd.Flags().Lookup("method"))
	_ = viper.BindPFlag("machine", cmd.Flags().Lookup("machine"))
	_ = viper.BindPFlag("include_type", cmd.Flags().Lookup("include-type"))
	_ = viper.BindPFlag("required", cmd.Flags().Lookup("required"))
	_ = viper.BindPFlag("static", cmd.Flags().Lookup("static"))

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, name string, opts resolveOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Resolve(ctx, app.ResolveRequest{
		Name:            name,
		Version:         opts.Version,
		Method:          resolveString(cmd, opts.Method, "method", "method"),
		Machine:         resolveString(cmd, opts.Machine, "machine", "machine"),
		Language:        opts.Language,
		Modules:         opts.Modules,
		OptionalModules: opts.OptionalModules,
		Components:      opts.Components,
		IncludeType:     resolveString(cmd, opts.IncludeType, "include_type", "include-type"),
		Tools:           opts.Tools,
		NotFoundMessage: opts.NotFoundMessage,
		Required:        resolveBool(cmd, opts.Required, "required", "required"),
		Static:          resolveBool(cmd, opts.Static, "static", "static"),
	})
	if err != nil {
		return err
	}

	dep := result.Dependency
	if opts.JSON {
		payload := map[string]any{
			"name":         dep.Name,
			"found":        dep.Found,
			"method":       dep.Method,
			"version":      dep.Version,
			"compile_args": dep.EffectiveCompileArgs(),
			"link_args":    dep.LinkArgs,
			"variables":    dep.Variables,
			"identity":     result.Identity,
		}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if !dep.Found {
		fmt.Printf("%s: not found\n", name)
		return nil
	}
	fmt.Printf("%s: found %s (%s)\n", name, dep.Version, dep.Method)
	for _, arg := range dep.EffectiveCompileArgs() {
		fmt.Printf("  compile: %s\n", arg)
	}
	for _, arg := range dep.LinkArgs {
		fmt.Printf("  link: %s\n", arg)
	}
	return nil
}
