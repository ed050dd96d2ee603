package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/steveire/grantlee/internal/domain"
)

func providerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage LLM providers",
	}
	cmd.AddCommand(
		providerAddCommand(),
		providerListCommand(),
		providerUseCommand(),
		providerModelsCommand(),
		providerTestCommand(),
		providerCheckCommand(),
		providerDeleteCommand(),
	)
	return cmd
}

func providerAddCommand() *cobra.Command {
	var p domain.Provider
	var update bool
	cmd := &cobra.Command{
		Use:     "add NAME",
		Short:   "Add or update a provider",
		Example: "  grantlee provider add local --type ollama --model llama3.1\n  grantlee provider add cloud --type openrouter --api-key $KEY --model openai/gpt-4o-mini",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			return withApp(cmd, func(ctx context.Context, a *App) error {
				var (
					out *domain.Provider
					err error
				)
				if update {
					existing, rerr := a.Providers.Resolve(ctx, p.Name)
					if rerr != nil {
						return rerr
					}
					p.ID = existing.ID
					if p.Type == "" {
						p.Type = existing.Type
					}
					out, err = a.Providers.Update(ctx, p)
				} else {
					out, err = a.Providers.Create(ctx, p)
				}
				if err != nil {
					return err
				}
				printf(cmd, "provider %d %s (%s, %s)\n", out.ID, out.Name, out.Type, out.Model)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Type, "type", "", "openrouter or ollama")
	f.StringVar(&p.BaseURL, "base-url", "", "endpoint (default per type)")
	f.StringVar(&p.Model, "model", "", "default model")
	f.StringVar(&p.APIKey, "api-key", "", "API key")
	f.BoolVar(&update, "update", false, "update the provider with this name")
	return cmd
}

func providerListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				list, err := a.Providers.List(ctx)
				if err != nil {
					return err
				}
				def, _ := a.Providers.Resolve(ctx, "")
				for _, p := range list {
					mark := " "
					if def != nil && def.ID == p.ID {
						mark = "*"
					}
					printf(cmd, "%s %d\t%s\t%s\t%s\t%s\n", mark, p.ID, p.Name, p.Type, p.Model, p.APIKey)
				}
				return nil
			})
		},
	}
}

func providerUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use PROVIDER",
		Short: "Make a provider the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Providers.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				return a.Providers.SetDefault(ctx, p.ID)
			})
		},
	}
}

func providerModelsCommand() *cobra.Command {
	var cached bool
	cmd := &cobra.Command{
		Use:   "models [PROVIDER]",
		Short: "List the models a provider offers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Providers.Resolve(ctx, firstArg(args))
				if err != nil {
					return err
				}
				if cached {
					names, err := a.Providers.CachedModels(ctx, p.ID)
					if err != nil {
						return err
					}
					for _, n := range names {
						printf(cmd, "%s\n", n)
					}
					return nil
				}
				models, err := a.Providers.ListModels(ctx, p.ID)
				if err != nil {
					return err
				}
				for _, m := range models {
					printf(cmd, "%s\t%s\t%d\n", m.Name, m.Description, m.ContextTokens)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "print the names stored by the last listing")
	return cmd
}

func providerTestCommand() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "test [PROVIDER]",
		Short: "Translate a sample phrase with a provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Providers.Resolve(ctx, firstArg(args))
				if err != nil {
					return err
				}
				res, err := a.Providers.Test(ctx, p.ID, target)
				if err != nil {
					return err
				}
				if !res.Ok {
					return errors.Errorf("%s: %s", p.Name, res.Error)
				}
				printf(cmd, "%s: %s\n", p.Name, res.Translation)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&target, "locale", "l", "de_DE", "target locale")
	return cmd
}

func providerCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every provider endpoint answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Providers.Check(ctx)
				if err != nil {
					return err
				}
				failed := 0
				for _, h := range res {
					if h.Err != nil {
						failed++
						printf(cmd, "FAIL %s: %v\n", h.Name, h.Err)
						continue
					}
					printf(cmd, "ok   %s (%s)\n", h.Name, h.Latency.Round(time.Millisecond))
				}
				if failed > 0 {
					return errors.Errorf("%d of %d providers unreachable", failed, len(res))
				}
				return nil
			})
		},
	}
}

func providerDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PROVIDER",
		Short: "Delete a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Providers.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				return a.Providers.Delete(ctx, p.ID)
			})
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
