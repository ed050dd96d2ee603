package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	apiapp "github.com/steveire/grantlee/internal/api/app"
	"github.com/steveire/grantlee/internal/domain"
	"github.com/steveire/grantlee/internal/locale"
	"github.com/steveire/grantlee/internal/ports"
	"github.com/steveire/grantlee/internal/usecase/translator"
)

func promptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage the prompt templates sent to providers",
	}
	cmd.AddCommand(promptListCommand(), promptSetCommand(), promptPreviewCommand())
	return cmd
}

func promptListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				ts, err := a.Prompts.List(ctx)
				if err != nil {
					return err
				}
				for _, t := range ts {
					printf(cmd, "%d\t%s\t%d\t%s\t%s\t%d bytes\n", t.ID, t.Scope, cast.ToInt64(t.RefID), t.Type, t.Role, len(t.Body))
				}
				return nil
			})
		},
	}
}

func promptSetCommand() *cobra.Command {
	var scope, typ, role, provider string
	cmd := &cobra.Command{
		Use:   "set FILE",
		Short: "Store a prompt template",
		Long: `set stores a template overriding a builtin prompt. The body may extend
the builtin one with {% extends "builtin/<type>/<role>" %}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read prompt")
			}
			return withApp(cmd, func(ctx context.Context, a *App) error {
				req := apiapp.SetPromptRequest{Scope: scope, Type: typ, Role: role, Body: string(body)}
				if scope == domain.ScopeProvider {
					p, err := a.Providers.Resolve(ctx, provider)
					if err != nil {
						return err
					}
					req.RefID = &p.ID
				}
				t, err := a.Prompts.Set(ctx, req)
				if err != nil {
					return err
				}
				printf(cmd, "prompt %d %s/%s/%s\n", t.ID, t.Scope, t.Type, t.Role)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&scope, "scope", domain.ScopeGlobal, "global or provider")
	f.StringVar(&provider, "provider", "", "provider for the provider scope")
	f.StringVar(&typ, "type", domain.PromptTranslateSingle, "translate_single or translate_plural")
	f.StringVar(&role, "role", domain.RoleSystem, "system or user")
	return cmd
}

func promptPreviewCommand() *cobra.Command {
	var data ports.PromptData
	var typ, role, provider string
	cmd := &cobra.Command{
		Use:   "preview TEXT",
		Short: "Render the effective prompt for a sample message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data.Text = args[0]
			data.Placeholders = translator.Protected(data.Text)
			data.Numerus = typ == domain.PromptTranslatePlural
			if data.Numerus && len(data.Categories) == 0 {
				l, err := locale.Lookup(data.TgtLang)
				if err != nil {
					return err
				}
				data.Categories = l.Categories()
			}
			return withApp(cmd, func(ctx context.Context, a *App) error {
				var ref *int64
				if provider != "" {
					p, err := a.Providers.Resolve(ctx, provider)
					if err != nil {
						return err
					}
					ref = &p.ID
				}
				out, err := a.Prompts.Preview(ctx, ref, typ, role, data)
				if err != nil {
					return err
				}
				printf(cmd, "%s\n", out)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&typ, "type", domain.PromptTranslateSingle, "translate_single or translate_plural")
	f.StringVar(&role, "role", domain.RoleSystem, "system or user")
	f.StringVar(&provider, "provider", "", "provider whose overrides apply")
	f.StringVar(&data.SrcLang, "source-lang", "en", "source language")
	f.StringVar(&data.TgtLang, "target-lang", "de_DE", "target language")
	f.StringVar(&data.Comment, "comment", "", "disambiguation comment")
	f.StringSliceVar(&data.Categories, "categories", nil, "plural categories (default: the target language's)")
	return cmd
}
