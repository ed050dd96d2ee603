package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	apiapp "github.com/steveire/grantlee/internal/api/app"
	"github.com/steveire/grantlee/internal/domain"
)

func projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage the translation workbench",
	}
	cmd.AddCommand(
		projectCreateCommand(),
		projectListCommand(),
		projectDeleteCommand(),
		projectLocalesCommand(),
		projectImportCommand(),
		projectFilesCommand(),
		projectUnitsCommand(),
		projectSetCommand(),
		projectExportCommand(),
		projectTranslateCommand(),
	)
	return cmd
}

func projectCreateCommand() *cobra.Command {
	var sourceLang, tsContext string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Create(ctx, args[0], sourceLang, tsContext)
				if err != nil {
					return err
				}
				printf(cmd, "project %d %s (%s)\n", p.ID, p.Name, p.SourceLang)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceLang, "source-lang", "en", "language of the source texts")
	cmd.Flags().StringVar(&tsContext, "context", "", "TS context of template strings")
	return cmd
}

func projectListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				ps, err := a.Projects.List(ctx)
				if err != nil {
					return err
				}
				for _, p := range ps {
					locs, err := a.Projects.ListLocales(ctx, p.ID)
					if err != nil {
						return err
					}
					names := make([]string, 0, len(locs))
					for _, l := range locs {
						names = append(names, l.Locale)
					}
					printf(cmd, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.SourceLang, strings.Join(names, ","))
				}
				return nil
			})
		},
	}
}

func projectDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PROJECT",
		Short: "Delete a project with its files and translations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				return a.Projects.Delete(ctx, p.ID)
			})
		},
	}
}

func projectLocalesCommand() *cobra.Command {
	var add []string
	cmd := &cobra.Command{
		Use:   "locales PROJECT",
		Short: "List or add target languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				for _, l := range add {
					if _, err := a.Projects.AddLocale(ctx, p.ID, l); err != nil {
						return err
					}
				}
				locs, err := a.Projects.ListLocales(ctx, p.ID)
				if err != nil {
					return err
				}
				for _, l := range locs {
					printf(cmd, "%s\n", l.Locale)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "locales to add")
	return cmd
}

func projectImportCommand() *cobra.Command {
	var format, locale string
	cmd := &cobra.Command{
		Use:     "import PROJECT FILE...",
		Short:   "Import catalogs into a project",
		Example: "  grantlee project import shop translations/shop_de_DE.ts",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				for _, path := range args[1:] {
					res, err := a.Import.ImportPath(ctx, p.ID, filepath.ToSlash(path), format, locale)
					if err != nil {
						return err
					}
					printf(cmd, "file %d %s: %d units, %d translations (%s)\n", res.FileID, path, res.Units, res.Translations, res.Locale)
					if res.Removed > 0 {
						printf(cmd, "  %d units removed\n", res.Removed)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format (default by extension)")
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "language of the translations (default from the file)")
	return cmd
}

func projectFilesCommand() *cobra.Command {
	var remove string
	cmd := &cobra.Command{
		Use:   "files PROJECT",
		Short: "List or remove imported files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if remove != "" {
					f, err := a.Files.Resolve(ctx, p.ID, remove)
					if err != nil {
						return err
					}
					return a.Files.Delete(ctx, f.ID)
				}
				files, err := a.Files.ListByProject(ctx, p.ID)
				if err != nil {
					return err
				}
				for _, f := range files {
					printf(cmd, "%d\t%s\t%s\t%s\n", f.ID, f.Path, f.Format, f.Locale)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&remove, "remove", "", "file ID or path to remove")
	return cmd
}

func projectUnitsCommand() *cobra.Command {
	var locale string
	cmd := &cobra.Command{
		Use:   "units PROJECT FILE",
		Short: "List the messages of a file with their translations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				f, err := resolveFile(ctx, a, args[0], args[1])
				if err != nil {
					return err
				}
				if locale == "" {
					locale = f.Locale
				}
				texts, err := a.Translations.ListUnitTexts(ctx, f.ID, locale)
				if err != nil {
					return err
				}
				for _, t := range texts {
					status := t.Status
					if status == "" {
						status = "-"
					}
					printf(cmd, "%d\t%s\t%q\t%s\t%q\n", t.UnitID, t.Context, t.Source, status, t.Forms)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "locale (default: the file's)")
	return cmd
}

func projectSetCommand() *cobra.Command {
	var locale, status string
	cmd := &cobra.Command{
		Use:     "set UNIT FORM...",
		Short:   "Set the translation of one message by hand",
		Example: "  grantlee project set 12 -l de_DE '%n Person' '%n Personen'",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cast.ToInt64E(args[0])
			if err != nil {
				return errors.Errorf("unit must be an ID: %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Translations.Upsert(ctx, apiapp.UpsertTranslationRequest{UnitID: id, Locale: locale, Forms: args[1:], Status: status})
			})
		},
	}
	cmd.Flags().StringVarP(&locale, "locale", "l", "", "locale")
	cmd.Flags().StringVar(&status, "status", domain.StatusTranslated, "translated or unfinished")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

func projectExportCommand() *cobra.Command {
	var locales []string
	var format, outDir string
	cmd := &cobra.Command{
		Use:     "export PROJECT FILE",
		Short:   "Write a file's translations back out",
		Example: "  grantlee project export shop shop_de_DE.ts -l de_DE,fr_FR --out-dir translations",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				f, err := resolveFile(ctx, a, args[0], args[1])
				if err != nil {
					return err
				}
				if len(locales) == 0 {
					locales = []string{f.Locale}
				}
				if len(locales) > 1 && outDir == "" {
					return errors.New("--out-dir is required for several locales")
				}
				for _, loc := range locales {
					res, err := a.Export.ExportFile(ctx, apiapp.ExportFileRequest{FileID: f.ID, Locale: loc, OverrideFormat: format})
					if err != nil {
						return err
					}
					path := ""
					if outDir != "" {
						path = filepath.Join(outDir, res.Filename)
					}
					if err := writeOut(cmd, path, res.Content); err != nil {
						return err
					}
					if path != "" {
						printStats(cmd, path, res.Stats)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&locales, "locale", "l", nil, "locales to export (default: the file's)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (default: the imported one)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (default stdout)")
	return cmd
}

func projectTranslateCommand() *cobra.Command {
	var (
		locales  []string
		provider string
		model    string
		units    []int64
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "translate PROJECT FILE",
		Short: "Fill missing translations with an LLM provider",
		Long: `translate starts a background job asking the provider for every message
of the file that has no complete translation in the given locales. Plural
messages get one form per plural category of the locale. Results are stored
as machine translations.`,
		Example: "  grantlee project translate shop shop_de_DE.ts -l de_DE --provider local",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				f, err := resolveFile(ctx, a, args[0], args[1])
				if err != nil {
					return err
				}
				prov, err := a.Providers.Resolve(ctx, provider)
				if err != nil {
					return err
				}
				if len(locales) == 0 {
					locales = []string{f.Locale}
				}
				var job apiapp.StartJobResponse
				if len(units) > 0 {
					job, err = a.Jobs.StartTranslateUnits(ctx, apiapp.StartTranslateUnitsRequest{
						ProjectID: f.ProjectID, ProviderID: prov.ID, UnitIDs: units, Locales: locales, Model: model, Force: force,
					})
				} else {
					job, err = a.Jobs.StartTranslateFile(ctx, apiapp.StartTranslateFileRequest{
						ProjectID: f.ProjectID, ProviderID: prov.ID, FileID: f.ID, Locales: locales, Model: model, Force: force,
					})
				}
				if err != nil {
					return err
				}
				printf(cmd, "job %d started with %s\n", job.JobID, prov.Name)
				// The job dies with the process, so stay until it ends.
				j, err := a.Jobs.Wait(ctx, job.JobID)
				if err != nil {
					a.Jobs.Cancel(job.JobID)
					if j, err = a.Jobs.Wait(context.Background(), job.JobID); err != nil {
						return err
					}
				}
				printf(cmd, "job %d %s: %d/%d\n", j.ID, j.Status, j.Progress, j.Total)
				if j.Status == domain.JobFailed {
					return errors.Errorf("job %d failed; see grantlee job show %d", j.ID, j.ID)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&locales, "locale", "l", nil, "target locales (default: the file's)")
	f.StringVar(&provider, "provider", "", "provider name or ID (default: the default provider)")
	f.StringVar(&model, "model", "", "model (default: the provider's)")
	f.Int64SliceVar(&units, "unit", nil, "translate only these unit IDs")
	f.BoolVar(&force, "force", false, "retranslate messages that are already translated")
	return cmd
}

func resolveFile(ctx context.Context, a *App, project, file string) (*domain.File, error) {
	p, err := a.Projects.Resolve(ctx, project)
	if err != nil {
		return nil, err
	}
	return a.Files.Resolve(ctx, p.ID, filepath.ToSlash(file))
}
