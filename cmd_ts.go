package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	apiapp "github.com/steveire/grantlee/internal/api/app"
	"github.com/steveire/grantlee/internal/catalog"
	"github.com/steveire/grantlee/internal/usecase/catalogs"
)

// errViolations makes the process exit non-zero after a report was printed.
var errViolations = errors.New("catalog validation failed")

func tsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ts",
		Short: "Work on Qt Linguist TS files",
	}
	cmd.AddCommand(tsExtractCommand(), tsValidateCommand(), tsStatsCommand(), tsDiffCommand(), tsMergeCommand(), tsExportCommand())
	return cmd
}

func catalogService() *catalogs.Service {
	s := catalogs.New(apiapp.NewDefaultExporterRegistry(), rt.log.Named("ts"))
	s.Workers = rt.cfg.Workers
	return s
}

func tsExtractCommand() *cobra.Command {
	var out, ctxName, lang, into string
	cmd := &cobra.Command{
		Use:   "extract GLOB...",
		Short: "Collect translatable strings from templates into a TS file",
		Long: `extract reads i18n, i18nc, i18np and i18ncp tags (and their _var forms)
and _("...") literals. With --merge the strings are folded into an existing
translated TS file instead of written as a fresh catalog.`,
		Example: "  grantlee ts extract 'templates/**/*.html' --merge translations/app_de_DE.ts -o translations/app_de_DE.ts",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := catalogs.Expand(args...)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.Errorf("no files match %s", strings.Join(args, " "))
			}
			svc := catalogService()
			c, err := svc.Extract(paths, ctxName)
			if err != nil {
				return err
			}
			cmd.PrintErrf("%d strings from %d templates\n", c.Messages(), len(paths))
			if into != "" {
				b, st, err := svc.MergeInto(into, c)
				if err != nil {
					return err
				}
				cmd.PrintErrf("kept %d, changed %d, added %d, obsolete %d, dropped %d\n",
					st.Kept, st.Changed, st.Added, st.Obsolete, st.Dropped)
				return writeOut(cmd, out, b)
			}
			c.Language = lang
			b, err := catalog.Marshal(c)
			if err != nil {
				return err
			}
			return writeOut(cmd, out, b)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&ctxName, "context", catalog.DefaultContext, "TS context of the extracted messages")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language of a fresh catalog")
	cmd.Flags().StringVar(&into, "merge", "", "existing TS file to merge the strings into")
	return cmd
}

func tsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate GLOB...",
		Short:   "Check TS files for plural, status and uniqueness problems",
		Example: "  grantlee ts validate 'translations/**/*.ts'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := catalogs.Expand(args...)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.Errorf("no files match %s", strings.Join(args, " "))
			}
			reports, err := catalogService().Validate(cmd.Context(), paths)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range reports {
				switch {
				case r.Err != nil:
					failed++
					printf(cmd, "FAIL %s: %v\n", r.Path, r.Err)
				case !r.OK():
					failed++
					printf(cmd, "FAIL %s (%s): %d problem(s)\n", r.Path, r.Language, len(r.Violations))
					for _, v := range r.Violations {
						printf(cmd, "  %s\n", v.Error())
					}
				default:
					printf(cmd, "ok   %s (%s)\n", r.Path, r.Language)
				}
			}
			if failed > 0 {
				return errors.Wrapf(errViolations, "%d of %d files", failed, len(reports))
			}
			return nil
		},
	}
}

func tsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE...",
		Short: "Count translated, unfinished and plural messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				c, err := catalogs.Load(p)
				if err != nil {
					return err
				}
				printStats(cmd, p+" ("+c.Language+")", c.Stats())
			}
			return nil
		},
	}
}

func printStats(cmd *cobra.Command, title string, st catalog.Stats) {
	pct := 0
	if st.Total > 0 {
		pct = st.Translated * 100 / st.Total
	}
	printf(cmd, "%s: %d messages, %d translated (%d%%), %d unfinished, %d obsolete, %d plural\n",
		title, st.Total, st.Translated, pct, st.Unfinished, st.Obsolete, st.Numerus)
}

func tsDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff A B",
		Short: "List messages added, removed or changed from A to B",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := catalogs.Diff(args[0], args[1])
			if err != nil {
				return err
			}
			for _, ch := range changes {
				id := ch.Key.Source
				if ch.Key.Comment != "" {
					id += " (" + ch.Key.Comment + ")"
				}
				printf(cmd, "%-8s %s: %q\n", ch.Kind, ch.Context, id)
			}
			return nil
		},
	}
}

func tsMergeCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "merge EXISTING EXTRACTED",
		Short: "Fold a fresh extraction into a translated TS file",
		Long: `merge keeps translations whose message still exists, records old sources
for changed messages, adds new ones as unfinished and marks translated
messages that disappeared as obsolete.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, st, err := catalogService().Merge(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.PrintErrf("kept %d, changed %d, added %d, obsolete %d, dropped %d\n",
				st.Kept, st.Changed, st.Added, st.Obsolete, st.Dropped)
			return writeOut(cmd, out, b)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func tsExportCommand() *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Convert a TS file to another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, name, err := catalogService().Export(args[0], format)
			if err != nil {
				return err
			}
			if outDir == "" {
				return writeOut(cmd, "", b)
			}
			return writeOut(cmd, filepath.Join(outDir, name), b)
		},
	}
	formats := strings.Join(apiapp.NewDefaultExporterRegistry().Formats(), ", ")
	cmd.Flags().StringVarP(&format, "format", "f", "ts", "output format: "+formats)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "write into this directory under the suggested name")
	return cmd
}

// writeOut writes b to path, or to stdout when path is empty.
func writeOut(cmd *cobra.Command, path string, b []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "make output dir")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write output")
	}
	cmd.PrintErrf("wrote %s\n", path)
	return nil
}
