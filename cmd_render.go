package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveire/grantlee/internal/adapters/localizer"
	"github.com/steveire/grantlee/internal/template"
	"github.com/steveire/grantlee/internal/usecase/codegen"
)

type renderOptions struct {
	templates    []string
	data         string
	catalogs     []string
	messages     []string
	sourceLang   string
	lang         string
	tsContext    string
	noAutoescape bool
	output       string
}

func (o *renderOptions) flags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.templates, "templates", "t", nil, "template directories (default from config)")
	f.StringVarP(&o.data, "data", "d", "", "context file (.json, .yaml or .toml)")
	f.StringSliceVar(&o.catalogs, "catalog", nil, "TS catalogs for the i18n tags (default from config)")
	f.StringSliceVar(&o.messages, "messages", nil, "go-i18n message files for the i18n tags")
	f.StringVar(&o.sourceLang, "source-lang", "en", "source language of go-i18n messages")
	f.StringVarP(&o.lang, "lang", "l", "", "language to render in (default: language of the first catalog)")
	f.StringVar(&o.tsContext, "context", "", "TS context of template strings (default GR_FILENAME)")
	f.BoolVar(&o.noAutoescape, "no-autoescape", false, "turn off HTML autoescaping")
	f.StringVarP(&o.output, "out", "o", "", "write to file instead of stdout")
}

func (o *renderOptions) engine() (*template.Engine, error) {
	dirs := o.templates
	if len(dirs) == 0 {
		dirs = rt.cfg.TemplateDirs
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	opts := []template.Option{
		template.WithLoader(template.NewFileSystemLoader(dirs...)),
		template.WithAutoescape(!o.noAutoescape),
		template.WithCache(rt.cfg.CacheSize),
		template.WithLogger(rt.log.Named("template")),
	}
	l, err := o.localizer()
	if err != nil {
		return nil, err
	}
	if l != nil {
		opts = append(opts, template.WithLocalizer(l))
	}
	return template.New(opts...), nil
}

func (o *renderOptions) localizer() (template.Localizer, error) {
	catalogs := o.catalogs
	if len(catalogs) == 0 && len(o.messages) == 0 && rt.cfg.Locale != "" {
		catalogs = []string{rt.cfg.Locale}
	}
	switch {
	case len(catalogs) > 0:
		cats, err := localizer.LoadCatalogs(catalogs...)
		if err != nil {
			return nil, err
		}
		lang := o.lang
		if lang == "" {
			lang = cats[0].Language
		}
		var opts []localizer.Option
		if o.tsContext != "" {
			opts = append(opts, localizer.WithContext(o.tsContext))
		}
		opts = append(opts, localizer.WithLogger(rt.log.Named("i18n")))
		return localizer.NewCatalog(lang, cats, opts...)
	case len(o.messages) > 0:
		if o.lang == "" {
			return nil, errors.New("--lang is required with --messages")
		}
		b, err := localizer.NewMessageBundle(o.sourceLang)
		if err != nil {
			return nil, err
		}
		if err := localizer.LoadMessageFiles(b, o.messages...); err != nil {
			return nil, err
		}
		return localizer.NewBundle(b, o.lang, rt.log.Named("i18n")), nil
	}
	return nil, nil
}

func renderCommand() *cobra.Command {
	o := new(renderOptions)
	cmd := &cobra.Command{
		Use:     "render [flags] NAME",
		Short:   "Render one template",
		Example: "  grantlee render -t templates -d person.yaml --catalog de_DE.ts page.html",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.engine()
			if err != nil {
				return err
			}
			data := map[string]any{}
			if o.data != "" {
				if data, err = codegen.LoadData(o.data); err != nil {
					return err
				}
			}
			out, err := e.Render(args[0], data)
			if err != nil {
				return err
			}
			if o.output == "" {
				_, err = cmd.OutOrStdout().Write([]byte(out))
				return err
			}
			if err := os.MkdirAll(filepath.Dir(o.output), 0o755); err != nil {
				return errors.Wrap(err, "make output dir")
			}
			return errors.Wrap(os.WriteFile(o.output, []byte(out), 0o644), "write output")
		},
	}
	o.flags(cmd)
	return cmd
}

func codegenCommand() *cobra.Command {
	o := new(renderOptions)
	cmd := &cobra.Command{
		Use:   "codegen [flags]",
		Short: "Render every template listed under \"files\" in the data file",
		Long: `codegen renders a set of templates into an output directory. The data
file lists them under "files", either as template names (NAME.tmpl writes
NAME) or as tables with template, output and data keys. Output names may
themselves be templates, such as "lib/{{ className|snakecase }}.rb".`,
		Example: "  grantlee codegen -t templates -d classes.yaml --out gen",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.data == "" {
				return errors.New("--data is required")
			}
			e, err := o.engine()
			if err != nil {
				return err
			}
			data, err := codegen.LoadData(o.data)
			if err != nil {
				return err
			}
			outDir := o.output
			if outDir == "" {
				outDir = "."
			}
			res, err := codegen.New(e, rt.log.Named("codegen")).Generate(data, outDir)
			if err != nil {
				return err
			}
			for _, r := range res {
				printf(cmd, "%s -> %s (%d bytes)\n", r.Template, r.Path, r.Bytes)
			}
			rt.log.Info("generated", zap.Int("files", len(res)), zap.String("out", outDir))
			return nil
		},
	}
	o.flags(cmd)
	cmd.Flags().Lookup("out").Usage = "output directory (default .)"
	return cmd
}
