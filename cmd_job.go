package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

func jobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect translation jobs",
	}
	cmd.AddCommand(jobListCommand(), jobShowCommand(), jobDeleteCommand())
	return cmd
}

func jobListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *App) error {
				js, err := a.Jobs.List(ctx, limit)
				if err != nil {
					return err
				}
				for _, j := range js {
					printf(cmd, "%d\t%s\t%s\t%d/%d\n", j.ID, j.Type, j.Status, j.Progress, j.Total)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of jobs")
	return cmd
}

func jobShowCommand() *cobra.Command {
	var logs int
	var items bool
	cmd := &cobra.Command{
		Use:   "show JOB",
		Short: "Show a job with its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := jobID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *App) error {
				j, err := a.Jobs.Get(ctx, id)
				if err != nil {
					return err
				}
				printf(cmd, "job %d %s %s %d/%d\n", j.ID, j.Type, j.Status, j.Progress, j.Total)
				if items {
					its, err := a.Jobs.Items(ctx, id)
					if err != nil {
						return err
					}
					for _, it := range its {
						printf(cmd, "  item %d unit=%d locale=%s %s %s\n", it.ID, cast.ToInt64(it.UnitID), cast.ToString(it.Locale), it.Status, it.Error)
					}
				}
				lines, err := a.Jobs.Logs(ctx, id, logs)
				if err != nil {
					return err
				}
				for _, l := range lines {
					printf(cmd, "  %s %-5s %s\n", l.Time, l.Level, l.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&logs, "logs", "n", 50, "number of log lines")
	cmd.Flags().BoolVar(&items, "items", false, "list job items")
	return cmd
}

func jobDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete JOB",
		Short: "Delete a finished job with its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := jobID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Jobs.Delete(ctx, id)
			})
		},
	}
}

func jobID(s string) (int64, error) {
	id, err := cast.ToInt64E(s)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("job must be an ID: %q", s)
	}
	return id, nil
}
