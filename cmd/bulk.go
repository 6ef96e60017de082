package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/jobs"
	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/tabular"
)

var (
	bulkInput       string
	bulkOutput      string
	bulkConcurrency int
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Process a CSV or XLSX file of restaurants and write the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bulkInput == "" {
			return eris.New("--input is required")
		}
		if bulkConcurrency > 0 {
			cfg.Batch.Concurrency = bulkConcurrency
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "bulk")
		if err != nil {
			return err
		}
		defer env.Close()

		return runBulk(ctx, env.Jobs, bulkInput, bulkOutput, cmd.ErrOrStderr())
	},
}

// runBulk submits every row of input as one job, reports terminal updates to
// progress, and writes the export to output. An empty output writes
// swiggy_results.csv next to the input.
func runBulk(ctx context.Context, o *jobs.Orchestrator, input, output string, progress io.Writer) error {
	if output == "" {
		output = filepath.Join(filepath.Dir(input), tabular.ExportName+".csv")
	}
	format, err := tabular.FormatOf(output)
	if err != nil {
		return eris.Wrap(err, "bulk: output")
	}

	f, err := os.Open(input)
	if err != nil {
		return eris.Wrap(err, "bulk: open input")
	}
	tbl, err := tabular.Parse(filepath.Base(input), f)
	_ = f.Close()
	if err != nil {
		return err
	}
	entities, err := tabular.Entities(tbl)
	if err != nil {
		return err
	}

	job, err := o.Submit(ctx, tbl.Columns, entities)
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("job_id", job.ID))
	log.Info("bulk: job submitted", zap.Int("items", len(job.Items)))

	sub, err := o.Events(job.ID)
	if err != nil {
		return err
	}

	total, done := len(job.Items), 0
	counts := make(map[string]int)
	for {
		ev, err := sub.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return eris.Wrap(err, "bulk: wait for job")
		}
		if ev.Data == nil || !ev.Data.Terminal {
			continue
		}
		done++
		u := ev.Data
		counts[u.Status]++
		fmt.Fprintf(progress, "[%d/%d] %s: %s\n", done, total, itemName(job, u.ID), describe(u))
	}

	out, err := o.Export(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := writeExport(output, format, out); err != nil {
		return err
	}

	fmt.Fprintf(progress, "wrote %d rows to %s (completed %d, failed %d, partial %d, error %d)\n",
		len(out.Rows), output,
		counts[model.EventStatusCompleted], counts[model.EventStatusFailed],
		counts[model.EventStatusPartialError], counts[model.EventStatusError])
	return nil
}

func itemName(job *jobs.Job, id string) string {
	for _, it := range job.Items {
		if it.ID == id {
			return it.Entity.Name
		}
	}
	return id
}

func describe(u *model.Update) string {
	switch {
	case u.DineoutOnly:
		return "Dineout Only"
	case u.Error != "":
		return u.Status + " (" + u.Error + ")"
	default:
		return u.Status
	}
}

func writeExport(path string, format tabular.Format, t *tabular.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "bulk: create output")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = eris.Wrap(cerr, "bulk: close output")
		}
	}()
	return tabular.Write(f, format, t)
}

func init() {
	bulkCmd.Flags().StringVar(&bulkInput, "input", "", "CSV or XLSX file with Restaurant Name and Location columns (required)")
	bulkCmd.Flags().StringVar(&bulkOutput, "output", "", "output file, .csv or .xlsx (default swiggy_results.csv next to the input)")
	bulkCmd.Flags().IntVar(&bulkConcurrency, "concurrency", 0, "items in flight (default from config)")
	rootCmd.AddCommand(bulkCmd)
}
