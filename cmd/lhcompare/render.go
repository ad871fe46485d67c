package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shyim/lighthouse-compare/internal/report"
)

func newRenderCmd() *cobra.Command {
	var (
		archivePath string
		outputPath  string
		at          string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the markdown report from an existing result archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := report.LoadArchive(archivePath)
			if err != nil {
				return err
			}

			ts := time.Now()
			if at != "" {
				ts, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return errors.Wrap(err, "invalid --at")
				}
			}

			md := report.Render(res, ts)
			if outputPath == "" || outputPath == "-" {
				_, err = cmd.OutOrStdout().Write([]byte(md))
				return err
			}
			return errors.Wrapf(os.WriteFile(outputPath, []byte(md), 0o644), "write %s", outputPath)
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "lighthouse-results.json", "result archive to read")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "report destination, - for stdout")
	cmd.Flags().StringVar(&at, "at", "", "report timestamp (RFC3339), defaults to now")
	return cmd
}
