// Command schoolctl runs maintenance tasks against the configured record store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"udaan_go/config"
	"udaan_go/database"
	"udaan_go/database/seeders"
	"udaan_go/services"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("schoolctl failed")
		os.Exit(1)
	}
}

// app is built lazily so --help works without a store.
type app struct {
	svc   *services.Container
	conns *database.Connections
}

func (a *app) open(ctx context.Context) (*services.Container, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	config.LoadConfig()
	store, conns, err := database.Open(config.AppConfig)
	if err != nil {
		return nil, errors.Wrap(err, "opening record store")
	}
	a.conns = conns
	a.svc = services.NewContainer(ctx, config.AppConfig, store, conns)
	return a.svc, nil
}

func (a *app) close() {
	a.conns.Close()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Udaan school administration tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.AddCommand(
		seedCmd(a),
		backupCmd(a),
		restoreCmd(a),
		exportCmd(a),
		feesCmd(a),
	)
	return root
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo students, teachers and payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return seeders.SeedAll(cmd.Context(), seeders.Services{
				Students: svc.Students,
				Teachers: svc.Teachers,
				Fees:     svc.Fees,
			})
		},
	}
}

func backupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of every collection to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			info, err := svc.Backups.Backup(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
}

func restoreCmd(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore every collection from an S3 backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			info, err := svc.Backups.Restore(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key of the backup archive")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export directories and ledgers to files",
	}

	var format, out string
	students := &cobra.Command{
		Use:   "students",
		Short: "Export the student directory as csv or xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = "students_export." + format
			}
			switch format {
			case "csv":
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				n, err := svc.Exports.StudentsCSV(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d students to %s\n", n, out)
				return nil
			case "xlsx":
				buf, err := svc.Exports.StudentsXLSX(cmd.Context())
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			default:
				return errors.Errorf("unknown format %q (csv, xlsx)", format)
			}
		},
	}
	students.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	students.Flags().StringVar(&out, "out", "", "output file")

	var feesOut, year string
	fees := &cobra.Command{
		Use:   "fees",
		Short: "Export the fee ledger and transactions as xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			buf, err := svc.Exports.FeesXLSX(cmd.Context(), year)
			if err != nil {
				return err
			}
			if err := os.WriteFile(feesOut, buf.Bytes(), 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", feesOut)
			return nil
		},
	}
	fees.Flags().StringVar(&feesOut, "out", "fees_export.xlsx", "output file")
	fees.Flags().StringVar(&year, "year", "", "academic year (default: current)")

	cmd.AddCommand(students, fees)
	return cmd
}

func feesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Fee ledger reports",
	}

	var year string
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print expected, collected and pending revenue",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Fees.Summary(cmd.Context(), year)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	summary.Flags().StringVar(&year, "year", "", "academic year (default: current)")

	cmd.AddCommand(summary)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
