package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"labreport/api/internal/client"
	"labreport/api/internal/config"
	"labreport/api/internal/export"
	"labreport/api/internal/localstore"
	"labreport/api/internal/report"
	"labreport/api/internal/workspace"
)

// clientCmd drives a notebook session from the terminal: the same local
// backup, autosave reconciliation and submit flow the editor uses.
func clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Edit and submit the local lab report",
	}
	pf := cmd.PersistentFlags()
	pf.String("server-url", "http://localhost:3000", "Report server base URL")
	pf.String("local-db", "./labreport-local.db", "Local backup database")
	pf.Bool("offline", false, "Never contact the server")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Load the report and print its state",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, _ []string) error {
				return printStatus(cmd, s)
			}),
		},
		&cobra.Command{
			Use:   "set <field|section> <value>",
			Short: "Edit a field or section and save",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, args []string) error {
				s.Dispatch(ctx, editCommand(args[0], args[1]))
				s.Save(ctx, workspace.TriggerManual)
				return printStatus(cmd, s)
			}),
		},
		&cobra.Command{
			Use:   "example <chemistry|physics>",
			Short: "Replace the report content with a bundled example",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, args []string) error {
				example, ok := report.ExampleReport(args[0])
				if !ok {
					return fmt.Errorf("unknown example %q (have %s)", args[0], strings.Join(report.ExampleKinds, ", "))
				}
				s.Dispatch(ctx, workspace.ReplaceContent(example))
				s.Save(ctx, workspace.TriggerManual)
				return printStatus(cmd, s)
			}),
		},
		submitClientCmd(),
		&cobra.Command{
			Use:   "reset",
			Short: "Discard the local report and start a new one",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, _ []string) error {
				s.Reset(ctx)
				return printStatus(cmd, s)
			}),
		},
	)
	return cmd
}

func submitClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the report and save the final PDF",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("out-dir", ".", "Directory for the downloaded PDF")
	cmd.RunE = withSession(func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, _ []string) error {
		artifact, err := s.Submit(ctx)
		if err != nil {
			_ = printStatus(cmd, s)
			return err
		}
		dir, _ := cmd.Flags().GetString("out-dir")
		path := filepath.Join(dir, artifact.FileName)
		if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
		return printStatus(cmd, s)
	})
	return cmd
}

type sessionFunc func(ctx context.Context, cmd *cobra.Command, s *workspace.Session, args []string) error

// withSession opens the local backup, connects the remote and loads the
// report before running fn.
func withSession(fn sessionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		local, err := localstore.OpenSQLite(ctx, cfg.LocalDB)
		if err != nil {
			return fmt.Errorf("open local backup: %w", err)
		}
		defer local.Close()

		pdf, err := export.NewPDFRenderer("vector", cfg.RenderTimeout, logger)
		if err != nil {
			return err
		}
		exporter := export.NewService(pdf, logger)

		offline, _ := cmd.Flags().GetBool("offline")
		session := workspace.New(local, newRemote(cfg, offline, logger), workspace.Options{
			Logger: logger,
			RenderLocal: func(r report.Report) ([]byte, error) {
				return exporter.RenderPDF(ctx, r)
			},
		})
		if _, err := session.Load(ctx); err != nil {
			return fmt.Errorf("load report: %w", err)
		}
		return fn(ctx, cmd, session, args)
	}
}

// newRemote returns nil (local-only) when offline or no server is set.
func newRemote(cfg config.Config, offline bool, logger *zap.Logger) workspace.Remote {
	if offline || strings.TrimSpace(cfg.ServerURL) == "" {
		return nil
	}
	return client.New(cfg.ServerURL, cfg.ClientTimeout, logger)
}

// editCommand maps a CLI name onto a scalar field or a section key.
func editCommand(name, value string) workspace.Command {
	switch name {
	case "teacher", "teacherEmail", "title", "studentName", "date":
		return workspace.SetField(name, value)
	}
	return workspace.SetSection(name, value)
}

func printStatus(cmd *cobra.Command, s *workspace.Session) error {
	status := s.Status()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "report:  %s\n", status.ReportID)
	fmt.Fprintf(out, "status:  %s\n", status.State)
	fmt.Fprintf(out, "remote:  %t\n", status.RemoteEnabled)
	if status.LastSavedAt != "" {
		fmt.Fprintf(out, "saved:   %s\n", status.LastSavedAt)
	}
	if status.Message != "" {
		fmt.Fprintf(out, "message: %s\n", status.Message)
	}
	return nil
}
