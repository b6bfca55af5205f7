package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past import runs",
	}
	cmd.AddCommand(newHistoryListCmd(a), newHistoryShowCmd(a), newHistoryErrorsCmd(a))
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		status   string
		profile  string
		mine     bool
		since    string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			filter := importapp.HistoryFilter{Status: status, Page: page, PageSize: pageSize}
			if profile != "" {
				id, err := uuid.Parse(profile)
				if err != nil {
					return fmt.Errorf("invalid --profile %q", profile)
				}
				filter.ProfileID = &id
			}
			if since != "" {
				from, err := time.Parse(dto.DateLayout, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q, expected %s", since, dto.DateLayout)
				}
				filter.CreatedFrom = &from
			}

			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			if mine {
				actorID, err := a.actorID()
				if err != nil {
					return err
				}
				if actorID == nil {
					return errors.New("--mine requires --actor")
				}
				result, err := stack.Histories.GetHistory(cmd.Context(), tenantID, *actorID, filter)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), dto.NewImportHistoryListResponse(result))
			}

			result, err := stack.Histories.List(cmd.Context(), tenantID, filter)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), dto.NewImportHistoryListResponse(result))
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: processing, completed, failed")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Filter by profile ID")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only runs started by --actor")
	cmd.Flags().StringVar(&since, "since", "", "Only runs created on or after this date ("+dto.DateLayout+")")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <history-id>",
		Short: "Show one import run with its row errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}
			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			history, err := stack.Histories.GetHistoryByID(cmd.Context(), tenantID, id)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), dto.NewImportHistoryResponse(history))
		},
	}
}

func newHistoryErrorsCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "errors <history-id>",
		Short: "Download the row errors of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid history id %q", args[0])
			}
			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			body, name, err := stack.Histories.ErrorsCSV(cmd.Context(), tenantID, id)
			if err != nil {
				return err
			}
			if outDir == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			path := filepath.Join(outDir, name)
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write the CSV into this directory instead of stdout")
	return cmd
}
