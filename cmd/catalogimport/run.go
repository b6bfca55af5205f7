package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		profile  string
		file     string
		key      string
		lockDir  string
		lockWait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import a file into the catalog with a stored profile",
		Long: `Run decodes the file, maps and transforms every row with the profile and
creates or updates products by SKU. Row failures are reported in the result;
the command fails only when the run as a whole fails.

The file comes from --file on disk or --key in the configured object storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			actorID, err := a.actorID()
			if err != nil {
				return err
			}
			profileID, err := uuid.Parse(profile)
			if err != nil {
				return fmt.Errorf("invalid --profile %q", profile)
			}
			if (file == "") == (key == "") {
				return errors.New("exactly one of --file or --key is required")
			}

			lock, err := acquireTenantLock(cmd.Context(), lockDir, tenantID, lockWait)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					a.log.Warn("Failed to release tenant lock", zap.Error(err))
				}
			}()

			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			var result *importapp.RunResult
			if key != "" {
				result, err = stack.Imports.RunFromStorage(cmd.Context(), importapp.StorageRunCommand{
					TenantID:  tenantID,
					ActorID:   actorID,
					ProfileID: profileID,
					Key:       key,
				})
			} else {
				var content []byte
				content, err = readImportFile(file, a.cfg.Import.MaxFileSize)
				if err != nil {
					return err
				}
				result, err = stack.Imports.Run(cmd.Context(), importapp.RunCommand{
					TenantID:  tenantID,
					ActorID:   actorID,
					ProfileID: profileID,
					FileName:  filepath.Base(file),
					Content:   content,
				})
			}
			if err != nil {
				return err
			}

			a.log.Info("Import finished",
				zap.String("history_id", result.HistoryID.String()),
				zap.String("status", string(result.Status)),
				zap.Int("total", result.Stats.Total),
				zap.Int("successful", result.Stats.Successful),
				zap.Int("failed", result.Stats.Failed),
				zap.Int("skipped", result.Stats.Skipped),
			)
			if err := a.print(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Status != bulk.ImportStatusCompleted {
				return fmt.Errorf("import %s ended with status %s", result.HistoryID, result.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Import profile ID (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or XLSX file to import")
	cmd.Flags().StringVar(&key, "key", "", "Object storage key of the file to import")
	cmd.Flags().StringVar(&lockDir, "lock-dir", "", "Directory for the per-tenant lock file (default: system temp dir)")
	cmd.Flags().DurationVar(&lockWait, "lock-wait", 0, "How long to wait for a running import of the same tenant")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// readImportFile reads a local file, refusing anything over maxSize bytes.
func readImportFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%s is %d bytes, the limit is %d", path, info.Size(), maxSize)
	}
	return os.ReadFile(path)
}
