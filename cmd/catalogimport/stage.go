package main

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type stagedFile struct {
	Key      string `json:"key"`
	Bytes    int    `json:"bytes"`
	Location string `json:"location"`
}

func newStageCmd(a *app) *cobra.Command {
	var file, key string
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Upload a file to import storage for a later run --key",
		Long: `Stage copies a local CSV or XLSX file into the configured import storage.
Without --key the file is stored under <tenant>/<file name> when --tenant is
set, and under its file name otherwise.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readImportFile(file, a.cfg.Import.MaxFileSize)
			if err != nil {
				return err
			}
			if key == "" {
				key = filepath.Base(file)
				if a.tenant != "" {
					tenantID, err := a.tenantID()
					if err != nil {
						return err
					}
					key = path.Join(tenantID.String(), key)
				}
			}

			store, err := storage.Open(cmd.Context(), &a.cfg.Storage, a.cfg.Import.MaxFileSize, a.log)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("import storage is disabled, set storage.enabled")
			}
			if err := store.Put(cmd.Context(), key, content); err != nil {
				return err
			}

			a.log.Info("File staged", zap.String("key", key), zap.Int("bytes", len(content)))
			return a.print(cmd.OutOrStdout(), stagedFile{
				Key:      key,
				Bytes:    len(content),
				Location: fmt.Sprint(store),
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or XLSX file to upload (required)")
	cmd.Flags().StringVar(&key, "key", "", "Storage key to upload under")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
