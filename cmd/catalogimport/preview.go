package main

import (
	"path/filepath"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/bootstrap"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		file    string
		profile string
		mapping string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show how the first rows of a file would be imported",
		Long: `Preview decodes the file and validates its first rows without writing
anything. Without --profile no database connection is made: the mapping comes
from --mapping or is inferred from the headers.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readImportFile(file, a.cfg.Import.MaxFileSize)
			if err != nil {
				return err
			}
			previewCmd := importapp.PreviewCommand{
				FileName: filepath.Base(file),
				Content:  content,
				Limit:    limit,
			}
			if mapping != "" {
				m, err := loadMappingFile(mapping)
				if err != nil {
					return err
				}
				previewCmd.Mapping = m
			}

			var imports *importapp.ImportService
			if profile == "" {
				imports, err = offlineImportService(a)
				if err != nil {
					return err
				}
			} else {
				tenantID, err := a.tenantID()
				if err != nil {
					return err
				}
				profileID, err := uuid.Parse(profile)
				if err != nil {
					return err
				}
				previewCmd.TenantID = tenantID
				previewCmd.ProfileID = &profileID

				stack, err := a.stack(cmd)
				if err != nil {
					return err
				}
				defer stack.Close(cmd.Context())
				imports = stack.Imports
			}

			result, err := imports.Preview(cmd.Context(), previewCmd)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or XLSX file to preview (required)")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Import profile ID; requires --tenant and a database")
	cmd.Flags().StringVarP(&mapping, "mapping", "m", "", "YAML file with a column mapping")
	cmd.Flags().IntVarP(&limit, "limit", "n", importapp.DefaultPreviewLimit, "Rows to preview")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// offlineImportService previews without repositories. It must not be used
// for runs or for previews that load a profile.
func offlineImportService(a *app) (*importapp.ImportService, error) {
	transformer, err := bootstrap.NewTransformer(a.cfg.Import)
	if err != nil {
		return nil, err
	}
	return importapp.NewImportService(nil, nil, nil,
		importapp.WithTransformer(transformer),
		importapp.WithConfig(importapp.Config{
			MaxFileSize:  a.cfg.Import.MaxFileSize,
			PreviewLimit: a.cfg.Import.PreviewLimit,
			MaxErrors:    a.cfg.Import.MaxErrors,
		}),
		importapp.WithLogger(a.log),
	), nil
}
