package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage import profiles",
	}
	cmd.AddCommand(
		newProfileApplyCmd(a),
		newProfileListCmd(a),
		newProfileShowCmd(a),
		newProfileExportCmd(a),
	)
	return cmd
}

func newProfileApplyCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create a profile from YAML, or replace the settings of the profile with the same name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			actorID, err := a.actorID()
			if err != nil {
				return err
			}
			req, err := loadProfileFile(file)
			if err != nil {
				return err
			}

			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			input := importapp.ProfileInput{
				Name:            req.Name,
				Delimiter:       req.Delimiter,
				Encoding:        req.Encoding,
				HasHeader:       req.HasHeader,
				ColumnMapping:   req.ColumnMapping,
				Transformations: req.Transformations,
				ValidationRules: req.ValidationRules,
			}

			existing, err := findProfileByName(cmd, stack.Profiles, tenantID, req.Name)
			if err != nil {
				return err
			}

			var profile *bulk.ImportProfile
			if existing == nil {
				create := importapp.CreateProfileCommand{TenantID: tenantID, ProfileInput: input}
				if actorID != nil {
					create.ActorID = *actorID
				}
				profile, err = stack.Profiles.Create(cmd.Context(), create)
				if err == nil {
					a.log.Info("Profile created", zap.String("profile_id", profile.ID.String()))
				}
			} else {
				profile, err = stack.Profiles.Update(cmd.Context(), importapp.UpdateProfileCommand{
					TenantID:     tenantID,
					ID:           existing.ID,
					ProfileInput: input,
				})
				if err == nil {
					a.log.Info("Profile updated", zap.String("profile_id", profile.ID.String()))
				}
			}
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), dto.NewImportProfileResponse(profile))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML profile file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// findProfileByName pages through the name search until it finds an exact,
// case-sensitive match.
func findProfileByName(cmd *cobra.Command, profiles *importapp.ProfileService, tenantID uuid.UUID, name string) (*bulk.ImportProfile, error) {
	for page := 1; ; page++ {
		result, err := profiles.List(cmd.Context(), tenantID, importapp.ProfileListFilter{
			Search:   name,
			Page:     page,
			PageSize: 100,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range result.Items {
			if p.Name == name {
				return p, nil
			}
		}
		if page >= result.TotalPages || len(result.Items) == 0 {
			return nil, nil
		}
	}
}

func newProfileListCmd(a *app) *cobra.Command {
	var (
		search     string
		activeOnly bool
		page       int
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			stack, err := a.stack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close(cmd.Context())

			filter := importapp.ProfileListFilter{Search: search, Page: page, PageSize: pageSize}
			if activeOnly {
				filter.IsActive = &activeOnly
			}
			result, err := stack.Profiles.List(cmd.Context(), tenantID, filter)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), shared.Paginated[dto.ImportProfileResponse]{
				Items:      dto.NewImportProfileListResponse(result.Items),
				Total:      result.Total,
				Page:       result.Page,
				PageSize:   result.PageSize,
				TotalPages: result.TotalPages,
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active profiles")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size")
	return cmd
}

func newProfileShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile-id>",
		Short: "Show an import profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(a, cmd, args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), dto.NewImportProfileResponse(profile))
		},
	}
}

func newProfileExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <profile-id>",
		Short: "Write a profile as a YAML file that profile apply accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(a, cmd, args[0])
			if err != nil {
				return err
			}
			hasHeader := profile.HasHeader
			doc := profileFile{
				Name:            profile.Name,
				Delimiter:       profile.Delimiter,
				Encoding:        profile.Encoding,
				HasHeader:       &hasHeader,
				ColumnMapping:   profile.ColumnMapping,
				Transformations: profile.Transformations,
				ValidationRules: profile.ValidationRules,
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return encode(w, outputYAML, doc)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write to a file instead of stdout")
	return cmd
}

func loadProfile(a *app, cmd *cobra.Command, rawID string) (*bulk.ImportProfile, error) {
	tenantID, err := a.tenantID()
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("invalid profile id %q", rawID)
	}
	stack, err := a.stack(cmd)
	if err != nil {
		return nil, err
	}
	defer stack.Close(cmd.Context())

	profile, err := stack.Profiles.Get(cmd.Context(), tenantID, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("profile %s not found", id)
	}
	return profile, err
}
