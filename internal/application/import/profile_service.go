package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/bulk"
	"github.com/storefront/backend/internal/domain/shared"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ProfileService manages import profiles
type ProfileService struct {
	profiles bulk.ImportProfileRepository
	validate *validator.Validate
}

// NewProfileService creates a new ProfileService
func NewProfileService(profiles bulk.ImportProfileRepository) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ProfileInput carries the editable parts of a profile.
// HasHeader defaults to true when nil.
type ProfileInput struct {
	Name            string `validate:"required,max=200"`
	Delimiter       string `validate:"max=5"`
	Encoding        string `validate:"max=32"`
	HasHeader       *bool
	ColumnMapping   bulk.CanonicalMapping
	Transformations bulk.Transformations
	ValidationRules bulk.ValidationRules
}

func (in ProfileInput) settings() bulk.ProfileSettings {
	hasHeader := true
	if in.HasHeader != nil {
		hasHeader = *in.HasHeader
	}
	return bulk.ProfileSettings{
		Delimiter:       in.Delimiter,
		Encoding:        in.Encoding,
		HasHeader:       hasHeader,
		ColumnMapping:   in.ColumnMapping,
		Transformations: in.Transformations,
		ValidationRules: in.ValidationRules,
	}
}

// CreateProfileCommand creates a profile
type CreateProfileCommand struct {
	TenantID uuid.UUID `validate:"required"`
	ActorID  uuid.UUID
	ProfileInput
}

// UpdateProfileCommand replaces the editable parts of a profile
type UpdateProfileCommand struct {
	TenantID uuid.UUID `validate:"required"`
	ID       uuid.UUID `validate:"required"`
	ProfileInput
}

// ProfileListFilter narrows a profile listing
type ProfileListFilter struct {
	Search   string
	IsActive *bool
	Page     int
	PageSize int
}

// Create validates and stores a new, active profile. Names are unique per tenant.
func (s *ProfileService) Create(ctx context.Context, cmd CreateProfileCommand) (*bulk.ImportProfile, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, cmd.TenantID, cmd.Name, uuid.Nil); err != nil {
		return nil, err
	}

	profile, err := bulk.NewImportProfile(cmd.TenantID, cmd.ActorID, cmd.Name, cmd.settings())
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save import profile: %w", err)
	}
	return profile, nil
}

// Get returns one profile
func (s *ProfileService) Get(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	return s.profiles.FindByID(ctx, tenantID, id)
}

// List returns a page of profiles ordered by name
func (s *ProfileService) List(ctx context.Context, tenantID uuid.UUID, filter ProfileListFilter) (shared.Paginated[*bulk.ImportProfile], error) {
	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	items, total, err := s.profiles.FindAll(ctx, tenantID, bulk.ImportProfileFilter{
		Search:   strings.TrimSpace(filter.Search),
		IsActive: filter.IsActive,
	}, page, pageSize)
	if err != nil {
		return shared.Paginated[*bulk.ImportProfile]{}, err
	}
	return shared.NewPaginated(items, total, page, pageSize), nil
}

// Update replaces a profile's settings. Past runs keep referring to the same profile ID.
func (s *ProfileService) Update(ctx context.Context, cmd UpdateProfileCommand) (*bulk.ImportProfile, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByID(ctx, cmd.TenantID, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, cmd.TenantID, cmd.Name, profile.ID); err != nil {
		return nil, err
	}
	if err := profile.Update(cmd.Name, cmd.settings()); err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save import profile: %w", err)
	}
	return profile, nil
}

// Activate makes a profile usable for runs
func (s *ProfileService) Activate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	return s.transition(ctx, tenantID, id, (*bulk.ImportProfile).Activate)
}

// Deactivate stops new runs from using a profile
func (s *ProfileService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*bulk.ImportProfile, error) {
	return s.transition(ctx, tenantID, id, (*bulk.ImportProfile).Deactivate)
}

// Delete removes a profile. History records that reference it are left untouched.
func (s *ProfileService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.profiles.FindByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.profiles.Delete(ctx, tenantID, id)
}

func (s *ProfileService) transition(
	ctx context.Context,
	tenantID, id uuid.UUID,
	apply func(*bulk.ImportProfile) error,
) (*bulk.ImportProfile, error) {
	profile, err := s.profiles.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(profile); err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save import profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) check(cmd any) error {
	if err := s.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
		return shared.NewDomainError("INVALID_INPUT", err.Error())
	}

	var in ProfileInput
	switch c := cmd.(type) {
	case CreateProfileCommand:
		in = c.ProfileInput
	case UpdateProfileCommand:
		in = c.ProfileInput
	}
	if in.Encoding != "" && !csvimport.SupportedEncoding(in.Encoding) {
		return shared.NewDomainError("INVALID_ENCODING", fmt.Sprintf("Unsupported encoding %q", in.Encoding))
	}
	return nil
}

func (s *ProfileService) ensureNameFree(ctx context.Context, tenantID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.profiles.FindByName(ctx, tenantID, strings.TrimSpace(name))
	switch {
	case err == nil:
		if existing.ID != self {
			return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Import profile %q already exists", existing.Name))
		}
		return nil
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check profile name: %w", err)
	}
}
