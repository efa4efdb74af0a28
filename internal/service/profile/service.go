// Package profile exposes profile reads and the validated update path
// that gates users into the ranking pool.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/app"
	"github.com/emberly-app/emberly/internal/db"
	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/repository"
)

// Service contains profile business logic.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	rankings *repository.RankingRepository
	validate *validator.Validate
}

// NewService creates the profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		rankings: repository.NewRankingRepository(appCtx.DB),
		validate: validator.New(),
	}
}

// UpdateInput carries the editable profile fields. Pointer fields are
// optional; nil means "leave unchanged".
type UpdateInput struct {
	Name              *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Gender            *string   `json:"gender" validate:"omitempty,oneof=male female non-binary other"`
	Age               *int      `json:"age" validate:"omitempty,gte=18,lte=100"`
	Bio               *string   `json:"bio" validate:"omitempty,max=500"`
	JobTitle          *string   `json:"job_title" validate:"omitempty,max=100"`
	Education         *string   `json:"education" validate:"omitempty,max=100"`
	Location          *string   `json:"location" validate:"omitempty,min=2,max=100"`
	Interests         *[]string `json:"interests" validate:"omitempty,max=10,dive,min=1"`
	PersonalityTraits *[]string `json:"personality_traits" validate:"omitempty,max=10,dive,min=1"`
	Lifestyle         *string   `json:"lifestyle" validate:"omitempty,max=300"`
	HeightCM          *int      `json:"height_cm" validate:"omitempty,gte=100,lte=250"`
	WeightKG          *int      `json:"weight_kg" validate:"omitempty,gte=30,lte=300"`
}

// View is the public profile payload.
type View struct {
	ID                uint64   `json:"id"`
	Name              string   `json:"name"`
	Gender            string   `json:"gender"`
	Age               int      `json:"age"`
	Bio               string   `json:"bio,omitempty"`
	JobTitle          string   `json:"job_title,omitempty"`
	Education         string   `json:"education,omitempty"`
	Location          string   `json:"location,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	PersonalityTraits []string `json:"personality_traits,omitempty"`
	Lifestyle         string   `json:"lifestyle,omitempty"`
	HeightCM          int      `json:"height_cm,omitempty"`
	WeightKG          int      `json:"weight_kg,omitempty"`
	Verified          bool     `json:"verified"`
}

func newView(p *db.Profile) *View {
	return &View{
		ID:                p.ID,
		Name:              p.Name,
		Gender:            p.Gender,
		Age:               p.Age,
		Bio:               p.Bio,
		JobTitle:          p.JobTitle,
		Education:         p.Education,
		Location:          p.Location,
		Interests:         p.Interests,
		PersonalityTraits: p.PersonalityTraits,
		Lifestyle:         p.Lifestyle,
		HeightCM:          p.HeightCM,
		WeightKG:          p.WeightKG,
		Verified:          p.Verified,
	}
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, userID uint64) (*View, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFoundf("user %d", userID)
		}
		return nil, svcErr.Storagef("load profile", err)
	}
	return newView(p), nil
}

// Update applies the given fields, re-evaluates verification and drops
// the user's ranking snapshot since attributes feeding compatibility
// scoring changed.
func (s *Service) Update(ctx context.Context, userID uint64, in *UpdateInput) (*View, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", validationMessage(err), svcErr.ErrInvalidArgument)
	}

	values := in.values()
	if len(values) == 0 {
		return nil, svcErr.InvalidArgumentf("no fields to update")
	}

	if err := s.profiles.Update(ctx, userID, values); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFoundf("user %d", userID)
		}
		return nil, svcErr.Storagef("update profile", err)
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, svcErr.Storagef("reload profile", err)
	}

	if verified := s.isComplete(p); verified != p.Verified {
		if err := s.profiles.Update(ctx, userID, map[string]any{"verified": verified}); err != nil {
			return nil, svcErr.Storagef("update verification", err)
		}
		p.Verified = verified
	}

	if err := s.profiles.TouchLastActive(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to touch last_active_at", "user_id", userID, "err", err)
	}
	if err := s.rankings.Invalidate(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate ranking snapshot", "user_id", userID, "err", err)
	}

	s.appCtx.Logger.Info("profile updated", "user_id", userID, "fields", len(values), "verified", p.Verified)
	return newView(p), nil
}

// completeInput mirrors the fields a profile must carry to enter the
// ranking pool.
type completeInput struct {
	Name      string   `validate:"min=2"`
	Gender    string   `validate:"required"`
	Age       int      `validate:"gte=18,lte=100"`
	Location  string   `validate:"required"`
	Interests []string `validate:"min=1,max=10"`
}

func (s *Service) isComplete(p *db.Profile) bool {
	in := completeInput{
		Name:      p.Name,
		Gender:    p.Gender,
		Age:       p.Age,
		Location:  p.Location,
		Interests: p.Interests,
	}
	return s.validate.Struct(in) == nil
}

// values converts set fields into a gorm update map.
func (in *UpdateInput) values() map[string]any {
	values := map[string]any{}
	if in.Name != nil {
		values["name"] = *in.Name
	}
	if in.Gender != nil {
		values["gender"] = *in.Gender
	}
	if in.Age != nil {
		values["age"] = *in.Age
	}
	if in.Bio != nil {
		values["bio"] = *in.Bio
	}
	if in.JobTitle != nil {
		values["job_title"] = *in.JobTitle
	}
	if in.Education != nil {
		values["education"] = *in.Education
	}
	if in.Location != nil {
		values["location"] = *in.Location
	}
	// map-based updates bypass gorm's field serializer, so the list
	// columns are encoded here
	if in.Interests != nil {
		values["interests"] = encodeList(*in.Interests)
	}
	if in.PersonalityTraits != nil {
		values["personality_traits"] = encodeList(*in.PersonalityTraits)
	}
	if in.Lifestyle != nil {
		values["lifestyle"] = *in.Lifestyle
	}
	if in.HeightCM != nil {
		values["height_cm"] = *in.HeightCM
	}
	if in.WeightKG != nil {
		values["weight_kg"] = *in.WeightKG
	}
	return values
}

func encodeList(items []string) string {
	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return fmt.Sprintf("field %s failed validation rule %s", f.Field(), f.Tag())
	}
	return "invalid profile fields"
}
