package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mihaigidu/FitGenius/internal/auth"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/prompt"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

var (
	ErrInvalidAge         = errors.New("age must be between 1 and 120")
	ErrInvalidWeight      = errors.New("weight must be between 1 and 500 kg")
	ErrInvalidHeight      = errors.New("height must be between 1 and 300 cm")
	ErrInvalidTrainingDay = errors.New("training days must be between 0 and 7")
	ErrInvalidCycleLength = errors.New("cycle length must be between 15 and 60 days")
	ErrInvalidDate        = errors.New("last_period_date must be YYYY-MM-DD and not in the future")
	ErrInvalidPhase       = errors.New("unknown menstrual phase")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrEmailTaken         = errors.New("email already registered")
)

// Service owns the profile of each account. A profile is created empty on first access.
type Service struct {
	storage storage.Storage
	logger  zerolog.Logger
	format  plan.Format
	now     func() time.Time
}

func NewService(st storage.Storage, format plan.Format, logger zerolog.Logger) *Service {
	return &Service{
		storage: st,
		logger:  logger.With().Str("component", "profiles").Logger(),
		format:  format,
		now:     time.Now,
	}
}

// Load returns the owner's profile, creating an empty one when none exists.
func (s *Service) Load(ctx context.Context, ownerUserID string) (*storage.Profile, error) {
	profile, err := s.storage.GetProfileByOwner(ctx, ownerUserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	now := s.now().UTC()
	profile = &storage.Profile{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.CreateProfile(ctx, profile); err != nil {
		// Lost a race with a concurrent first access.
		if errors.Is(err, storage.ErrConflict) {
			return s.storage.GetProfileByOwner(ctx, ownerUserID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.logger.Debug().Str("owner", ownerUserID).Msg("empty profile created")
	return profile, nil
}

func (s *Service) Get(ctx context.Context, ownerUserID string) (ProfileDTO, error) {
	profile, err := s.Load(ctx, ownerUserID)
	if err != nil {
		return ProfileDTO{}, err
	}
	return toDTO(profile, s.now()), nil
}

// Replace overwrites every editable field.
func (s *Service) Replace(ctx context.Context, ownerUserID string, req ProfileRequest) (ProfileDTO, error) {
	profile, err := s.Load(ctx, ownerUserID)
	if err != nil {
		return ProfileDTO{}, err
	}

	patch := PatchRequest{
		Gender:            &req.Gender,
		MenstrualPhase:    &req.MenstrualPhase,
		LastPeriodDate:    &req.LastPeriodDate,
		CycleLength:       &req.CycleLength,
		Age:               &req.Age,
		WeightKg:          &req.WeightKg,
		HeightCm:          &req.HeightCm,
		Goal:              &req.Goal,
		ActivityLevel:     &req.ActivityLevel,
		TrainingDays:      &req.TrainingDays,
		TrainingLocation:  &req.TrainingLocation,
		FavoriteExercises: &req.FavoriteExercises,
		Allergies:         &req.Allergies,
		FoodPreferences:   &req.FoodPreferences,
	}
	// The name is set at registration; a blank one here keeps it.
	if name := strings.TrimSpace(req.Name); name != "" {
		patch.Name = &name
	}
	return s.apply(ctx, profile, patch)
}

// Patch updates the fields present in req; the form saves one step at a time.
func (s *Service) Patch(ctx context.Context, ownerUserID string, req PatchRequest) (ProfileDTO, error) {
	profile, err := s.Load(ctx, ownerUserID)
	if err != nil {
		return ProfileDTO{}, err
	}
	return s.apply(ctx, profile, req)
}

func (s *Service) apply(ctx context.Context, profile *storage.Profile, req PatchRequest) (ProfileDTO, error) {
	if err := s.merge(profile, req); err != nil {
		return ProfileDTO{}, err
	}

	profile.UpdatedAt = s.now().UTC()
	if err := s.storage.UpdateProfile(ctx, profile); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ProfileDTO{}, ErrEmailTaken
		}
		return ProfileDTO{}, fmt.Errorf("update profile: %w", err)
	}
	return toDTO(profile, s.now()), nil
}

// merge validates and copies req onto profile. Nothing is written on error.
func (s *Service) merge(profile *storage.Profile, req PatchRequest) error {
	next := *profile

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ErrEmptyName
		}
		next.Name = name
	}
	if req.Email != nil {
		email, err := auth.NormalizeEmail(*req.Email)
		if err != nil {
			return err
		}
		next.Email = email
	}
	if req.Gender != nil {
		next.Gender = s.soft("gender", *req.Gender, genders)
	}
	if req.MenstrualPhase != nil {
		raw := strings.TrimSpace(*req.MenstrualPhase)
		if raw == "" {
			next.MenstrualPhase = ""
		} else {
			phase, ok := prompt.ParsePhase(raw)
			if !ok {
				return ErrInvalidPhase
			}
			next.MenstrualPhase = string(phase)
		}
	}
	if req.LastPeriodDate != nil {
		date, err := s.parseDate(*req.LastPeriodDate)
		if err != nil {
			return err
		}
		next.LastPeriodDate = date
	}
	if req.CycleLength != nil {
		if v := *req.CycleLength; v != 0 && (v < 15 || v > 60) {
			return ErrInvalidCycleLength
		}
		next.CycleLength = *req.CycleLength
	}
	if req.Age != nil {
		if v := *req.Age; v < 0 || v > 120 {
			return ErrInvalidAge
		}
		next.Age = *req.Age
	}
	if req.WeightKg != nil {
		if v := *req.WeightKg; v < 0 || v > 500 {
			return ErrInvalidWeight
		}
		next.WeightKg = *req.WeightKg
	}
	if req.HeightCm != nil {
		if v := *req.HeightCm; v < 0 || v > 300 {
			return ErrInvalidHeight
		}
		next.HeightCm = *req.HeightCm
	}
	if req.Goal != nil {
		next.Goal = s.soft("goal", *req.Goal, goalValues())
	}
	if req.ActivityLevel != nil {
		next.ActivityLevel = s.soft("activity_level", *req.ActivityLevel, activityLevels)
	}
	if req.TrainingDays != nil {
		if v := *req.TrainingDays; v < 0 || v > 7 {
			return ErrInvalidTrainingDay
		}
		next.TrainingDays = *req.TrainingDays
	}
	if req.TrainingLocation != nil {
		next.TrainingLocation = s.soft("training_location", *req.TrainingLocation, trainingLocations)
	}
	if req.FavoriteExercises != nil {
		next.FavoriteExercises = s.exercises(*req.FavoriteExercises)
	}
	if req.Allergies != nil {
		next.Allergies = strings.TrimSpace(*req.Allergies)
	}
	if req.FoodPreferences != nil {
		next.FoodPreferences = strings.TrimSpace(*req.FoodPreferences)
	}

	*profile = next
	return nil
}

// soft canonicalizes a vocabulary value; unknown values are kept as typed.
func (s *Service) soft(field, value string, options []string) string {
	v, known := canonical(value, options)
	if !known {
		s.logger.Debug().Str("field", field).Str("value", v).Msg("value outside the known options")
	}
	return v
}

func (s *Service) exercises(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, raw := range values {
		v := s.soft("favorite_exercises", raw, favoriteExercises)
		if v == "" || seen[plan.FoldUpper(v)] {
			continue
		}
		seen[plan.FoldUpper(v)] = true
		out = append(out, v)
	}
	return out
}

func (s *Service) parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, ErrInvalidDate
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.After(today) {
		return nil, ErrInvalidDate
	}
	return &date, nil
}

// Prompt renders the instruction a generation for this owner would send.
func (s *Service) Prompt(ctx context.Context, ownerUserID string) (PromptResponse, error) {
	profile, err := s.Load(ctx, ownerUserID)
	if err != nil {
		return PromptResponse{}, err
	}
	return PromptResponse{
		Format: string(s.format),
		System: prompt.SystemMessage(s.format),
		Prompt: prompt.Build(*profile, s.now(), s.format),
	}, nil
}

// IsComplete reports whether the profile has what generation needs.
func IsComplete(p *storage.Profile) bool {
	return p.Age > 0 && p.WeightKg > 0 && p.HeightCm > 0 && strings.TrimSpace(p.Goal) != ""
}

func currentPhase(p *storage.Profile, now time.Time) (prompt.Phase, bool) {
	return prompt.CurrentPhase(*p, now)
}
