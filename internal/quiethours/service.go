package quiethours

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// timeHHMMRegex validates HH:MM format (00:00-23:59).
var timeHHMMRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// defaultPreference is the base applied when a user has no stored
// preference yet: quiet hours disabled, a common overnight window.
func defaultPreference(userID string) Preference {
	return Preference{
		UserID:   userID,
		Enabled:  false,
		Start:    "22:00",
		End:      "07:00",
		Timezone: "UTC",
	}
}

// Service provides quiet-hours preference operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new quiet-hours service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// IsQuiet reports whether the user is currently inside their quiet window.
// Fails open: a missing preference or a backend error counts as not quiet,
// so an outage never suppresses notifications.
func (s *Service) IsQuiet(ctx context.Context, userID string, nowUTC time.Time) bool {
	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrPreferenceNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).
				Msg("quiet hours lookup failed, treating as not quiet")
		}
		return false
	}
	return IsQuietNow(*pref, nowUTC)
}

// Get retrieves the preference for a user, falling back to the default
// when none is stored.
func (s *Service) Get(ctx context.Context, userID string) (*Preference, error) {
	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			def := defaultPreference(userID)
			return &def, nil
		}
		return nil, err
	}
	return pref, nil
}

// UpdatePreference applies a partial update to the user's preference.
// Only provided fields are touched. Invalid fields fail the whole update
// with a ValidationError listing them and leave the stored preference
// unchanged.
func (s *Service) UpdatePreference(ctx context.Context, userID string, update PreferenceUpdate) (*Preference, error) {
	if fieldErrors := validateUpdate(update); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	pref, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrPreferenceNotFound) {
			return nil, err
		}
		def := defaultPreference(userID)
		pref = &def
	}

	if update.Enabled != nil {
		pref.Enabled = *update.Enabled
	}
	if update.Start != nil {
		pref.Start = *update.Start
	}
	if update.End != nil {
		pref.End = *update.End
	}
	if update.Timezone != nil {
		pref.Timezone = *update.Timezone
	}

	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Bool("enabled", pref.Enabled).
		Str("window", pref.Start+"-"+pref.End).
		Str("timezone", pref.Timezone).
		Msg("quiet hours preference updated")

	return pref, nil
}

// validateUpdate validates the provided fields of a partial update.
func validateUpdate(update PreferenceUpdate) []FieldError {
	var errs []FieldError

	if update.Start != nil && !timeHHMMRegex.MatchString(*update.Start) {
		errs = append(errs, FieldError{Field: "start", Message: "must be in HH:MM format"})
	}
	if update.End != nil && !timeHHMMRegex.MatchString(*update.End) {
		errs = append(errs, FieldError{Field: "end", Message: "must be in HH:MM format"})
	}
	if update.Timezone != nil {
		if _, err := time.LoadLocation(*update.Timezone); err != nil || *update.Timezone == "" {
			errs = append(errs, FieldError{Field: "timezone", Message: "must be a valid IANA timezone"})
		}
	}

	return errs
}
