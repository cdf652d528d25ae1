package quiethours_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/quiethours"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestService_UpdatePreference(t *testing.T) {
	repo := quiethours.NewInMemoryRepository()
	service := quiethours.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	pref, err := service.UpdatePreference(ctx, "u1", quiethours.PreferenceUpdate{
		Enabled:  boolPtr(true),
		Start:    strPtr("21:30"),
		End:      strPtr("06:45"),
		Timezone: strPtr("Europe/Amsterdam"),
	})
	require.NoError(t, err)
	assert.True(t, pref.Enabled)
	assert.Equal(t, "21:30", pref.Start)
	assert.Equal(t, "06:45", pref.End)
	assert.Equal(t, "Europe/Amsterdam", pref.Timezone)

	// Partial update only touches the provided field.
	pref, err = service.UpdatePreference(ctx, "u1", quiethours.PreferenceUpdate{
		End: strPtr("07:15"),
	})
	require.NoError(t, err)
	assert.Equal(t, "21:30", pref.Start)
	assert.Equal(t, "07:15", pref.End)
	assert.Equal(t, "Europe/Amsterdam", pref.Timezone)
}

func TestService_UpdatePreference_ValidationErrors(t *testing.T) {
	repo := quiethours.NewInMemoryRepository()
	service := quiethours.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	_, err := service.UpdatePreference(ctx, "u1", quiethours.PreferenceUpdate{
		Enabled: boolPtr(true),
		Start:   strPtr("22:00"),
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		update     quiethours.PreferenceUpdate
		wantFields []string
	}{
		{
			name:       "bad start",
			update:     quiethours.PreferenceUpdate{Start: strPtr("24:00")},
			wantFields: []string{"start"},
		},
		{
			name:       "bad end",
			update:     quiethours.PreferenceUpdate{End: strPtr("7am")},
			wantFields: []string{"end"},
		},
		{
			name:       "bad timezone",
			update:     quiethours.PreferenceUpdate{Timezone: strPtr("Not/AZone")},
			wantFields: []string{"timezone"},
		},
		{
			name: "multiple invalid fields",
			update: quiethours.PreferenceUpdate{
				Start:    strPtr("99:99"),
				Timezone: strPtr("Not/AZone"),
			},
			wantFields: []string{"start", "timezone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdatePreference(ctx, "u1", tt.update)
			require.Error(t, err)

			var verr *quiethours.ValidationError
			require.ErrorAs(t, err, &verr)

			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)

			// The stored preference is untouched on failure.
			stored, getErr := repo.Get(ctx, "u1")
			require.NoError(t, getErr)
			assert.Equal(t, "22:00", stored.Start)
		})
	}
}

func TestService_IsQuiet(t *testing.T) {
	repo := quiethours.NewInMemoryRepository()
	service := quiethours.NewService(repo, zerolog.Nop())
	ctx := context.Background()

	// No stored preference: not quiet.
	assert.False(t, service.IsQuiet(ctx, "nobody", time.Now().UTC()))

	_, err := service.UpdatePreference(ctx, "u1", quiethours.PreferenceUpdate{
		Enabled:  boolPtr(true),
		Start:    strPtr("22:00"),
		End:      strPtr("07:00"),
		Timezone: strPtr("UTC"),
	})
	require.NoError(t, err)

	assert.True(t, service.IsQuiet(ctx, "u1", time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)))
	assert.False(t, service.IsQuiet(ctx, "u1", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)))
}
