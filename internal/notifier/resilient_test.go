package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonesentry/zonesentry/internal/notifier"
)

func TestResilient_PassesThrough(t *testing.T) {
	rec := notifier.NewRecorder()
	r := notifier.NewResilient(rec, notifier.DefaultBreakerConfig("test"), zerolog.Nop())

	err := r.Send(context.Background(), "u1", notifier.KindDangerAlert, notifier.Payload{ZoneID: "z1"})
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].RecipientID)
	assert.Equal(t, notifier.KindDangerAlert, calls[0].Kind)
}

func TestResilient_OpensAfterFailures(t *testing.T) {
	rec := notifier.NewRecorder()
	sendErr := errors.New("transport down")
	rec.Fail(sendErr)

	cfg := notifier.BreakerConfig{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	r := notifier.NewResilient(rec, cfg, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := r.Send(ctx, "u1", notifier.KindSafeZoneExit, notifier.Payload{})
		assert.ErrorIs(t, err, sendErr)
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	// Open circuit fails fast without reaching the transport.
	rec.Reset()
	err := r.Send(ctx, "u1", notifier.KindSafeZoneExit, notifier.Payload{})
	assert.ErrorIs(t, err, notifier.ErrUnavailable)
	assert.Empty(t, rec.Calls())
}
