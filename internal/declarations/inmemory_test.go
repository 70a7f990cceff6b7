package declarations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertInsertsThenUpdates(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	ctx := context.Background()

	first, err := store.Upsert(ctx, Record{
		SenceCode:        "SENCE-001",
		ParticipantRut:   "11111111-1",
		ParticipantName:  "Ana",
		SessionsAttended: 5,
		Status:           "Aprobado",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "", first.ID.String())

	// Same key with refreshed fields updates in place.
	second, err := store.Upsert(ctx, Record{
		SenceCode:        "SENCE-001",
		ParticipantRut:   "11111111-1",
		ParticipantName:  "Ana María",
		SessionsAttended: 6,
		Status:           "Enviada",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana María", second.ParticipantName)
	assert.Equal(t, 6, second.SessionsAttended)
	assert.Equal(t, 1, store.Len())
}

func TestUpsertDistinctKeys(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Upsert(ctx, Record{SenceCode: "SENCE-001", ParticipantRut: "11111111-1", Status: "Pendiente"})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, Record{SenceCode: "SENCE-001", ParticipantRut: "22222222-2", Status: "Pendiente"})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, Record{SenceCode: "SENCE-002", ParticipantRut: "11111111-1", Status: "Pendiente"})
	require.NoError(t, err)

	assert.Equal(t, 3, store.Len())

	records, err := store.ListBySenceCode(ctx, "SENCE-001")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "11111111-1", records[0].ParticipantRut)
	assert.Equal(t, "22222222-2", records[1].ParticipantRut)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "SENCE-001", "11111111-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFailureInjection(t *testing.T) {
	t.Parallel()
	store := NewInMemoryStore()
	store.FailOn = func(rec Record) error {
		if rec.ParticipantRut == "22222222-2" {
			return errors.New("injected")
		}
		return nil
	}
	ctx := context.Background()

	_, err := store.Upsert(ctx, Record{SenceCode: "S", ParticipantRut: "11111111-1"})
	require.NoError(t, err)

	_, err = store.Upsert(ctx, Record{SenceCode: "S", ParticipantRut: "22222222-2"})
	require.Error(t, err)
	assert.Equal(t, 1, store.Len())
}
