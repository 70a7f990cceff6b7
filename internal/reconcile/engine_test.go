package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andestraining/sence-sync-server/internal/declarations"
)

func TestReconcileSingleEntry(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	engine := NewEngine(store)

	payload := json.RawMessage(`[{"data":[
		{"codigo_curso":"SENCE-001","RUT":"11111111-1","Nombre":"Ana","Sesiones":5,"Estado_Declaracion_Jurada":"Aprobado"}
	]}]`)

	summary, err := engine.Reconcile(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, Summary{RecordCount: 1, Processed: 1, Failed: 0}, summary)

	rec, err := store.Get(context.Background(), "SENCE-001", "11111111-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", rec.ParticipantName)
	assert.Equal(t, 5, rec.SessionsAttended)
	assert.Equal(t, StatusApproved, rec.Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	engine := NewEngine(store)
	ctx := context.Background()

	payload := json.RawMessage(`[{"data":[
		{"codigo_curso":"SENCE-001","RUT":"11111111-1","Nombre":"Ana","Sesiones":5,"Estado_Declaracion_Jurada":"Aprobado"}
	]}]`)

	_, err := engine.Reconcile(ctx, payload)
	require.NoError(t, err)

	// Re-running the same batch updates in place instead of duplicating.
	updated := json.RawMessage(`[{"data":[
		{"codigo_curso":"SENCE-001","RUT":"11111111-1","Nombre":"Ana","Sesiones":7,"Estado_Declaracion_Jurada":"Enviada"}
	]}]`)
	summary, err := engine.Reconcile(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, store.Len())

	rec, err := store.Get(ctx, "SENCE-001", "11111111-1")
	require.NoError(t, err)
	assert.Equal(t, 7, rec.SessionsAttended)
	assert.Equal(t, StatusSent, rec.Status)
}

func TestReconcileFlattensBlocks(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	engine := NewEngine(store)

	// Course code may come from the block or from the entry itself.
	payload := json.RawMessage(`[
		{"codigo_curso":"SENCE-001","data":[
			{"RUT":"11111111-1","Nombre":"Ana","Sesiones":5,"Estado_Declaracion_Jurada":"Aprobado"},
			{"RUT":"22222222-2","Nombre":"Benito","Sesiones":3,"Estado_Declaracion_Jurada":"Pendiente"}
		]},
		{"data":[
			{"codigo_curso":"SENCE-002","RUT":"11111111-1","Nombre":"Ana","Sesiones":1,"Estado_Declaracion_Jurada":"Rechazado"}
		]}
	]`)

	summary, err := engine.Reconcile(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, Summary{RecordCount: 3, Processed: 3, Failed: 0}, summary)
	assert.Equal(t, 3, store.Len())
}

func TestReconcileUnknownStatusDefaultsToPending(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	engine := NewEngine(store)

	payload := json.RawMessage(`[{"codigo_curso":"SENCE-001","data":[
		{"RUT":"11111111-1","Nombre":"Ana","Sesiones":2,"Estado_Declaracion_Jurada":"Estado Desconocido"}
	]}]`)

	_, err := engine.Reconcile(context.Background(), payload)
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), "SENCE-001", "11111111-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestReconcileContinuesPastRecordFailures(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	store.FailOn = func(rec declarations.Record) error {
		if rec.ParticipantRut == "22222222-2" {
			return errors.New("constraint violation")
		}
		return nil
	}
	engine := NewEngine(store)

	payload := json.RawMessage(`[{"codigo_curso":"SENCE-001","data":[
		{"RUT":"11111111-1","Nombre":"Ana","Sesiones":5,"Estado_Declaracion_Jurada":"Aprobado"},
		{"RUT":"22222222-2","Nombre":"Benito","Sesiones":3,"Estado_Declaracion_Jurada":"Aprobado"},
		{"RUT":"33333333-3","Nombre":"Carla","Sesiones":4,"Estado_Declaracion_Jurada":"Enviada"}
	]}]`)

	summary, err := engine.Reconcile(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, Summary{RecordCount: 3, Processed: 2, Failed: 1}, summary)
	assert.Equal(t, 2, store.Len())
}

func TestReconcileCountsEntriesMissingKeyFields(t *testing.T) {
	t.Parallel()
	store := declarations.NewInMemoryStore()
	engine := NewEngine(store)

	payload := json.RawMessage(`[{"data":[
		{"RUT":"11111111-1","Nombre":"Ana","Sesiones":5,"Estado_Declaracion_Jurada":"Aprobado"},
		{"codigo_curso":"SENCE-001","Nombre":"Benito","Sesiones":3,"Estado_Declaracion_Jurada":"Aprobado"}
	]}]`)

	// First entry has no course code anywhere, second has no RUT.
	summary, err := engine.Reconcile(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, Summary{RecordCount: 2, Processed: 0, Failed: 2}, summary)
}

func TestReconcileMalformedPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "not json", payload: "<html>error</html>"},
		{name: "object instead of array", payload: `{"data":[]}`},
		{name: "array of scalars", payload: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := NewEngine(declarations.NewInMemoryStore())

			_, err := engine.Reconcile(context.Background(), json.RawMessage(tt.payload))
			require.Error(t, err)

			var malformed *MalformedPayloadError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote string
		want   string
	}{
		{remote: "Aprobado", want: StatusApproved},
		{remote: "APROBADO", want: StatusApproved},
		{remote: "aprobada", want: StatusApproved},
		{remote: "Enviada", want: StatusSent},
		{remote: "Rechazado", want: StatusRejected},
		{remote: "En Revisión", want: StatusInReview},
		{remote: "en revision", want: StatusInReview},
		{remote: "  Pendiente  ", want: StatusPending},
		{remote: "", want: StatusPending},
		{remote: "whatever", want: StatusPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.remote), "remote %q", tt.remote)
	}
}
