package stage_test

import (
	"context"
	"os"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/garment-costing/internal/db/dbtest"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	pool, err := dbtest.Open()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to test database")
	}
	testDB = pool

	exitCode := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	os.Exit(exitCode)
}

func seedProject(t *testing.T) (projectID, ownerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	ownerID = uuid.Must(uuid.NewV4())
	projectID = uuid.Must(uuid.NewV4())

	_, err := testDB.Exec(ctx, `INSERT INTO users (id, name, email, role) VALUES ($1, 'Exporter', $2, 'exporter')`,
		ownerID, ownerID.String()+"@example.com")
	require.NoError(t, err)
	_, err = testDB.Exec(ctx, `
		INSERT INTO projects (id, user_id, status, shirt_type, fabric_category, fabric_sub_category, fabric_size, cutting_style, quantity)
		VALUES ($1, $2, 'active', 'Polo', 'Cotton', 'Single Jersey', 'M', 'regular', 30)`, projectID, ownerID)
	require.NoError(t, err)
	return projectID, ownerID
}

func TestStore_Postgres(t *testing.T) {
	dbtest.Require(t, testDB)
	t.Cleanup(func() { dbtest.Truncate(t, testDB) })

	ctx := context.Background()
	store := stage.NewStore()
	projectID, ownerID := seedProject(t)

	rec := &stage.Record{
		ProjectID: projectID,
		Kind:      stage.FabricQuantity,
		Status:    stage.StatusDraft,
		Cost:      decimal.RequireFromString("2850.00"),
		Drivers: stage.Drivers{
			ShirtType:  "Polo",
			FabricSize: "M",
			Quantity:   30,
			KgPerPiece: decimal.RequireFromString("0.25"),
			FabricKg:   decimal.RequireFromString("7.5"),
			Rate:       decimal.RequireFromString("380"),
		},
	}
	require.NoError(t, store.Insert(ctx, testDB, rec))
	require.NotEqual(t, uuid.Nil, rec.ID)

	got, err := store.GetByProject(ctx, testDB, stage.FabricQuantity, projectID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.Cost.Equal(rec.Cost))
	assert.True(t, got.Drivers.FabricKg.Equal(rec.Drivers.FabricKg))
	assert.Equal(t, "Polo", got.Drivers.ShirtType)

	got.Drivers.Quantity = 40
	got.Cost = decimal.RequireFromString("3800")
	require.NoError(t, store.Update(ctx, testDB, got))

	byID, err := store.GetByID(ctx, testDB, stage.FabricQuantity, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, byID.Drivers.Quantity)

	exists, err := store.Exists(ctx, testDB, stage.FabricQuantity, rec.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Exists(ctx, testDB, stage.Cutting, rec.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.SetStatus(ctx, testDB, stage.FabricQuantity, rec.ID, stage.StatusPosted))
	posted, err := store.GetByID(ctx, testDB, stage.FabricQuantity, rec.ID)
	require.NoError(t, err)
	require.NoError(t, store.ResetDraft(ctx, testDB, stage.FabricQuantity, rec.ID))
	reset, err := store.GetByID(ctx, testDB, stage.FabricQuantity, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, stage.StatusDraft, reset.Status)
	assert.True(t, posted.UpdatedAt.Equal(reset.UpdatedAt))
	require.ErrorIs(t, store.ResetDraft(ctx, testDB, stage.Cutting, rec.ID), stage.ErrRecordNotFound)

	owner, err := store.ProjectOwner(ctx, testDB, projectID)
	require.NoError(t, err)
	assert.Equal(t, ownerID, owner)

	_, err = store.ProjectOwner(ctx, testDB, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, stage.ErrOwnerNotFound)

	require.NoError(t, store.DeactivateByProject(ctx, testDB, projectID))
	records, err := store.ListByProject(ctx, testDB, projectID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stage.StatusInactive, records[0].Status)

	err = store.SetStatus(ctx, testDB, stage.Cutting, uuid.Must(uuid.NewV4()), stage.StatusPosted)
	require.ErrorIs(t, err, stage.ErrRecordNotFound)
}

func TestStore_Insert_UnknownProject(t *testing.T) {
	dbtest.Require(t, testDB)
	t.Cleanup(func() { dbtest.Truncate(t, testDB) })

	err := stage.NewStore().Insert(context.Background(), testDB, &stage.Record{
		ProjectID: uuid.Must(uuid.NewV4()),
		Kind:      stage.Packaging,
		Status:    stage.StatusDraft,
		Cost:      decimal.Zero,
	})
	require.ErrorIs(t, err, stage.ErrProjectNotFound)
}
