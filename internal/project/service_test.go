package project_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/garment-costing/internal/apperr"
	"github.com/vasiliy-maslov/garment-costing/internal/config"
	"github.com/vasiliy-maslov/garment-costing/internal/db/dbtest"
	"github.com/vasiliy-maslov/garment-costing/internal/project"
	"github.com/vasiliy-maslov/garment-costing/internal/project/projecttest"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
	"github.com/vasiliy-maslov/garment-costing/internal/reference/referencetest"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
	"github.com/vasiliy-maslov/garment-costing/internal/stage/stagetest"
	"github.com/vasiliy-maslov/garment-costing/internal/user"
	"github.com/vasiliy-maslov/garment-costing/internal/user/usertest"
)

type fixture struct {
	svc      project.Service
	projects *projecttest.Memory
	stages   *stagetest.MemoryStore
	tables   *referencetest.Tables
	calcs    stage.Calculators
	tx       *dbtest.FakeTx
	owner    user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := usertest.NewMemory()
	f := &fixture{
		projects: projecttest.NewMemory(),
		stages:   stagetest.NewMemoryStore(),
		tables:   referencetest.Standard(),
		owner:    users.AddUser(user.RoleExporter),
	}
	f.stages.ProjectLookup = f.projects.Owner
	f.calcs = stage.NewCalculators(f.tables, f.stages, config.PricingConfig{CuttingPatternUnitPrice: decimal.NewFromInt(600)})
	f.tx = dbtest.NewFakeTx(f.projects, f.stages)
	f.svc = project.NewService(nil, f.tx, f.projects, f.stages, f.calcs, users)
	return f
}

func (f *fixture) input() project.CreateProjectInput {
	return project.CreateProjectInput{
		UserID:            f.owner.ID,
		ShirtType:         "Polo",
		FabricCategory:    "Cotton",
		FabricSubCategory: "Single Jersey",
		FabricSize:        "M",
		LogoPosition:      "Front Chest",
		PrintingStyle:     "Screen Print",
		LogoSize:          "m",
		CuttingStyle:      "regular",
		Quantity:          30,
	}
}

func costs(records []stage.Record) map[stage.Kind]string {
	out := make(map[stage.Kind]string, len(records))
	for _, r := range records {
		if r.Status != stage.StatusInactive {
			out[r.Kind] = r.Cost.StringFixed(2)
		}
	}
	return out
}

func TestService_CreateProject(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	assert.Equal(t, project.StatusActive, p.Status)
	assert.Equal(t, "230340.00", p.TotalEstimatedCost.StringFixed(2))
	assert.Equal(t, map[stage.Kind]string{
		stage.FabricQuantity: "2850.00",
		stage.FabricPricing:  "6750.00",
		stage.LogoPrinting:   "900.00",
		stage.Cutting:        "216000.00",
		stage.Stitching:      "3600.00",
		stage.Packaging:      "240.00",
	}, costs(p.Records))
	for _, r := range p.Records {
		assert.Equal(t, stage.StatusDraft, r.Status)
	}
}

func TestService_CreateProject_WithoutLogo(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.LogoPosition, in.PrintingStyle, in.LogoSize = "", "", ""

	p, err := f.svc.CreateProject(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "229440.00", p.TotalEstimatedCost.StringFixed(2))
	assert.Len(t, p.Records, 5)
	assert.NotContains(t, costs(p.Records), stage.LogoPrinting)
}

func TestService_CreateProject_Errors(t *testing.T) {
	existing := uuid.Must(uuid.NewV4())

	tests := []struct {
		name     string
		mutate   func(in *project.CreateProjectInput)
		wantErr  error
		wantKind apperr.Kind
	}{
		{
			name:     "unknown user",
			mutate:   func(in *project.CreateProjectInput) { in.UserID = uuid.Must(uuid.NewV4()) },
			wantErr:  user.ErrUserNotFound,
			wantKind: apperr.NotFound,
		},
		{
			name:     "duplicate id",
			mutate:   func(in *project.CreateProjectInput) { in.ID = &existing },
			wantErr:  project.ErrDuplicateProject,
			wantKind: apperr.Conflict,
		},
		{
			name:     "zero quantity",
			mutate:   func(in *project.CreateProjectInput) { in.Quantity = 0 },
			wantErr:  project.ErrInvalidInput,
			wantKind: apperr.InvalidInput,
		},
		{
			name:     "missing shirt type",
			mutate:   func(in *project.CreateProjectInput) { in.ShirtType = " " },
			wantErr:  project.ErrInvalidInput,
			wantKind: apperr.InvalidInput,
		},
		{
			name:     "no cutting rate",
			mutate:   func(in *project.CreateProjectInput) { in.CuttingStyle = "bias" },
			wantErr:  rate.ErrRateNotFound,
			wantKind: apperr.Upstream,
		},
		{
			name:     "quantity outside every range",
			mutate:   func(in *project.CreateProjectInput) { in.Quantity = 5000 },
			wantErr:  rate.ErrRateNotFound,
			wantKind: apperr.Upstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			seed := f.input()
			seed.ID = &existing
			_, err := f.svc.CreateProject(context.Background(), seed)
			require.NoError(t, err)
			projects, records := f.projects.Count(), f.stages.Count()

			in := f.input()
			tt.mutate(&in)
			_, err = f.svc.CreateProject(context.Background(), in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))

			// Nothing from the failed call survives.
			assert.Equal(t, projects, f.projects.Count())
			assert.Equal(t, records, f.stages.Count())
		})
	}
}

func TestService_CreateProject_LateStageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.tables.Packaging = nil

	_, err := f.svc.CreateProject(context.Background(), f.input())
	require.ErrorIs(t, err, rate.ErrRateNotFound)

	assert.Zero(t, f.projects.Count())
	assert.Zero(t, f.stages.Count())
	assert.Equal(t, 1, f.tx.Rollbacks)
}

func TestService_EditProject_Unchanged(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)
	writes := f.stages.Writes

	qty := 30
	shirt := "polo"
	edited, err := f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{Quantity: &qty, ShirtType: &shirt})
	require.NoError(t, err)

	assert.True(t, created.TotalEstimatedCost.Equal(edited.TotalEstimatedCost))
	assert.Equal(t, writes, f.stages.Writes, "no stage record is rewritten")

	before := make(map[uuid.UUID]stage.Record, len(created.Records))
	for _, r := range created.Records {
		before[r.ID] = r
	}
	for _, r := range edited.Records {
		assert.True(t, before[r.ID].UpdatedAt.Equal(r.UpdatedAt), "%s updatedAt moved", r.Kind)
		assert.True(t, before[r.ID].Cost.Equal(r.Cost), "%s cost moved", r.Kind)
	}
}

func TestService_EditProject_TrimsAttributes(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	shirt := "  Polo "
	style := " slim\t"
	edited, err := f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{ShirtType: &shirt, CuttingStyle: &style})
	require.NoError(t, err)
	assert.Equal(t, "Polo", edited.ShirtType)
	assert.Equal(t, "slim", edited.CuttingStyle)

	stored, err := f.svc.GetProjectByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Polo", stored.ShirtType)
	assert.Equal(t, "slim", stored.CuttingStyle)
}

func TestService_EditProject_Recomputes(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	qty := 60
	edited, err := f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, 60, edited.Quantity)
	assert.Equal(t, "Polo", edited.ShirtType, "absent fields keep their value")
	assert.Equal(t, "387480.00", edited.TotalEstimatedCost.StringFixed(2))
	assert.Equal(t, "360000.00", costs(edited.Records)[stage.Cutting])

	stored, err := f.svc.GetProjectByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, edited.TotalEstimatedCost.Equal(stored.TotalEstimatedCost))
}

func TestService_EditProject_RemoveAndRestoreLogo(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	empty := ""
	edited, err := f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{
		LogoPosition: &empty, PrintingStyle: &empty, LogoSize: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, "229440.00", edited.TotalEstimatedCost.StringFixed(2))
	assert.NotContains(t, costs(edited.Records), stage.LogoPrinting)

	pos, method, size := "Front Chest", "Screen Print", "xl"
	edited, err = f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{
		LogoPosition: &pos, PrintingStyle: &method, LogoSize: &size,
	})
	require.NoError(t, err)
	assert.Equal(t, "1650.00", costs(edited.Records)[stage.LogoPrinting])
	assert.Equal(t, "231090.00", edited.TotalEstimatedCost.StringFixed(2))
}

func TestService_EditProject_Errors(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	qty := 60
	_, err = f.svc.EditProject(context.Background(), uuid.Must(uuid.NewV4()), project.EditProjectInput{Quantity: &qty})
	require.ErrorIs(t, err, project.ErrProjectNotFound)

	style := "bias"
	_, err = f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{Quantity: &qty, CuttingStyle: &style})
	require.ErrorIs(t, err, rate.ErrRateNotFound)

	stored, err := f.svc.GetProjectByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, stored.Quantity, "failed edit is rolled back")
	assert.True(t, created.TotalEstimatedCost.Equal(stored.TotalEstimatedCost))

	zero := 0
	_, err = f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{Quantity: &zero})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	require.NoError(t, f.svc.DeleteProject(context.Background(), created.ID))
	_, err = f.svc.EditProject(context.Background(), created.ID, project.EditProjectInput{Quantity: &qty})
	require.ErrorIs(t, err, project.ErrProjectInactive)
}

func TestService_DeleteProject(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProject(context.Background(), created.ID))
	require.NoError(t, f.svc.DeleteProject(context.Background(), created.ID), "delete is idempotent")

	stored, err := f.svc.GetProjectByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, project.StatusInactive, stored.Status)
	require.Len(t, stored.Records, 6)
	for _, r := range stored.Records {
		assert.Equal(t, stage.StatusInactive, r.Status, r.Kind.String())
	}

	listed, err := f.svc.ListUserProjects(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.ErrorIs(t, f.svc.DeleteProject(context.Background(), uuid.Must(uuid.NewV4())), project.ErrProjectNotFound)
}

func TestService_TotalIsSumOfStageCosts(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	sizes := []string{"s", "m", "l", "xl", ""}

	p, err := f.svc.CreateProject(context.Background(), f.input())
	require.NoError(t, err)

	for i := range 50 {
		qty := 1 + rng.Intn(1000)
		size := sizes[rng.Intn(len(sizes))]
		pos, method := "Front Chest", "Screen Print"
		if size == "" {
			pos, method = "", ""
		}

		var in project.EditProjectInput
		in.Quantity = &qty
		in.LogoPosition, in.PrintingStyle, in.LogoSize = &pos, &method, &size

		p, err = f.svc.EditProject(context.Background(), p.ID, in)
		require.NoError(t, err, "iteration %d qty %d", i, qty)

		sum := decimal.Zero
		for _, calc := range f.calcs {
			cost, err := calc.ModuleCost(context.Background(), nil, p.ID)
			require.NoError(t, err)
			sum = sum.Add(cost)
		}
		require.True(t, sum.Equal(p.TotalEstimatedCost), "iteration %d qty %d logo %q: total %s, stages %s",
			i, qty, size, p.TotalEstimatedCost, sum)
	}
}
