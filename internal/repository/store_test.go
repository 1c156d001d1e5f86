package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadagent/internal/logger"
	"leadagent/internal/model"
)

func ptr[T any](v T) *T {
	return &v
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(DriverSQLite, ":memory:", SQLOptions{}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var testCatalog = []model.Property{
	{ID: 1, AgencyID: ptr(int64(1)), Title: ptr("Loft"), Area: "Downtown", Price: 105000},
	{ID: 2, AgencyID: ptr(int64(1)), Area: "Zona Norte", Price: 250000000},
	{ID: 3, AgencyID: ptr(int64(2)), Area: "Pasto centro", Price: 400000000},
}

// storeFactories builds every Store implementation with testCatalog loaded
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore(testCatalog) },
		"sqlite": func(t *testing.T) Store {
			s := newSQLiteStore(t)
			n, err := s.SeedProperties(context.Background(), testCatalog)
			require.NoError(t, err)
			require.Equal(t, len(testCatalog), n)
			return s
		},
	}
}

func TestStore_InsertFindUpdate(t *testing.T) {
	for name, build := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			lead := model.NewLead(model.LeadPatch{
				AgencyID: ptr(int64(1)),
				Phone:    ptr("+573001112233"),
				Budget:   ptr(int64(400000000)),
			})
			created, err := s.Insert(ctx, lead)
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.Equal(t, model.LeadStatusNew, created.Status)
			assert.Equal(t, model.DefaultLeadName, created.FullName)
			assert.False(t, created.CreatedAt.IsZero())

			found, err := s.FindOne(ctx, LeadFilter{Phone: ptr("+573001112233"), AgencyID: ptr(int64(1))})
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, created.ID, found.ID)
			require.NotNil(t, found.Budget)
			assert.Equal(t, int64(400000000), *found.Budget)

			other, err := s.FindOne(ctx, LeadFilter{Phone: ptr("+573001112233"), AgencyID: ptr(int64(2))})
			require.NoError(t, err)
			assert.Nil(t, other, "agency scope must narrow the lookup")

			none, err := s.FindOne(ctx, LeadFilter{})
			require.NoError(t, err)
			assert.Nil(t, none)

			tier := model.TierA
			updated, err := s.Update(ctx, created.ID, model.LeadPatch{
				Tier:  &tier,
				Email: ptr("Ana@Example.com"),
			})
			require.NoError(t, err)
			assert.Equal(t, model.TierA, updated.Tier)
			require.NotNil(t, updated.Budget, "unsupplied fields keep their value")
			assert.Equal(t, int64(400000000), *updated.Budget)
			require.NotNil(t, updated.Phone)

			byEmail, err := s.FindOne(ctx, LeadFilter{Email: ptr("ana@example.com")})
			require.NoError(t, err)
			require.NotNil(t, byEmail)
			assert.Equal(t, created.ID, byEmail.ID)

			_, err = s.Update(ctx, 9999, model.LeadPatch{Tier: &tier})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_FindByUserID(t *testing.T) {
	for name, build := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			_, err := s.Insert(ctx, model.NewLead(model.LeadPatch{UserID: ptr(int64(42)), FullName: ptr("Ana")}))
			require.NoError(t, err)

			found, err := s.FindOne(ctx, LeadFilter{UserID: ptr(int64(42))})
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "Ana", found.FullName)

			missing, err := s.FindOne(ctx, LeadFilter{UserID: ptr(int64(7))})
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestStore_ListGetDelete(t *testing.T) {
	for name, build := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			var ids []int64
			for i, agency := range []int64{1, 1, 2} {
				l, err := s.Insert(ctx, model.NewLead(model.LeadPatch{
					AgencyID: ptr(agency),
					Phone:    ptr("+5730000000" + string(rune('0'+i))),
				}))
				require.NoError(t, err)
				ids = append(ids, l.ID)
			}

			all, err := s.List(ctx, ListFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 3)

			scoped, err := s.List(ctx, ListFilter{AgencyID: ptr(int64(1))})
			require.NoError(t, err)
			assert.Len(t, scoped, 2)

			page, err := s.List(ctx, ListFilter{Limit: 1, Offset: 1})
			require.NoError(t, err)
			assert.Len(t, page, 1)

			got, err := s.Get(ctx, ids[2], ptr(int64(1)))
			require.NoError(t, err)
			assert.Nil(t, got, "lead belongs to another agency")

			got, err = s.Get(ctx, ids[2], nil)
			require.NoError(t, err)
			require.NotNil(t, got)

			_, err = s.Append(ctx, model.Interaction{LeadID: ids[0], Channel: "web", Direction: model.DirectionInbound, Message: "hola"})
			require.NoError(t, err)

			require.NoError(t, s.Delete(ctx, ids[0], nil))
			assert.ErrorIs(t, s.Delete(ctx, ids[0], nil), ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, ids[2], ptr(int64(1))), ErrNotFound)

			items, err := s.ListByLead(ctx, ids[0])
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestStore_Interactions(t *testing.T) {
	for name, build := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			lead, err := s.Insert(ctx, model.NewLead(model.LeadPatch{}))
			require.NoError(t, err)

			in, err := s.Append(ctx, model.Interaction{LeadID: lead.ID, Channel: "whatsapp", Direction: model.DirectionInbound, Message: "busco casa"})
			require.NoError(t, err)
			assert.NotZero(t, in.ID)
			_, err = s.Append(ctx, model.Interaction{LeadID: lead.ID, Channel: "whatsapp", Direction: model.DirectionOutbound, Message: "Detected -> type: house"})
			require.NoError(t, err)

			items, err := s.ListByLead(ctx, lead.ID)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, model.DirectionOutbound, items[0].Direction, "newest first")
			assert.Equal(t, "busco casa", items[1].Message)
		})
	}
}

func TestStore_Catalog(t *testing.T) {
	for name, build := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := build(t)

			all, err := s.ListProperties(ctx, nil)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			agency1, err := s.ListProperties(ctx, ptr(int64(1)))
			require.NoError(t, err)
			require.Len(t, agency1, 2)
			assert.Equal(t, "Downtown", agency1[0].Area)
			assert.InDelta(t, 105000.0, agency1[0].Price, 1e-9)

			p, err := s.GetProperty(ctx, 3)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "Pasto centro", p.Area)

			missing, err := s.GetProperty(ctx, 99)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestMemoryStore_AppendRequiresLead(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Append(context.Background(), model.Interaction{LeadID: 5, Message: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewSQLStore_RejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLStore("mysql", "dsn", SQLOptions{}, logger.Nop())
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `properties:
  - id: 10
    agency_id: 1
    title: Loft
    area: Downtown
    price: 105000
  - area: Zona Norte
    price: 2.5e8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	props, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, int64(10), props[0].ID)
	require.NotNil(t, props[0].AgencyID)
	assert.Equal(t, int64(1), *props[0].AgencyID)
	assert.Equal(t, "Loft", *props[0].Title)
	assert.InDelta(t, 250000000.0, props[1].Price, 1e-6)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("properties:\n  - title: nothing useful\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("properties: [unclosed"))
	assert.Error(t, err)
}

func TestSQLStore_SeedPropertiesAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leads.db")
	catalog := append(append([]model.Property{}, testCatalog...),
		model.Property{AgencyID: ptr(int64(1)), Area: "Chapinero", Price: 300000})

	boot := func() (*SQLStore, int) {
		s, err := NewSQLStore(DriverSQLite, path, SQLOptions{}, logger.Nop())
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		n, err := s.SeedProperties(ctx, catalog)
		require.NoError(t, err)
		return s, n
	}

	first, n := boot()
	assert.Equal(t, len(catalog), n)
	require.NoError(t, first.Close())

	second, n := boot()
	defer second.Close()
	assert.Zero(t, n)

	all, err := second.ListProperties(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(catalog))
}
