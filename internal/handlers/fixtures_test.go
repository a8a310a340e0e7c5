package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/dataset"
	"github.com/DennisWilmot/land-mapping-web/internal/division"
	apierrors "github.com/DennisWilmot/land-mapping-web/internal/errors"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/middleware"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/repository"
	"github.com/DennisWilmot/land-mapping-web/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func square(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}
}

func ptr[T any](v T) *T { return &v }

// fixtureLoader serves a 4x4 boundary split into Mango Hill (Northern, top)
// and Spanish Town (Central, bottom), with parcel 1 in the north, parcel 2 in
// the centre and parcel 3 outside both.
func fixtureLoader(t *testing.T) dataset.Loader {
	t.Helper()
	parcels, err := models.NewParcelSet([]*models.Parcel{
		{Geometry: square(0.5, 2.5, 1), Properties: models.ParcelProperties{ObjectID: 1, LVNumber: "A1", AreaSqM: ptr(500.0), AddressLabel: "1 Hill Rd"}},
		{Geometry: square(2.5, 0.5, 1), Properties: models.ParcelProperties{ObjectID: 2, LVNumber: "B2", AreaSqM: ptr(1500.0)}},
		{Geometry: square(5, 5, 1), Properties: models.ParcelProperties{ObjectID: 3}},
	})
	require.NoError(t, err)

	ds := &dataset.Dataset{
		Boundary: square(0, 0, 4),
		Parcels:  parcels,
		Owners: models.NewOwnerLookup([]models.Owner{
			{ValuationNumber: "A1", Name: "Jane Brown"},
		}),
		Communities: []division.Community{
			{Name: "Mango Hill", Geometry: orb.Polygon{{{0, 2}, {4, 2}, {4, 4}, {0, 4}, {0, 2}}}},
			{Name: "Spanish Town", Geometry: orb.Polygon{{{0, 0}, {4, 0}, {4, 2}, {0, 2}, {0, 0}}}},
		},
	}
	return dataset.LoaderFunc(func(context.Context) (*dataset.Dataset, error) { return ds, nil })
}

type testApp struct {
	router    *gin.Engine
	parcels   services.ParcelService
	projects  services.ProjectService
	selection services.SelectionService
	store     repository.SelectionRepository
}

// newTestApp wires the real services over the fixture dataset. load=false
// leaves the parcel service without a snapshot.
func newTestApp(t *testing.T, load bool) *testApp {
	t.Helper()
	return newTestAppWithLoader(t, fixtureLoader(t), load)
}

func newTestAppWithLoader(t *testing.T, loader dataset.Loader, load bool) *testApp {
	t.Helper()
	log := logger.Nop()

	parcels, err := services.NewParcelService(loader, config.ClassificationConfig{
		Divisions:    config.DefaultDivisionRules(),
		SpatialIndex: division.IndexLinear,
		CacheSize:    1,
	}, log)
	require.NoError(t, err)
	if load {
		_, err = parcels.Reload(context.Background())
		require.NoError(t, err)
	}

	store := repository.NewMemorySelectionRepository()
	projects := services.NewProjectService(context.Background(), store, log)
	sel := services.NewSelectionService(parcels, projects, log)

	app := &testApp{
		parcels:   parcels,
		projects:  projects,
		selection: sel,
		store:     store,
	}
	app.router = newRouter(Handlers{
		Health:    NewHealthHandler(parcels, store, "test"),
		Parcels:   NewParcelHandler(parcels),
		Selection: NewSelectionHandler(sel),
		Projects:  NewProjectHandler(projects, sel),
	})
	return app
}

func newRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Nop()))
	router.Use(middleware.Recovery(logger.Nop()))
	Register(router, h)
	return router
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, a.router, method, path, body)
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierrors.ErrorResponse](t, w).Error.Code
}
