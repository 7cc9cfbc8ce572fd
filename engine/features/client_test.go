package features

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
)

func init() {
	core.SetLogOutput(io.Discard)
}

const treesResponse = `{
  "objectIdFieldName": "OID",
  "features": [
    {"attributes": {"OID": 7, "class": "Eucalyptus", "height": 20, "rotation": 90},
     "geometry": {"x": 100.5, "y": 200.25, "z": 12}},
    {"attributes": {"OID": 8, "Class": "Oak", "Height": "10", "rotation": null},
     "geometry": {"x": 1, "y": 2}},
    {"attributes": {"OID": 9, "class": "Pine"}, "geometry": null}
  ]
}`

func TestClientQueryDecodesPoints(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/FeatureServer/0/query", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, treesResponse)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/FeatureServer/0/")
	records, err := c.Query(context.Background(), Query{
		Where:          WhereAll,
		OutFields:      []string{"class", "height", "rotation"},
		ReturnGeometry: true,
		ReturnZ:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, "1=1", gotQuery["where"])
	assert.Equal(t, "class,height,rotation", gotQuery["outFields"])
	assert.Equal(t, "true", gotQuery["returnGeometry"])
	assert.Equal(t, "true", gotQuery["returnZ"])
	assert.Equal(t, "json", gotQuery["f"])

	require.Len(t, records, 3)
	first := records[0]
	assert.Equal(t, int64(7), first.ObjectID)
	assert.Equal(t, "Eucalyptus", first.String("class"))
	h, ok := first.Float("height")
	assert.True(t, ok)
	assert.Equal(t, 20.0, h)
	anchor, err := first.Geometry.Anchor()
	require.NoError(t, err)
	assert.Equal(t, [3]float64{100.5, 200.25, 12}, [3]float64(anchor))

	second := records[1]
	assert.Equal(t, "Oak", second.String("class"))
	h, ok = second.Float("height")
	assert.True(t, ok)
	assert.Equal(t, 10.0, h)
	_, ok = second.Float("rotation")
	assert.False(t, ok)

	assert.Nil(t, records[2].Geometry)
}

func TestClientQueryPolygons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "category='Pedestrian'", r.URL.Query().Get("where"))
		_, _ = io.WriteString(w, `{"features":[{"attributes":{"OBJECTID":1},
		  "geometry":{"rings":[[[0,0,2],[4,0,2],[4,4,2],[0,4,2],[0,0,2]]]}}]}`)
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL).Query(context.Background(), Query{Where: "category='Pedestrian'", ReturnGeometry: true, ReturnZ: true})
	require.NoError(t, err)
	require.Len(t, records, 1)

	g := records[0].Geometry
	require.NotNil(t, g)
	assert.Equal(t, GeometryPolygon, g.Type)
	anchor, err := g.Anchor()
	require.NoError(t, err)
	assert.InDelta(t, 2, anchor.X(), 1e-9)
	assert.InDelta(t, 2, anchor.Y(), 1e-9)
	assert.InDelta(t, 2, anchor.Z(), 1e-9)

	ring, err := g.OuterRing()
	require.NoError(t, err)
	assert.Len(t, ring, 5)
}

func TestGeometryRingsKeepHoles(t *testing.T) {
	g := NewPolygonGeometry([][]math.Vec3{
		{{0, 0, 1}, {10, 0, 1}, {10, 10, 1}, {0, 10, 1}, {0, 0, 1}},
		{{4, 4, 2}, {4, 6, 2}, {6, 6, 2}, {6, 4, 2}, {4, 4, 2}},
	})
	rings, err := g.Rings()
	require.NoError(t, err)
	require.Len(t, rings, 2)
	assert.Len(t, rings[1], 5)
	assert.Equal(t, math.Vec3{4, 6, 2}, rings[1][1])

	_, err = NewPointGeometry(1, 2, 3).Rings()
	assert.ErrorIs(t, err, core.ErrUnsupportedGeometry)
}

func TestClientQueryFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		},
		"invalid json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		},
		"no features": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"count": 3}`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewClient(srv.URL).Query(context.Background(), Query{})
			assert.ErrorIs(t, err, core.ErrQueryFailed)
		})
	}
}

func TestClientQueryServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Invalid where clause"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Query(context.Background(), Query{Where: "nope"})
	assert.ErrorIs(t, err, core.ErrQueryFailed)
	assert.ErrorIs(t, err, core.ErrServiceError)
	assert.Contains(t, err.Error(), "Invalid where clause")
}

func TestClientQueryTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Query(context.Background(), Query{})
	assert.ErrorIs(t, err, core.ErrQueryFailed)
}

func TestQueryValuesDefaults(t *testing.T) {
	v := Query{OutSR: 3857}.Values()
	assert.Equal(t, WhereAll, v.Get("where"))
	assert.Equal(t, "*", v.Get("outFields"))
	assert.Equal(t, "false", v.Get("returnZ"))
	assert.Equal(t, "3857", v.Get("outSR"))
}

func TestGeometryAnchorErrors(t *testing.T) {
	var g Geometry
	_, err := g.Anchor()
	assert.ErrorIs(t, err, core.ErrUnsupportedGeometry)

	_, err = NewPointGeometry(1, 2, 3).OuterRing()
	assert.ErrorIs(t, err, core.ErrUnsupportedGeometry)
}
