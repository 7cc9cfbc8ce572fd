package features

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// WhereAll is the filter selecting every record.
const WhereAll = "1=1"

// Query describes one request against a feature source. Where is an
// attribute expression evaluated by the service, e.g. "category='Pedestrian'".
type Query struct {
	Where          string
	OutFields      []string
	ReturnGeometry bool
	ReturnZ        bool
	// Spatial reference WKID of the returned geometries, 0 keeps the service default.
	OutSR int
}

// Values encodes the query as feature service request parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	where := strings.TrimSpace(q.Where)
	if where == "" {
		where = WhereAll
	}
	v.Set("where", where)
	fields := "*"
	if len(q.OutFields) > 0 {
		fields = strings.Join(q.OutFields, ",")
	}
	v.Set("outFields", fields)
	v.Set("returnGeometry", strconv.FormatBool(q.ReturnGeometry))
	v.Set("returnZ", strconv.FormatBool(q.ReturnZ))
	if q.OutSR != 0 {
		v.Set("outSR", strconv.Itoa(q.OutSR))
	}
	v.Set("f", "json")
	return v
}

// Source is anything that answers feature queries.
type Source interface {
	Query(ctx context.Context, q Query) ([]FeatureRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) ([]FeatureRecord, error)

func (f SourceFunc) Query(ctx context.Context, q Query) ([]FeatureRecord, error) {
	return f(ctx, q)
}
