package features

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
)

const DefaultTimeout = 30 * time.Second

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

var tracer = otel.Tracer("github.com/spaghettifunk/campusmap/engine/features")

// Client queries a feature service layer over HTTP, e.g.
// https://host/arcgis/rest/services/Trees/FeatureServer/0.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs q and decodes every returned feature. Any transport, status or
// service error fails the whole query.
func (c *Client) Query(ctx context.Context, q Query) ([]FeatureRecord, error) {
	ctx, span := tracer.Start(ctx, "features.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("features.endpoint", c.endpoint),
		attribute.String("features.where", q.Where),
	)

	records, err := c.query(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("features.count", len(records)))
	return records, nil
}

func (c *Client) query(ctx context.Context, q Query) ([]FeatureRecord, error) {
	u := c.endpoint + "/query?" + q.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrQueryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrQueryFailed, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", core.ErrQueryFailed, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", core.ErrQueryFailed, c.endpoint, res.Status)
	}
	return DecodeFeatureSet(body)
}

// DecodeFeatureSet parses a feature set in the Esri JSON format.
func DecodeFeatureSet(body []byte) ([]FeatureRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", core.ErrQueryFailed)
	}
	doc := gjson.ParseBytes(body)

	// Services report failures in a 200 response.
	if e := doc.Get("error"); e.Exists() {
		return nil, fmt.Errorf("%w: %w: code %d: %s", core.ErrQueryFailed, core.ErrServiceError,
			e.Get("code").Int(), e.Get("message").String())
	}
	features := doc.Get("features")
	if !features.IsArray() {
		return nil, fmt.Errorf("%w: response has no features array", core.ErrQueryFailed)
	}
	oidField := doc.Get("objectIdFieldName").String()

	out := make([]FeatureRecord, 0, len(features.Array()))
	for _, f := range features.Array() {
		rec := FeatureRecord{Attributes: make(map[string]interface{})}
		f.Get("attributes").ForEach(func(key, value gjson.Result) bool {
			rec.Attributes[key.String()] = value.Value()
			return true
		})
		rec.ObjectID = objectID(rec, oidField)
		rec.Geometry = decodeGeometry(f.Get("geometry"))
		out = append(out, rec)
	}
	return out, nil
}

func objectID(rec FeatureRecord, field string) int64 {
	for _, name := range []string{field, "OBJECTID", "FID"} {
		if name == "" {
			continue
		}
		if v, ok := rec.Float(name); ok {
			return int64(v)
		}
	}
	return 0
}

// decodeGeometry returns nil for missing or unsupported shapes; those
// records fail individually when converted.
func decodeGeometry(g gjson.Result) *Geometry {
	if !g.Exists() || g.Type == gjson.Null {
		return nil
	}
	if x := g.Get("x"); x.Exists() {
		return NewPointGeometry(x.Float(), g.Get("y").Float(), g.Get("z").Float())
	}
	rings := g.Get("rings")
	if !rings.IsArray() {
		return nil
	}
	var out [][]math.Vec3
	for _, r := range rings.Array() {
		var ring []math.Vec3
		for _, c := range r.Array() {
			xyz := c.Array()
			if len(xyz) < 2 {
				continue
			}
			v := math.Vec3{xyz[0].Float(), xyz[1].Float(), 0}
			if len(xyz) > 2 {
				v[2] = xyz[2].Float()
			}
			ring = append(ring, v)
		}
		out = append(out, ring)
	}
	return NewPolygonGeometry(out)
}
