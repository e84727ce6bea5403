package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb/geojson"
)

// ResourceStatus is the last fetch of one published resource.
type ResourceStatus struct {
	State     string    `json:"state"`
	HasData   bool      `json:"has_data"`
	Count     int       `json:"count,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DatasetStatus is the body of GET /api/v1/dataset.  State is one of
// "loading", "empty" or "ready".
type DatasetStatus struct {
	State       string                    `json:"state"`
	Version     uint64                    `json:"version"`
	LastUpdated time.Time                 `json:"last_updated,omitempty"`
	Resources   map[string]ResourceStatus `json:"resources"`
}

// Ready reports whether the cooperative collection is loaded.
func (s DatasetStatus) Ready() bool { return s.State == "ready" }

// RefreshOutcome is the result of a manual refresh.
type RefreshOutcome struct {
	Resource string        `json:"resource"`
	Applied  bool          `json:"applied"`
	Skipped  bool          `json:"skipped,omitempty"`
	Changed  bool          `json:"changed,omitempty"`
	Count    int           `json:"count"`
	Digest   string        `json:"digest,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// OptionSets lists the selectable filter values.
type OptionSets struct {
	Communes   []string `json:"communes"`
	Genres     []string `json:"genres"`
	Sectors    []string `json:"sectors"`
	Educations []string `json:"educations"`
}

// DatasetClient reads the published dataset.
type DatasetClient struct {
	client *Client
}

// Status returns the dataset status.
func (d *DatasetClient) Status(ctx context.Context) (*DatasetStatus, error) {
	var st DatasetStatus
	if err := d.client.get(ctx, "/api/v1/dataset", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Features returns the cooperative collection.
func (d *DatasetClient) Features(ctx context.Context) (*geojson.FeatureCollection, error) {
	return d.collection(ctx, "/api/v1/dataset/features")
}

// Boundary returns the "province" or "communes" overlay.
func (d *DatasetClient) Boundary(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	return d.collection(ctx, "/api/v1/dataset/boundaries/"+url.PathEscape(name))
}

func (d *DatasetClient) collection(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	var raw []byte
	if err := d.client.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(raw)
}

// Options returns the filter option sets.
func (d *DatasetClient) Options(ctx context.Context) (*OptionSets, error) {
	var o OptionSets
	if err := d.client.get(ctx, "/api/v1/dataset/options", &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Refresh asks the server to refetch the cooperative collection.  It is not
// retried: a failed refresh is reported as an *APIError.
func (d *DatasetClient) Refresh(ctx context.Context) (*RefreshOutcome, error) {
	var out RefreshOutcome
	if err := d.client.request(ctx, http.MethodPost, "/api/v1/dataset/refresh", nil, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
