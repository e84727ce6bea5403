package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigtopo/coop-driouch/internal/application/dataset"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// ContentTypeGeoJSON is the media type of GeoJSON responses.
const ContentTypeGeoJSON = "application/geo+json"

// DatasetReader exposes the loaded data.  *feature.Store satisfies it.
type DatasetReader interface {
	Status() feature.Status
	Snapshot() *feature.Snapshot
}

// FeatureRefresher triggers a manual refresh of the point collection.
type FeatureRefresher interface {
	RefreshFeatures(ctx context.Context) dataset.Outcome
}

// OptionLister returns the filter option sets of the current collection.
type OptionLister interface {
	Options() filter.OptionSets
}

// DatasetHandler serves /api/v1/dataset.
type DatasetHandler struct {
	store     DatasetReader
	refresher FeatureRefresher
	options   OptionLister
}

// NewDatasetHandler creates a DatasetHandler.  refresher may be nil, in
// which case manual refreshes are rejected.
func NewDatasetHandler(store DatasetReader, refresher FeatureRefresher, options OptionLister) *DatasetHandler {
	return &DatasetHandler{store: store, refresher: refresher, options: options}
}

// Status handles GET /api/v1/dataset.
func (h *DatasetHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Status())
}

// Features handles GET /api/v1/dataset/features.
func (h *DatasetHandler) Features(c *gin.Context) {
	snap := h.store.Snapshot()
	if !snap.HasFeatures() {
		writeError(c, apperrors.New(apperrors.ErrCodeDatasetEmpty, "no features loaded yet"))
		return
	}
	data, err := snap.Features.GeoJSON().MarshalJSON()
	if err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encode features"))
		return
	}
	c.Data(http.StatusOK, ContentTypeGeoJSON, data)
}

// Boundary handles GET /api/v1/dataset/boundaries/:name.
func (h *DatasetHandler) Boundary(c *gin.Context) {
	name := feature.Resource(c.Param("name"))
	if !name.IsBoundary() {
		writeError(c, apperrors.InvalidParam("unknown boundary").WithDetail("name="+string(name)))
		return
	}
	b := h.store.Snapshot().Boundary(name)
	if b == nil || b.Data == nil {
		writeError(c, apperrors.New(apperrors.ErrCodeBoundaryNotFound, "boundary overlay not loaded").
			WithDetail("name="+string(name)))
		return
	}
	data, err := b.Data.MarshalJSON()
	if err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encode boundary"))
		return
	}
	c.Data(http.StatusOK, ContentTypeGeoJSON, data)
}

// Options handles GET /api/v1/dataset/options.
func (h *DatasetHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, h.options.Options())
}

// Refresh handles POST /api/v1/dataset/refresh.
func (h *DatasetHandler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		writeError(c, apperrors.New(apperrors.ErrCodeFeatureDisabled, "manual refresh disabled"))
		return
	}
	out := h.refresher.RefreshFeatures(c.Request.Context())
	if out.Err != nil {
		writeError(c, out.Err)
		return
	}
	c.JSON(http.StatusOK, out)
}
