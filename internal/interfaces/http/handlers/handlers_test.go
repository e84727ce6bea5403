package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/application/dashboard"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func loadedStore(t *testing.T, withProvince bool) *feature.Store {
	t.Helper()
	st := feature.NewStore()
	col, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)
	require.NoError(t, st.SetFeatures(st.Begin(feature.ResourceFeatures), col))
	if withProvince {
		b, err := feature.ParseBoundary(feature.ResourceProvince, []byte(testutil.ProvinceJSON))
		require.NoError(t, err)
		require.NoError(t, st.SetBoundary(st.Begin(feature.ResourceProvince), b))
	}
	return st
}

func newManager(store *feature.Store) *dashboard.Manager {
	return dashboard.NewManager(store, dashboard.Config{}, testutil.NewMockLogger())
}

func do(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorChecker struct{ err error }

func (errorChecker) Name() string                  { return "redis" }
func (e errorChecker) Check(context.Context) error { return e.err }
