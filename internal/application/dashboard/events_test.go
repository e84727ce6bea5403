package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

func TestEvent_Validate(t *testing.T) {
	open := true
	cases := []struct {
		name string
		ev   Event
		code apperrors.ErrorCode
	}{
		{"unknown type", Event{Type: "fly"}, apperrors.ErrCodeUnknownEvent},
		{"empty type", Event{}, apperrors.ErrCodeUnknownEvent},
		{"select without id", Event{Type: EventSelect}, apperrors.ErrCodeBadRequest},
		{"select bad source", Event{Type: EventSelect, FeatureID: "1", Source: "keyboard"}, apperrors.ErrCodeBadRequest},
		{"pick without id", Event{Type: EventPickSuggestion}, apperrors.ErrCodeBadRequest},
		{"filters missing", Event{Type: EventSetFilters}, apperrors.ErrCodeBadRequest},
		{"sidebar missing", Event{Type: EventSetSidebar}, apperrors.ErrCodeBadRequest},
		{"layer missing", Event{Type: EventSetLayer}, apperrors.ErrCodeBadRequest},
		{"select ok", Event{Type: EventSelect, FeatureID: "1", Source: "map"}, apperrors.CodeOK},
		{"filters ok", Event{Type: EventSetFilters, Filters: &filter.Predicates{}}, apperrors.CodeOK},
		{"sidebar ok", Event{Type: EventSetSidebar, Open: &open}, apperrors.CodeOK},
		{"resize ok", Event{Type: EventResize, ViewportWidth: 400}, apperrors.CodeOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, apperrors.GetCode(tc.ev.Validate()))
		})
	}
}
