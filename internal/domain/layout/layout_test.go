package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigtopo/coop-driouch/internal/domain/layout"
)

func TestDetector_Detect(t *testing.T) {
	t.Parallel()
	d := layout.NewDetector(0)
	assert.Equal(t, layout.DefaultBreakpoint, d.Breakpoint)

	cases := []struct {
		width   int
		compact bool
	}{
		{375, true},
		{767, true},
		{768, false},
		{1440, false},
		{0, false},
		{-1, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.compact, d.Detect(tc.width).Compact, "width %d", tc.width)
	}
}

func TestDetector_CustomBreakpoint(t *testing.T) {
	t.Parallel()
	d := layout.NewDetector(1024)
	assert.True(t, d.Detect(800).Compact)
	assert.True(t, layout.Detector{}.Detect(500).Compact)
}
