package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWireValuesMatchCatalogueOrder(t *testing.T) {
	assert.Equal(t, RequestType(0), UseItem)
	assert.Equal(t, RequestType(1), DropItem)
	assert.Equal(t, RequestType(14), ClearIdle)
}

func TestLocationMarkerKindRange(t *testing.T) {
	assert.True(t, LocationMarkerKind(0).Valid())
	assert.True(t, LocationMarkerKind(71).Valid())
	assert.False(t, LocationMarkerKind(72).Valid())
}
