package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardenoak/storefront/internal/catalog"
)

func TestMergeAddsQuantitiesForMatchingKeys(t *testing.T) {
	t.Parallel()

	productX := testProduct("x", 10000)
	sel := Selection{Color: catalog.Named("Black")}

	var guest Lines
	guest = guest.Add(productX, 2, sel)

	var backend Lines
	backend = backend.Add(productX, 3, sel)

	merged := Merge(backend, guest)
	require.Len(t, merged, 1)
	assert.Equal(t, 5, merged[0].Quantity)
}

func TestMergePreservesGuestOnlyLines(t *testing.T) {
	t.Parallel()

	var guest Lines
	guest = guest.Add(testProduct("q", 5000), 1, Selection{Finish: catalog.Named("Walnut")})

	var backend Lines
	backend = backend.Add(testProduct("x", 10000), 3, Selection{})

	merged := Merge(backend, guest)
	require.Len(t, merged, 2)
	assert.Equal(t, "x", merged[0].ProductID)
	assert.Equal(t, "q", merged[1].ProductID)
	assert.Equal(t, 1, merged[1].Quantity)
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	t.Parallel()

	productX := testProduct("x", 10000)
	sel := Selection{}

	var guest Lines
	guest = guest.Add(productX, 2, sel)

	var backend Lines
	backend = backend.Add(productX, 3, sel)

	_ = Merge(backend, guest)
	assert.Equal(t, 3, backend[0].Quantity)
	assert.Equal(t, 2, guest[0].Quantity)
}

func TestMergeWithEmptySides(t *testing.T) {
	t.Parallel()

	var guest Lines
	guest = guest.Add(testProduct("x", 10000), 2, Selection{})

	assert.Len(t, Merge(nil, guest), 1)
	assert.Len(t, Merge(guest, nil), 1)
	assert.Empty(t, Merge(nil, nil))
}
