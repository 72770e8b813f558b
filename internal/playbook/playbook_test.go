package playbook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

const validPack = `
playbooks:
  - category: restaurant
    drivers:
      - foot traffic
    risks:
      - cost inflation
    seasonal_factors:
      - summer terrace
    voice: practical
  - category: ecommerce
    drivers:
      - paid acquisition
`

func TestParseValidPack(t *testing.T) {
	store, err := Parse([]byte(validPack), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"ecommerce", "restaurant"}, store.Categories())

	pb, ok := store.Get("restaurant")
	require.True(t, ok)
	assert.Equal(t, []string{"foot traffic"}, pb.Drivers)
	assert.Equal(t, "practical", pb.Voice)

	_, ok = store.Get("unknown")
	assert.False(t, ok)
}

func TestParseRequiredCategories(t *testing.T) {
	_, err := Parse([]byte(validPack), []string{"restaurant", "fitness"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrUnknownCategory))
	assert.Contains(t, err.Error(), "fitness")
}

func TestParseRejectsMissingCategory(t *testing.T) {
	_, err := Parse([]byte("playbooks:\n  - drivers: [x]\n"), nil)
	assert.Error(t, err)
}

func TestParseRejectsDuplicateCategory(t *testing.T) {
	raw := "playbooks:\n  - category: a\n  - category: a\n"

	_, err := Parse([]byte(raw), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("playbooks: ["), nil)
	assert.Error(t, err)
}
