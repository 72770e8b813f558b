package assemble

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/playbook"
)

var errStoreDown = errors.New("store down")

func nilLogger() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

type mockSource struct {
	profile    domain.Profile
	profileErr error
	history    []HistoryRecord
	historyErr error
}

func (m *mockSource) FetchProfile(_ context.Context, _ string) (domain.Profile, error) {
	return m.profile, m.profileErr
}

func (m *mockSource) FetchHistory(_ context.Context, _ string, _ int) ([]HistoryRecord, error) {
	return m.history, m.historyErr
}

func testPlaybooks(t *testing.T) *playbook.Store {
	t.Helper()

	store, err := playbook.Parse([]byte(`
playbooks:
  - category: restaurant
    drivers: [foot traffic]
    risks: [cost inflation]
`), nil)
	require.NoError(t, err)

	return store
}

func fullProfile() domain.Profile {
	return domain.Profile{
		SubjectID: "s1",
		Name:      "Cafe Lumen",
		Category:  "restaurant",
		Locale:    "de-DE",
		Currency:  "EUR",
		Scale:     map[string]string{"seats": "40"},
	}
}

func TestAssembleFullContext(t *testing.T) {
	source := &mockSource{
		profile: fullProfile(),
		history: []HistoryRecord{
			{ArtifactID: "old", Title: "old one", CreatedAt: "2026-07-01T10:00:00Z"},
			{ArtifactID: "new", Title: "new one", CreatedAt: "2026-08-15 09:30:00"},
		},
	}

	a := New(source, testPlaybooks(t), 20, nil)

	bundle, err := a.Assemble(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", bundle.SubjectID)
	assert.Equal(t, "restaurant", bundle.Playbook.Category)
	assert.Equal(t, 100, bundle.QualityHints.Completeness)

	// History is normalized most-recent-first despite mixed timestamp formats.
	require.Len(t, bundle.History, 2)
	assert.Equal(t, "new", bundle.History[0].ArtifactID)
	assert.Equal(t, "old", bundle.History[1].ArtifactID)
}

func TestAssembleUnknownSubject(t *testing.T) {
	source := &mockSource{profileErr: coreerrors.ErrSubjectNotFound}

	a := New(source, testPlaybooks(t), 20, nil)

	_, err := a.Assemble(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrContextUnavailable))
}

func TestAssembleProfileInfrastructureErrorPropagates(t *testing.T) {
	// A transient store failure is not a missing subject; it must surface as
	// an ordinary error so the caller can retry later.
	source := &mockSource{profileErr: errStoreDown}

	a := New(source, testPlaybooks(t), 20, nil)

	_, err := a.Assemble(context.Background(), "s1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, coreerrors.ErrContextUnavailable))
	assert.True(t, errors.Is(err, errStoreDown))
}

func TestAssembleDegradesOnHistoryFailure(t *testing.T) {
	source := &mockSource{
		profile:    fullProfile(),
		historyErr: errStoreDown,
	}

	a := New(source, testPlaybooks(t), 20, nil)

	bundle, err := a.Assemble(context.Background(), "s1")
	require.NoError(t, err)

	assert.Empty(t, bundle.History)
	assert.Equal(t, 100-25, bundle.QualityHints.Completeness)
}

func TestCompletenessWeights(t *testing.T) {
	tests := []struct {
		name     string
		profile  domain.Profile
		history  []domain.HistoryEntry
		pbFound  bool
		expected int
	}{
		{
			name:     "profile only",
			profile:  domain.Profile{Name: "x"},
			expected: 40,
		},
		{
			name:     "profile and playbook",
			profile:  domain.Profile{Name: "x"},
			pbFound:  true,
			expected: 60,
		},
		{
			name:     "locale without currency earns nothing",
			profile:  domain.Profile{Name: "x", Locale: "de-DE"},
			expected: 40,
		},
		{
			name:     "everything",
			profile:  domain.Profile{Name: "x", Locale: "de-DE", Currency: "EUR", Scale: map[string]string{"a": "b"}},
			history:  []domain.HistoryEntry{{ArtifactID: "h"}},
			pbFound:  true,
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, completeness(tt.profile, tt.history, tt.pbFound))
		})
	}
}

func TestNormalizeHistoryUnparseableTimestamp(t *testing.T) {
	records := []HistoryRecord{
		{ArtifactID: "bad", CreatedAt: "not a date"},
		{ArtifactID: "good", CreatedAt: "2026-08-01T00:00:00Z"},
	}

	entries := normalizeHistory(records, nilLogger())

	require.Len(t, entries, 2)
	// The entry with a parsed timestamp sorts first; the unparseable one
	// keeps its zero time but is not dropped.
	assert.Equal(t, "good", entries[0].ArtifactID)
	assert.Equal(t, "bad", entries[1].ArtifactID)
	assert.True(t, entries[1].CreatedAt.IsZero())
}
