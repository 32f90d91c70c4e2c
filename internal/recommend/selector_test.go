package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	catAndBrand []Candidate
	cat         []Candidate
	any         []Candidate
}

func filterAndCap(pool []Candidate, exclude []int64, limit int) []Candidate {
	excluded := map[int64]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	var out []Candidate
	for _, c := range pool {
		if excluded[c.ID] {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (m *mockRepository) SameCategoryAndBrand(_ context.Context, _, _ int64, exclude []int64, limit int) ([]Candidate, error) {
	return filterAndCap(m.catAndBrand, exclude, limit), nil
}

func (m *mockRepository) SameCategory(_ context.Context, _ int64, exclude []int64, limit int) ([]Candidate, error) {
	return filterAndCap(m.cat, exclude, limit), nil
}

func (m *mockRepository) AnyActive(_ context.Context, exclude []int64, limit int) ([]Candidate, error) {
	return filterAndCap(m.any, exclude, limit), nil
}

func ids(picks []Candidate) []int64 {
	out := make([]int64, 0, len(picks))
	for _, c := range picks {
		out = append(out, c.ID)
	}
	return out
}

func TestRecommendFirstTierFillsLimit(t *testing.T) {
	repo := &mockRepository{
		catAndBrand: []Candidate{{ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
	}
	sel := NewSelector(repo, nil, 3)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids(picks))
}

func TestRecommendFallsThroughTiers(t *testing.T) {
	repo := &mockRepository{
		catAndBrand: []Candidate{{ID: 2}},
		cat:         []Candidate{{ID: 2}, {ID: 3}},
		any:         []Candidate{{ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
	}
	sel := NewSelector(repo, nil, 3)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids(picks))
}

func TestRecommendExcludesSourceProduct(t *testing.T) {
	repo := &mockRepository{
		catAndBrand: []Candidate{{ID: 1}, {ID: 2}},
		any:         []Candidate{{ID: 1}, {ID: 3}},
	}
	sel := NewSelector(repo, nil, 3)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.NotContains(t, ids(picks), int64(1))
}

func TestRecommendNeverDuplicates(t *testing.T) {
	repo := &mockRepository{
		catAndBrand: []Candidate{{ID: 2}},
		cat:         []Candidate{{ID: 2}},
		any:         []Candidate{{ID: 2}, {ID: 3}},
	}
	sel := NewSelector(repo, nil, 3)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(picks))
}

func TestRecommendSparseCatalog(t *testing.T) {
	sel := NewSelector(&mockRepository{}, nil, 3)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestRecommendDefaultLimit(t *testing.T) {
	repo := &mockRepository{
		any: []Candidate{{ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}, {ID: 6}},
	}
	sel := NewSelector(repo, nil, 0)

	picks, err := sel.Recommend(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.Len(t, picks, 3)
}
