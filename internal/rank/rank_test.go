package rank

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlauncher/lumen/internal/match"
)

func scored(id string, score, labelLen int) match.Scored {
	return match.Scored{ItemID: id, Label: id, LabelLen: labelLen, Score: score}
}

func requireRanked(t *testing.T, out []match.Scored) {
	t.Helper()
	for i := 1; i < len(out); i++ {
		require.False(t, Before(out[i], out[i-1]),
			"out[%d] (%v) ranks before out[%d] (%v)", i, out[i], i-1, out[i-1])
	}
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	in := []match.Scored{
		scored("a", 10, 5),
		scored("b", 30, 5),
		scored("c", 20, 5),
	}

	out := Rank(in, 0)
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].ItemID)
	assert.Equal(t, "c", out[1].ItemID)
	assert.Equal(t, "a", out[2].ItemID)
}

func TestRank_TieBreaks(t *testing.T) {
	in := []match.Scored{
		scored("z", 10, 20),
		scored("m", 10, 8),
		scored("a", 10, 20),
	}

	out := Rank(in, 0)
	require.Len(t, out, 3)
	// Equal score: shorter label first, then id ascending.
	assert.Equal(t, "m", out[0].ItemID)
	assert.Equal(t, "a", out[1].ItemID)
	assert.Equal(t, "z", out[2].ItemID)
}

func TestRank_CapTruncates(t *testing.T) {
	var in []match.Scored
	for i := 0; i < 100; i++ {
		in = append(in, scored(string(rune('a'+i%26))+string(rune('0'+i/26)), i, 10))
	}

	out := Rank(in, 10)
	require.Len(t, out, 10)
	requireRanked(t, out)
	assert.Equal(t, 99, out[0].Score)
	assert.Equal(t, 90, out[9].Score)
}

func TestRank_CapLargerThanInput(t *testing.T) {
	in := []match.Scored{scored("a", 1, 1), scored("b", 2, 1)}
	out := Rank(in, 50)
	assert.Len(t, out, 2)
	requireRanked(t, out)
}

func TestRank_EmptyInput(t *testing.T) {
	assert.Empty(t, Rank(nil, 10))
	assert.Empty(t, Rank([]match.Scored{}, 10))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []match.Scored{scored("b", 1, 1), scored("a", 2, 1)}
	_ = Rank(in, 0)
	assert.Equal(t, "b", in[0].ItemID)
	assert.Equal(t, "a", in[1].ItemID)
}

func TestRank_PartialSelectionMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var in []match.Scored
	for i := 0; i < 500; i++ {
		in = append(in, scored(
			string(rune('a'+rng.Intn(26)))+string(rune('a'+rng.Intn(26)))+string(rune('a'+i%26))+string(rune('0'+i%10)),
			rng.Intn(40),
			1+rng.Intn(30)))
	}

	full := Rank(in, 0)
	partial := Rank(in, 25)

	require.Len(t, partial, 25)
	assert.Equal(t, full[:25], partial)
}

func TestRank_DeterministicAcrossShuffles(t *testing.T) {
	base := []match.Scored{
		scored("a", 5, 3), scored("b", 5, 3), scored("c", 5, 2),
		scored("d", 9, 9), scored("e", 1, 1), scored("f", 5, 3),
	}

	want := Rank(base, 4)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]match.Scored(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, Rank(shuffled, 4))
	}
}
