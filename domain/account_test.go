package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReactionTogglesAndSwitches(t *testing.T) {
	acct := Account{Email: "a@b.c"}
	c := Comment{ID: "c1"}

	// First like.
	acct.ApplyReaction(&c, ReactionLike)
	assert.Equal(t, 1, c.Likes)
	assert.Equal(t, 0, c.Dislikes)
	assert.Equal(t, ReactionLike, acct.Reactions["c1"])

	// Same kind again toggles it off.
	acct.ApplyReaction(&c, ReactionLike)
	assert.Equal(t, 0, c.Likes)
	_, has := acct.Reactions["c1"]
	assert.False(t, has)

	// Like then switch to dislike reverses the old counter first.
	acct.ApplyReaction(&c, ReactionLike)
	acct.ApplyReaction(&c, ReactionDislike)
	assert.Equal(t, 0, c.Likes)
	assert.Equal(t, 1, c.Dislikes)
	assert.Equal(t, ReactionDislike, acct.Reactions["c1"])
}

func TestApplyReactionInvariantOverSequences(t *testing.T) {
	acct := Account{Email: "a@b.c"}
	c := Comment{ID: "c1"}

	seq := []ReactionKind{
		ReactionLike, ReactionDislike, ReactionDislike,
		ReactionLike, ReactionLike, ReactionDislike,
		ReactionLike, ReactionDislike, ReactionLike,
	}
	for _, k := range seq {
		acct.ApplyReaction(&c, k)
		assert.GreaterOrEqual(t, c.Likes, 0)
		assert.GreaterOrEqual(t, c.Dislikes, 0)
		assert.LessOrEqual(t, c.Likes+c.Dislikes, 1)
		assert.LessOrEqual(t, len(acct.Reactions), 1)
	}
}

func TestRatingAggregateRunningMean(t *testing.T) {
	var agg RatingAggregate
	scores := []float64{5, 3, 4, 2, 5}
	sum := 0.0
	for i, s := range scores {
		agg.Add(s)
		sum += s
		require.Equal(t, i+1, agg.Count)
		assert.InDelta(t, sum/float64(i+1), agg.Mean, 1e-9)
	}
}

func TestToggleFavorite(t *testing.T) {
	acct := Account{}
	assert.True(t, acct.ToggleFavorite("r1"))
	assert.True(t, acct.IsFavorite("r1"))
	assert.False(t, acct.ToggleFavorite("r1"))
	assert.False(t, acct.IsFavorite("r1"))
}

func TestPublicViewHidesCredentialsAndPrivateActivity(t *testing.T) {
	acct := Account{
		Email:        "User@Example.com",
		PasswordHash: "hash",
		Salt:         "salt",
		Favorites:    []string{"r1"},
		Settings:     AccountSettings{ShowFavorites: false},
	}
	pub := acct.PublicView()
	assert.Empty(t, pub.Favorites)

	acct.Settings.ShowFavorites = true
	assert.Equal(t, []string{"r1"}, acct.PublicView().Favorites)
}

func TestReportResolveTransition(t *testing.T) {
	rep := Report{ID: "rep1", Status: ReportOpen}
	require.NoError(t, rep.Resolve(rep.CreatedAt))
	assert.Equal(t, ReportResolved, rep.Status)
	assert.NotNil(t, rep.ResolvedAt)

	// resolved → resolved is rejected
	assert.Error(t, rep.Resolve(rep.CreatedAt))
}
