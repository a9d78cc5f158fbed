package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub/domain"
)

func TestUpsertRecipeIsIdempotent(t *testing.T) {
	st := New()
	r := domain.Recipe{ID: "r1", Name: "Борщ"}

	st.UpsertRecipe(r)
	st.UpsertRecipe(r)

	assert.Equal(t, 1, st.RecipeCount())
	got, ok := st.RecipeByID("r1")
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestUpsertRecipeReplacesInPlace(t *testing.T) {
	st := New()
	st.UpsertRecipe(domain.Recipe{ID: "r1", Name: "Old"})
	st.UpsertRecipe(domain.Recipe{ID: "r2", Name: "Other"})

	st.UpsertRecipe(domain.Recipe{ID: "r1", Name: "New"})

	assert.Equal(t, 2, st.RecipeCount())
	got, _ := st.RecipeByID("r1")
	assert.Equal(t, "New", got.Name)

	// Replacement keeps the original collection position.
	all := st.Recipes()
	assert.Equal(t, "r1", all[0].ID)
}

func TestDeleteRecipeReportsPresence(t *testing.T) {
	st := New()
	st.UpsertRecipe(domain.Recipe{ID: "r1"})

	assert.True(t, st.DeleteRecipe("r1"))
	assert.False(t, st.DeleteRecipe("r1"))
	assert.Equal(t, 0, st.RecipeCount())
}

func TestRecipesByIDsReturnsExactlyTheFound(t *testing.T) {
	st := New()
	st.UpsertRecipe(domain.Recipe{ID: "a"})
	st.UpsertRecipe(domain.Recipe{ID: "b"})

	got := st.RecipesByIDs([]string{"b", "missing"})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	st := New()
	st.UpsertRecipe(domain.Recipe{
		ID:       "r1",
		Name:     "Original",
		Comments: []domain.Comment{{ID: "c1", Replies: []domain.Comment{{ID: "c2"}}}},
		Images:   []domain.RecipeImage{{URL: "u", Status: domain.ImagePending}},
	})

	// Nested slices must be copies too, not shared backing arrays.
	snap := st.Recipes()
	snap[0].Name = "Mutated"
	snap[0].Comments[0].Likes = 99
	snap[0].Comments[0].Replies[0].Text = "mutated"
	snap[0].Images[0].Status = domain.ImageRejected

	got, _ := st.RecipeByID("r1")
	assert.Equal(t, "Original", got.Name)
	assert.Equal(t, 0, got.Comments[0].Likes)
	assert.Empty(t, got.Comments[0].Replies[0].Text)
	assert.Equal(t, domain.ImagePending, got.Images[0].Status)
}

func TestAccountReadsAreDeepCopies(t *testing.T) {
	st := New()
	st.UpsertAccount(domain.Account{
		Email:     "a@b.c",
		Favorites: []string{"r1", "r2"},
		Reactions: map[string]domain.ReactionKind{"c1": domain.ReactionLike},
	})

	snap := st.Accounts()
	snap[0].Favorites[0] = "mutated"
	snap[0].Reactions["c2"] = domain.ReactionDislike

	got, _ := st.AccountByEmail("a@b.c")
	assert.Equal(t, "r1", got.Favorites[0])
	_, has := got.Reactions["c2"]
	assert.False(t, has)

	// The single-record read is just as isolated.
	one, _ := st.AccountByEmail("a@b.c")
	one.Reactions["c1"] = domain.ReactionDislike
	got, _ = st.AccountByEmail("a@b.c")
	assert.Equal(t, domain.ReactionLike, got.Reactions["c1"])
}

func TestTagDirectoryIsDedupedAndSorted(t *testing.T) {
	st := New()
	st.UpsertRecipe(domain.Recipe{ID: "a", Tags: []string{"суп", "обед"}})
	st.UpsertRecipe(domain.Recipe{ID: "b", Tags: []string{"завтрак", "суп"}})

	assert.Equal(t, []string{"завтрак", "обед", "суп"}, st.TagDirectory())

	// Recomputed from the live collection: a delete shows up immediately.
	st.DeleteRecipe("a")
	assert.Equal(t, []string{"завтрак", "суп"}, st.TagDirectory())
}

func TestAccountUpsertKeyedByEmail(t *testing.T) {
	st := New()
	st.UpsertAccount(domain.Account{Email: "a@b.c", Name: "One"})
	st.UpsertAccount(domain.Account{Email: "a@b.c", Name: "Two"})

	accounts := st.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Two", accounts[0].Name)
}

func TestNextDisplayID(t *testing.T) {
	st := New()
	assert.Equal(t, 1, st.NextDisplayID())

	st.UpsertAccount(domain.Account{Email: "a@b.c", DisplayID: 7})
	st.UpsertAccount(domain.Account{Email: "x@y.z", DisplayID: 3})
	assert.Equal(t, 8, st.NextDisplayID())
}

func TestNotificationsForRecipient(t *testing.T) {
	st := New()
	st.UpsertNotification(domain.Notification{ID: "n1", Recipient: "alice"})
	st.UpsertNotification(domain.Notification{ID: "n2", Recipient: "bob"})
	st.UpsertNotification(domain.Notification{ID: "n3", Recipient: "alice"})

	got := st.NotificationsFor("alice")
	require.Len(t, got, 2)
	assert.Equal(t, "n1", got[0].ID)
	assert.Equal(t, "n3", got[1].ID)
}
