package domain

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Role controls access to staff operations.
type Role string

const (
	RoleMember        Role = "member"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// IsStaff reports whether the role may perform moderation actions.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdministrator
}

// ReactionKind is one of the two comment reaction choices.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// AccountSettings holds per-account visibility toggles and dietary tags.
type AccountSettings struct {
	ShowFavorites bool     `json:"showFavorites" bson:"showFavorites"`
	ShowRatings   bool     `json:"showRatings" bson:"showRatings"`
	DietTags      []string `json:"dietTags,omitempty" bson:"dietTags,omitempty"`
}

// Account is the canonical user record. Credential material is persisted but
// excluded from anything the query surface returns; see PublicView.
type Account struct {
	Email        string                  `json:"email" bson:"_id"`
	DisplayID    int                     `json:"displayId" bson:"displayId"`
	Name         string                  `json:"name" bson:"name"`
	PasswordHash string                  `json:"-" bson:"passwordHash"`
	Salt         string                  `json:"-" bson:"salt"`
	Role         Role                    `json:"role" bson:"role"`
	Banned       bool                    `json:"banned" bson:"banned"`
	Favorites    []string                `json:"favorites,omitempty" bson:"favorites,omitempty"`
	Rated        []string                `json:"rated,omitempty" bson:"rated,omitempty"`
	Reactions    map[string]ReactionKind `json:"reactions,omitempty" bson:"reactions,omitempty"`
	Settings     AccountSettings         `json:"settings" bson:"settings"`
}

// Clone returns a deep copy whose slices and reaction map share no memory
// with the receiver.
func (a Account) Clone() Account {
	out := a
	out.Favorites = cloneStrings(a.Favorites)
	out.Rated = cloneStrings(a.Rated)
	out.Settings.DietTags = cloneStrings(a.Settings.DietTags)
	if a.Reactions != nil {
		out.Reactions = make(map[string]ReactionKind, len(a.Reactions))
		for k, v := range a.Reactions {
			out.Reactions[k] = v
		}
	}
	return out
}

// NormalizeEmail lowercases the account's identity. Emails are compared
// case-insensitively everywhere.
func (a *Account) NormalizeEmail() {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
}

// HasRated reports whether the account already rated the given recipe.
func (a *Account) HasRated(recipeID string) bool {
	for _, id := range a.Rated {
		if id == recipeID {
			return true
		}
	}
	return false
}

// MarkRated records that the account has rated the recipe.
func (a *Account) MarkRated(recipeID string) {
	if !a.HasRated(recipeID) {
		a.Rated = append(a.Rated, recipeID)
	}
}

// IsFavorite reports whether the recipe is in the account's favorites set.
func (a *Account) IsFavorite(recipeID string) bool {
	for _, id := range a.Favorites {
		if id == recipeID {
			return true
		}
	}
	return false
}

// ToggleFavorite adds or removes the recipe from favorites and reports the
// resulting membership.
func (a *Account) ToggleFavorite(recipeID string) bool {
	for i, id := range a.Favorites {
		if id == recipeID {
			a.Favorites = append(a.Favorites[:i], a.Favorites[i+1:]...)
			return false
		}
	}
	a.Favorites = append(a.Favorites, recipeID)
	return true
}

// ApplyReaction applies a reaction choice to the comment's counters while
// keeping the account's reaction map consistent: at most one entry per
// comment, toggling the same kind removes it, and switching kinds reverses
// the previous increment before applying the new one. Counters never go
// below zero.
func (a *Account) ApplyReaction(c *Comment, kind ReactionKind) {
	if a.Reactions == nil {
		a.Reactions = make(map[string]ReactionKind)
	}

	prev, had := a.Reactions[c.ID]
	if had {
		decrReaction(c, prev)
		delete(a.Reactions, c.ID)
		if prev == kind {
			return
		}
	}

	incrReaction(c, kind)
	a.Reactions[c.ID] = kind
}

func incrReaction(c *Comment, kind ReactionKind) {
	if kind == ReactionLike {
		c.Likes++
	} else {
		c.Dislikes++
	}
}

func decrReaction(c *Comment, kind ReactionKind) {
	if kind == ReactionLike {
		if c.Likes > 0 {
			c.Likes--
		}
	} else if c.Dislikes > 0 {
		c.Dislikes--
	}
}

// PublicAccount is the sanitized projection served by the account directory.
type PublicAccount struct {
	Email     string          `json:"email"`
	DisplayID int             `json:"displayId"`
	Name      string          `json:"name"`
	Role      Role            `json:"role"`
	Banned    bool            `json:"banned"`
	Favorites []string        `json:"favorites,omitempty"`
	Settings  AccountSettings `json:"settings"`
}

// PublicView strips credential material and private activity from the record.
func (a *Account) PublicView() PublicAccount {
	pub := PublicAccount{
		Email:     a.Email,
		DisplayID: a.DisplayID,
		Name:      a.Name,
		Role:      a.Role,
		Banned:    a.Banned,
		Settings:  a.Settings,
	}
	if a.Settings.ShowFavorites {
		pub.Favorites = a.Favorites
	}
	return pub
}

// HashPassword derives credential material for storage. Verification itself
// is delegated to the external credential service; the hash is kept so
// imported accounts can be handed over to it.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
