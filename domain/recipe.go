package domain

import (
	"time"
)

// ImageStatus is the moderation state of an uploaded recipe image.
type ImageStatus string

const (
	ImagePending  ImageStatus = "pending"
	ImageApproved ImageStatus = "approved"
	ImageRejected ImageStatus = "rejected"
)

// RecipeImage is a single image attached to a recipe, subject to moderation.
type RecipeImage struct {
	URL        string      `json:"url" bson:"url"`
	Author     string      `json:"author" bson:"author"`
	Status     ImageStatus `json:"status" bson:"status"`
	RejectedAt *time.Time  `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
}

// RatingAggregate is a running mean over all submitted scores. It is updated
// incrementally on each submission and never recomputed from a score list.
type RatingAggregate struct {
	Mean  float64 `json:"mean" bson:"mean"`
	Count int     `json:"count" bson:"count"`
}

// Add folds one more score into the running mean.
func (r *RatingAggregate) Add(score float64) {
	r.Mean = (r.Mean*float64(r.Count) + score) / float64(r.Count+1)
	r.Count++
}

// Comment is one node of a recipe's comment forest. Replies are held by value
// and are at most one level deep; a reply never carries replies of its own.
type Comment struct {
	ID       string    `json:"id" bson:"id"`
	Author   string    `json:"author" bson:"author"`
	Text     string    `json:"text" bson:"text"`
	Likes    int       `json:"likes" bson:"likes"`
	Dislikes int       `json:"dislikes" bson:"dislikes"`
	Replies  []Comment `json:"replies,omitempty" bson:"replies,omitempty"`
}

// Recipe is the canonical content record.
type Recipe struct {
	ID              string          `json:"id" bson:"_id"`
	Author          string          `json:"author" bson:"author"`
	Name            string          `json:"name" bson:"name"`
	Ingredients     string          `json:"ingredients" bson:"ingredients"`
	Steps           []string        `json:"steps" bson:"steps"`
	Tags            []string        `json:"tags" bson:"tags"`
	Complexity      string          `json:"complexity" bson:"complexity"`
	Duration        string          `json:"duration" bson:"duration"`
	DurationMinutes int             `json:"durationMinutes" bson:"durationMinutes"`
	Images          []RecipeImage   `json:"images,omitempty" bson:"images,omitempty"`
	Rating          RatingAggregate `json:"rating" bson:"rating"`
	Comments        []Comment       `json:"comments,omitempty" bson:"comments,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Normalize recomputes derived fields. Every write path that may have touched
// the duration string must call this before the record re-enters the store.
func (r *Recipe) Normalize() {
	r.DurationMinutes = ParseDurationMinutes(r.Duration)
}

// CommentCount returns the flat number of comments including replies.
func (r *Recipe) CommentCount() int {
	n := len(r.Comments)
	for _, c := range r.Comments {
		n += len(c.Replies)
	}
	return n
}

// FindComment locates a top-level comment or a reply by ID. The returned
// pointer aliases the recipe's own slice so callers can mutate counters in
// place before re-upserting the record.
func (r *Recipe) FindComment(commentID string) *Comment {
	for i := range r.Comments {
		if r.Comments[i].ID == commentID {
			return &r.Comments[i]
		}
		for j := range r.Comments[i].Replies {
			if r.Comments[i].Replies[j].ID == commentID {
				return &r.Comments[i].Replies[j]
			}
		}
	}
	return nil
}

// Clone returns a deep copy whose nested slices share no memory with the
// receiver. Readers that hand records across a lock boundary return clones so
// an in-flight mutation is never visible through a previously taken snapshot.
func (r Recipe) Clone() Recipe {
	out := r
	out.Steps = cloneStrings(r.Steps)
	out.Tags = cloneStrings(r.Tags)
	if r.Images != nil {
		out.Images = append([]RecipeImage(nil), r.Images...)
	}
	if r.Comments != nil {
		out.Comments = make([]Comment, len(r.Comments))
		for i, c := range r.Comments {
			out.Comments[i] = c
			if c.Replies != nil {
				out.Comments[i].Replies = append([]Comment(nil), c.Replies...)
			}
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// HasAllTags reports whether every tag in want is present on the recipe.
func (r *Recipe) HasAllTags(want []string) bool {
	for _, w := range want {
		found := false
		for _, t := range r.Tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
