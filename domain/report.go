package domain

import (
	"fmt"
	"time"
)

// ReportStatus is the moderation workflow state of a report.
type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

// Report is a moderation flag raised against a recipe. The recipe name is
// denormalized so the moderation queue stays readable after a delete.
type Report struct {
	ID         string       `json:"id" bson:"_id"`
	RecipeID   string       `json:"recipeId" bson:"recipeId"`
	RecipeName string       `json:"recipeName" bson:"recipeName"`
	Reporter   string       `json:"reporter" bson:"reporter"`
	Reason     string       `json:"reason" bson:"reason"`
	Details    string       `json:"details,omitempty" bson:"details,omitempty"`
	Status     ReportStatus `json:"status" bson:"status"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
}

// Resolve transitions the report open→resolved. Any other transition is
// rejected.
func (r *Report) Resolve(now time.Time) error {
	if r.Status != ReportOpen {
		return fmt.Errorf("report %s is already %s", r.ID, r.Status)
	}
	r.Status = ReportResolved
	r.ResolvedAt = &now
	return nil
}
