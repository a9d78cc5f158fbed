// Package writer implements the write-through path: every mutation updates
// the in-memory store synchronously, persists asynchronously, then notifies
// every subscriber. In-memory state stays authoritative even when the
// durable write fails.
package writer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"recipehub/application/store"
	"recipehub/domain"
	"recipehub/infrastructure/persistence"
	apperrors "recipehub/pkg/errors"
	"recipehub/pkg/observability"
	"recipehub/pkg/utils"
)

// Broadcaster is the fan-out sink for change events. The websocket hub
// satisfies it; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(eventType domain.EventType, payload interface{})
}

// Coordinator serializes mutations over the in-memory store and drives
// write-through persistence and event fan-out.
//
// Ordering guarantee: the in-memory mutation is visible to queries before
// the corresponding event is broadcast.
type Coordinator struct {
	store   *store.Store
	port    persistence.Port
	events  Broadcaster
	logger  *zap.Logger
	metrics *observability.Metrics
	breaker *gobreaker.CircuitBreaker

	// One writer at a time. Read-modify-write sequences (a rating folding
	// into the running mean, a reaction switching kinds) must not interleave.
	mu sync.Mutex

	persistTimeout time.Duration
}

// New wires a coordinator. port may be nil when the process started degraded.
func New(st *store.Store, port persistence.Port, events Broadcaster, logger *zap.Logger, metrics *observability.Metrics) *Coordinator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "durable-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("durable store breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Coordinator{
		store:          st,
		port:           port,
		events:         events,
		logger:         logger,
		metrics:        metrics,
		breaker:        breaker,
		persistTimeout: 10 * time.Second,
	}
}

// requireConnected gates mutations that need durable authority. When the
// process started degraded the store is empty and writes fail explicitly
// rather than silently no-op. DeleteRecipe is exempt: it succeeds in
// degraded mode for records that exist in memory.
func (c *Coordinator) requireConnected() error {
	if c.store.Mode() != store.ModeConnected {
		return apperrors.NewUnavailableError("durable store unreachable, writes are disabled")
	}
	return nil
}

// persistAsync runs a durable write off the response path. Failures are
// logged and counted; the in-memory state is never rolled back.
func (c *Coordinator) persistAsync(op string, fn func(ctx context.Context) error) {
	if c.port == nil || c.store.Mode() != store.ModeConnected {
		return
	}
	go func() {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
			defer cancel()
			return nil, fn(ctx)
		})
		if err != nil {
			if c.metrics != nil {
				c.metrics.PersistFailures.Inc()
			}
			c.logger.Error("durable write failed, memory remains authoritative",
				zap.String("op", op),
				zap.Error(err),
			)
		}
	}()
}

func (c *Coordinator) broadcast(t domain.EventType, payload interface{}) {
	if c.events != nil {
		c.events.Broadcast(t, payload)
	}
}

// --- recipes ---

// RecipeInput is a full recipe record as accepted by the upsert operation.
type RecipeInput struct {
	ID          string               `json:"id"`
	Author      string               `json:"author" validate:"required"`
	Name        string               `json:"name" validate:"required,min=1,max=200"`
	Ingredients string               `json:"ingredients" validate:"required"`
	Steps       []string             `json:"steps" validate:"required,min=1"`
	Tags        []string             `json:"tags"`
	Complexity  string               `json:"complexity"`
	Duration    string               `json:"duration"`
	Images      []domain.RecipeImage `json:"images"`
}

// UpsertRecipe validates, derives, replaces-or-inserts in memory, persists
// asynchronously and broadcasts. Returns the stored record.
func (c *Coordinator) UpsertRecipe(in RecipeInput) (domain.Recipe, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Recipe{}, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return domain.Recipe{}, apperrors.NewValidationError(err.Error())
	}

	c.mu.Lock()
	now := time.Now().UTC()

	r := domain.Recipe{
		ID:          in.ID,
		Author:      in.Author,
		Name:        in.Name,
		Ingredients: in.Ingredients,
		Steps:       in.Steps,
		Tags:        in.Tags,
		Complexity:  in.Complexity,
		Duration:    in.Duration,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.New().String()
	}
	if prev, ok := c.store.RecipeByID(r.ID); ok {
		// Aggregates and the comment forest survive a content update.
		r.Rating = prev.Rating
		r.Comments = prev.Comments
		r.CreatedAt = prev.CreatedAt
	}
	for i := range r.Images {
		if r.Images[i].Status == "" {
			r.Images[i].Status = domain.ImagePending
		}
	}
	r.Normalize()

	c.store.UpsertRecipe(r)
	c.mu.Unlock()

	c.persistAsync("upsert recipe", func(ctx context.Context) error {
		return c.port.UpsertRecipe(ctx, r)
	})
	c.broadcast(domain.EventRecipeUpserted, r)
	return r, nil
}

// DeleteRecipe removes the record from memory and the durable store.
// Success is reported if the record was found in memory or the durable
// delete succeeded, so deletes keep working in degraded mode for records
// that exist in memory.
func (c *Coordinator) DeleteRecipe(id string) error {
	c.mu.Lock()
	found := c.store.DeleteRecipe(id)
	c.mu.Unlock()

	durableOK := false
	if c.port != nil && c.store.Mode() == store.ModeConnected {
		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		defer cancel()
		if err := c.port.DeleteRecipe(ctx, id); err != nil {
			c.logger.Warn("durable delete failed", zap.String("id", id), zap.Error(err))
		} else {
			durableOK = true
		}
	}

	if !found && !durableOK {
		return apperrors.NewNotFoundError("recipe")
	}

	c.broadcast(domain.EventRecipeDeleted, domain.DeletedPayload{ID: id})
	return nil
}

// ImportRecipes applies per-record derivation to raw records lacking IDs,
// stores each one, then batches the durable writes into a single bulk call.
func (c *Coordinator) ImportRecipes(raw []RecipeInput) (int, string, error) {
	if err := c.requireConnected(); err != nil {
		return 0, "", err
	}
	if len(raw) == 0 {
		return 0, "", apperrors.NewValidationError("import payload is empty")
	}

	c.mu.Lock()
	now := time.Now().UTC()
	imported := make([]domain.Recipe, 0, len(raw))
	for _, in := range raw {
		if err := utils.ValidateStruct(in); err != nil {
			c.mu.Unlock()
			return 0, "", apperrors.NewValidationError(fmt.Sprintf("record %q: %v", in.Name, err))
		}
		r := domain.Recipe{
			ID:          uuid.New().String(),
			Author:      in.Author,
			Name:        in.Name,
			Ingredients: in.Ingredients,
			Steps:       in.Steps,
			Tags:        in.Tags,
			Complexity:  in.Complexity,
			Duration:    in.Duration,
			Images:      in.Images,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		r.Normalize()
		c.store.UpsertRecipe(r)
		imported = append(imported, r)
	}
	c.mu.Unlock()

	c.persistAsync("bulk import", func(ctx context.Context) error {
		return c.port.BulkUpsertRecipes(ctx, imported)
	})

	msg := fmt.Sprintf("imported %d recipes", len(imported))
	c.broadcast(domain.EventImportCompleted, domain.ImportPayload{Count: len(imported), Message: msg})
	return len(imported), msg, nil
}

// RateRecipe folds one score into the recipe's running mean. Each account
// contributes at most once per recipe.
func (c *Coordinator) RateRecipe(email, recipeID string, score float64) (domain.Recipe, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Recipe{}, err
	}
	if score < 1 || score > 5 {
		return domain.Recipe{}, apperrors.NewValidationError("score must be between 1 and 5")
	}

	c.mu.Lock()
	acct, ok := c.store.AccountByEmail(strings.ToLower(email))
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("account")
	}
	if acct.HasRated(recipeID) {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewConflictError("recipe already rated by this account")
	}
	r, ok := c.store.RecipeByID(recipeID)
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("recipe")
	}

	r.Rating.Add(score)
	r.UpdatedAt = time.Now().UTC()
	acct.MarkRated(recipeID)

	c.store.UpsertRecipe(r)
	c.store.UpsertAccount(acct)
	c.mu.Unlock()

	c.persistAsync("rate recipe", func(ctx context.Context) error {
		if err := c.port.UpsertRecipe(ctx, r); err != nil {
			return err
		}
		return c.port.UpsertAccount(ctx, acct)
	})
	c.broadcast(domain.EventRecipeUpserted, r)
	c.broadcast(domain.EventAccountUpserted, acct.PublicView())
	return r, nil
}

// AddComment appends a comment, or a depth-1 reply when parentID is set.
// Replies to replies are flattened onto the same parent.
func (c *Coordinator) AddComment(recipeID, parentID, author, text string) (domain.Recipe, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Recipe{}, err
	}
	if strings.TrimSpace(text) == "" {
		return domain.Recipe{}, apperrors.NewValidationError("comment text is required")
	}

	c.mu.Lock()
	r, ok := c.store.RecipeByID(recipeID)
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("recipe")
	}

	comment := domain.Comment{
		ID:     uuid.New().String(),
		Author: author,
		Text:   text,
	}

	if parentID == "" {
		r.Comments = append(r.Comments, comment)
	} else {
		attached := false
		for i := range r.Comments {
			if r.Comments[i].ID == parentID {
				r.Comments[i].Replies = append(r.Comments[i].Replies, comment)
				attached = true
				break
			}
			// A reply to a reply lands on the top-level parent.
			for _, reply := range r.Comments[i].Replies {
				if reply.ID == parentID {
					r.Comments[i].Replies = append(r.Comments[i].Replies, comment)
					attached = true
					break
				}
			}
			if attached {
				break
			}
		}
		if !attached {
			c.mu.Unlock()
			return domain.Recipe{}, apperrors.NewNotFoundError("parent comment")
		}
	}

	r.UpdatedAt = time.Now().UTC()
	c.store.UpsertRecipe(r)
	c.mu.Unlock()

	c.persistAsync("add comment", func(ctx context.Context) error {
		return c.port.UpsertRecipe(ctx, r)
	})
	c.broadcast(domain.EventRecipeUpserted, r)
	return r, nil
}

// ReactToComment applies a like/dislike choice under the account's reaction
// invariants and notifies the comment author on a fresh like.
func (c *Coordinator) ReactToComment(email, recipeID, commentID string, kind domain.ReactionKind) (domain.Recipe, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Recipe{}, err
	}
	if kind != domain.ReactionLike && kind != domain.ReactionDislike {
		return domain.Recipe{}, apperrors.NewValidationError("reaction must be like or dislike")
	}

	c.mu.Lock()
	acct, ok := c.store.AccountByEmail(strings.ToLower(email))
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("account")
	}
	r, ok := c.store.RecipeByID(recipeID)
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("recipe")
	}
	comment := r.FindComment(commentID)
	if comment == nil {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("comment")
	}

	_, had := acct.Reactions[commentID]
	acct.ApplyReaction(comment, kind)
	r.UpdatedAt = time.Now().UTC()

	c.store.UpsertRecipe(r)
	c.store.UpsertAccount(acct)

	var notif *domain.Notification
	if !had && kind == domain.ReactionLike && comment.Author != acct.Name {
		n := c.buildNotification(comment.Author, domain.NotifyReaction,
			"New reaction",
			fmt.Sprintf("%s liked your comment on %q", acct.Name, r.Name),
			"/recipes/"+r.ID,
		)
		c.store.UpsertNotification(n)
		notif = &n
	}
	c.mu.Unlock()

	c.persistAsync("react to comment", func(ctx context.Context) error {
		if err := c.port.UpsertRecipe(ctx, r); err != nil {
			return err
		}
		if err := c.port.UpsertAccount(ctx, acct); err != nil {
			return err
		}
		if notif != nil {
			return c.port.UpsertNotification(ctx, *notif)
		}
		return nil
	})

	c.broadcast(domain.EventRecipeUpserted, r)
	c.broadcast(domain.EventAccountUpserted, acct.PublicView())
	if notif != nil {
		c.broadcast(domain.EventNotificationCreated, *notif)
	}
	return r, nil
}

// ToggleFavorite flips the recipe's membership in the account's favorites.
func (c *Coordinator) ToggleFavorite(email, recipeID string) (bool, error) {
	if err := c.requireConnected(); err != nil {
		return false, err
	}
	c.mu.Lock()
	acct, ok := c.store.AccountByEmail(strings.ToLower(email))
	if !ok {
		c.mu.Unlock()
		return false, apperrors.NewNotFoundError("account")
	}
	if _, ok := c.store.RecipeByID(recipeID); !ok {
		c.mu.Unlock()
		return false, apperrors.NewNotFoundError("recipe")
	}

	added := acct.ToggleFavorite(recipeID)
	c.store.UpsertAccount(acct)
	c.mu.Unlock()

	c.persistAsync("toggle favorite", func(ctx context.Context) error {
		return c.port.UpsertAccount(ctx, acct)
	})
	c.broadcast(domain.EventAccountUpserted, acct.PublicView())
	return added, nil
}

// ModerateImage approves or rejects an image by index. Rejection records the
// timestamp and notifies the image author.
func (c *Coordinator) ModerateImage(recipeID string, imageIndex int, approve bool) (domain.Recipe, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Recipe{}, err
	}
	c.mu.Lock()
	r, ok := c.store.RecipeByID(recipeID)
	if !ok {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("recipe")
	}
	if imageIndex < 0 || imageIndex >= len(r.Images) {
		c.mu.Unlock()
		return domain.Recipe{}, apperrors.NewNotFoundError("image")
	}

	img := &r.Images[imageIndex]
	var notif *domain.Notification
	if approve {
		img.Status = domain.ImageApproved
		img.RejectedAt = nil
	} else {
		now := time.Now().UTC()
		img.Status = domain.ImageRejected
		img.RejectedAt = &now
		n := c.buildNotification(img.Author, domain.NotifyModeration,
			"Image rejected",
			fmt.Sprintf("Your image on %q was rejected by moderation", r.Name),
			"/recipes/"+r.ID,
		)
		c.store.UpsertNotification(n)
		notif = &n
	}
	r.UpdatedAt = time.Now().UTC()
	c.store.UpsertRecipe(r)
	c.mu.Unlock()

	c.persistAsync("moderate image", func(ctx context.Context) error {
		if err := c.port.UpsertRecipe(ctx, r); err != nil {
			return err
		}
		if notif != nil {
			return c.port.UpsertNotification(ctx, *notif)
		}
		return nil
	})

	c.broadcast(domain.EventRecipeUpserted, r)
	if notif != nil {
		c.broadcast(domain.EventNotificationCreated, *notif)
	}
	return r, nil
}

// --- accounts ---

// AccountInput is an account record as accepted by the upsert operation.
type AccountInput struct {
	Email    string                 `json:"email" validate:"required,email"`
	Name     string                 `json:"name" validate:"required"`
	Password string                 `json:"password,omitempty"`
	Role     domain.Role            `json:"role,omitempty"`
	Banned   bool                   `json:"banned"`
	Settings domain.AccountSettings `json:"settings"`
}

// UpsertAccount creates or updates an account. New accounts get the next
// short display ID; credential material is derived once and handed to the
// external credential service out of band.
func (c *Coordinator) UpsertAccount(in AccountInput) (domain.Account, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Account{}, err
	}
	if err := utils.ValidateStruct(in); err != nil {
		return domain.Account{}, apperrors.NewValidationError(err.Error())
	}

	c.mu.Lock()
	email := strings.ToLower(strings.TrimSpace(in.Email))

	acct, exists := c.store.AccountByEmail(email)
	if !exists {
		acct = domain.Account{
			Email:     email,
			DisplayID: c.store.NextDisplayID(),
			Role:      domain.RoleMember,
		}
	}
	acct.Name = in.Name
	acct.Banned = in.Banned
	acct.Settings = in.Settings
	if in.Role != "" {
		acct.Role = in.Role
	}
	if in.Password != "" {
		hash, err := domain.HashPassword(in.Password)
		if err != nil {
			c.mu.Unlock()
			return domain.Account{}, apperrors.NewInternalError("hashing credentials", err)
		}
		acct.PasswordHash = hash
	}

	c.store.UpsertAccount(acct)
	c.mu.Unlock()

	c.persistAsync("upsert account", func(ctx context.Context) error {
		return c.port.UpsertAccount(ctx, acct)
	})
	c.broadcast(domain.EventAccountUpserted, acct.PublicView())
	return acct, nil
}

// --- reports ---

// CreateReport flags a recipe. The recipe name is denormalized onto the
// report at creation time.
func (c *Coordinator) CreateReport(recipeID, reporter, reason, details string) (domain.Report, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Report{}, err
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Report{}, apperrors.NewValidationError("reason is required")
	}

	c.mu.Lock()
	r, ok := c.store.RecipeByID(recipeID)
	if !ok {
		c.mu.Unlock()
		return domain.Report{}, apperrors.NewNotFoundError("recipe")
	}

	rep := domain.Report{
		ID:         uuid.New().String(),
		RecipeID:   recipeID,
		RecipeName: r.Name,
		Reporter:   reporter,
		Reason:     reason,
		Details:    details,
		Status:     domain.ReportOpen,
		CreatedAt:  time.Now().UTC(),
	}
	c.store.UpsertReport(rep)
	c.mu.Unlock()

	c.persistAsync("create report", func(ctx context.Context) error {
		return c.port.UpsertReport(ctx, rep)
	})
	c.broadcast(domain.EventReportCreated, rep)
	return rep, nil
}

// ResolveReport transitions a report open→resolved and notifies the
// reporter. Staff only; the handler enforces the role.
func (c *Coordinator) ResolveReport(reportID string) (domain.Report, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Report{}, err
	}
	c.mu.Lock()
	rep, ok := c.store.ReportByID(reportID)
	if !ok {
		c.mu.Unlock()
		return domain.Report{}, apperrors.NewNotFoundError("report")
	}
	if err := rep.Resolve(time.Now().UTC()); err != nil {
		c.mu.Unlock()
		return domain.Report{}, apperrors.NewConflictError(err.Error())
	}

	c.store.UpsertReport(rep)
	notif := c.buildNotification(rep.Reporter, domain.NotifyReport,
		"Report resolved",
		fmt.Sprintf("Your report on %q has been resolved", rep.RecipeName),
		"",
	)
	c.store.UpsertNotification(notif)
	c.mu.Unlock()

	c.persistAsync("resolve report", func(ctx context.Context) error {
		if err := c.port.UpsertReport(ctx, rep); err != nil {
			return err
		}
		return c.port.UpsertNotification(ctx, notif)
	})
	c.broadcast(domain.EventReportUpdated, rep)
	c.broadcast(domain.EventNotificationCreated, notif)
	return rep, nil
}

// --- notifications ---

func (c *Coordinator) buildNotification(recipient string, kind domain.NotificationKind, title, body, link string) domain.Notification {
	return domain.Notification{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkNotificationRead flips the read flag.
func (c *Coordinator) MarkNotificationRead(id string) (domain.Notification, error) {
	if err := c.requireConnected(); err != nil {
		return domain.Notification{}, err
	}
	c.mu.Lock()
	n, ok := c.store.NotificationByID(id)
	if !ok {
		c.mu.Unlock()
		return domain.Notification{}, apperrors.NewNotFoundError("notification")
	}
	n.Read = true
	c.store.UpsertNotification(n)
	c.mu.Unlock()

	c.persistAsync("mark notification read", func(ctx context.Context) error {
		return c.port.UpsertNotification(ctx, n)
	})
	c.broadcast(domain.EventNotificationCreated, n)
	return n, nil
}

// Announce fans an informational message out to every connected client.
// Nothing is stored or persisted.
func (c *Coordinator) Announce(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("title is required")
	}
	c.broadcast(domain.EventAnnouncement, domain.AnnouncementPayload{Title: title, Body: body})
	return nil
}
