// Package store holds the canonical in-memory collections. While the process
// is alive these are the source of truth; the durable store only seeds them
// at startup and absorbs write-through traffic.
package store

import (
	"sort"
	"sync"

	"recipehub/domain"
)

// Mode is the connectivity state decided once at startup.
type Mode int

const (
	ModeUninitialized Mode = iota
	ModeConnected
	ModeDegraded
)

func (m Mode) String() string {
	switch m {
	case ModeConnected:
		return "connected"
	case ModeDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// Store owns the mutable collections. Each collection is guarded by its own
// RWMutex; writes are atomic per collection and reads return deep copies so a
// concurrent query never observes a partial record, and a mutation applied
// later never leaks into a snapshot taken earlier.
type Store struct {
	recipesMu sync.RWMutex
	recipes   []domain.Recipe

	accountsMu sync.RWMutex
	accounts   []domain.Account

	reportsMu sync.RWMutex
	reports   []domain.Report

	notificationsMu sync.RWMutex
	notifications   []domain.Notification

	modeMu sync.RWMutex
	mode   Mode
}

// New returns an empty store in the uninitialized mode.
func New() *Store {
	return &Store{mode: ModeUninitialized}
}

// SetMode records the startup connectivity decision.
func (s *Store) SetMode(m Mode) {
	s.modeMu.Lock()
	s.mode = m
	s.modeMu.Unlock()
}

// Mode returns the current connectivity mode.
func (s *Store) Mode() Mode {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.mode
}

// --- recipes ---

// Recipes returns a snapshot of the recipe collection. Records are deep
// copies; nested comment and image slices share nothing with the canonical
// collection.
func (s *Store) Recipes() []domain.Recipe {
	s.recipesMu.RLock()
	defer s.recipesMu.RUnlock()
	out := make([]domain.Recipe, len(s.recipes))
	for i, r := range s.recipes {
		out[i] = r.Clone()
	}
	return out
}

// RecipesByIDs returns exactly the records whose IDs are in the set, in
// collection order.
func (s *Store) RecipesByIDs(ids []string) []domain.Recipe {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.recipesMu.RLock()
	defer s.recipesMu.RUnlock()
	var out []domain.Recipe
	for _, r := range s.recipes {
		if _, ok := want[r.ID]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// RecipeByID returns a single recipe and whether it was found.
func (s *Store) RecipeByID(id string) (domain.Recipe, bool) {
	s.recipesMu.RLock()
	defer s.recipesMu.RUnlock()
	for _, r := range s.recipes {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Recipe{}, false
}

// UpsertRecipe replaces an existing record by ID or appends a new one.
func (s *Store) UpsertRecipe(r domain.Recipe) {
	s.recipesMu.Lock()
	defer s.recipesMu.Unlock()
	for i := range s.recipes {
		if s.recipes[i].ID == r.ID {
			s.recipes[i] = r
			return
		}
	}
	s.recipes = append(s.recipes, r)
}

// DeleteRecipe removes a record and reports whether it was present.
func (s *Store) DeleteRecipe(id string) bool {
	s.recipesMu.Lock()
	defer s.recipesMu.Unlock()
	for i := range s.recipes {
		if s.recipes[i].ID == id {
			s.recipes = append(s.recipes[:i], s.recipes[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceRecipes swaps in a full collection; used only by the cache loader.
func (s *Store) ReplaceRecipes(rs []domain.Recipe) {
	s.recipesMu.Lock()
	s.recipes = rs
	s.recipesMu.Unlock()
}

// RecipeCount returns the collection size.
func (s *Store) RecipeCount() int {
	s.recipesMu.RLock()
	defer s.recipesMu.RUnlock()
	return len(s.recipes)
}

// TagDirectory returns the deduplicated, sorted union of every tag across
// every recipe. Recomputed from the live collection on each call.
func (s *Store) TagDirectory() []string {
	s.recipesMu.RLock()
	defer s.recipesMu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.recipes {
		for _, t := range r.Tags {
			seen[t] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// --- accounts ---

// Accounts returns a deep snapshot of the account collection.
func (s *Store) Accounts() []domain.Account {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()
	out := make([]domain.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.Clone()
	}
	return out
}

// AccountByEmail looks an account up by its case-normalized identity.
func (s *Store) AccountByEmail(email string) (domain.Account, bool) {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a.Clone(), true
		}
	}
	return domain.Account{}, false
}

// UpsertAccount replaces an existing record by email or appends a new one.
func (s *Store) UpsertAccount(a domain.Account) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].Email == a.Email {
			s.accounts[i] = a
			return
		}
	}
	s.accounts = append(s.accounts, a)
}

// ReplaceAccounts swaps in a full collection; used only by the cache loader.
func (s *Store) ReplaceAccounts(as []domain.Account) {
	s.accountsMu.Lock()
	s.accounts = as
	s.accountsMu.Unlock()
}

// NextDisplayID allocates the next short numeric display ID.
func (s *Store) NextDisplayID() int {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()
	max := 0
	for _, a := range s.accounts {
		if a.DisplayID > max {
			max = a.DisplayID
		}
	}
	return max + 1
}

// --- reports ---

// Reports returns a snapshot copy of the report collection.
func (s *Store) Reports() []domain.Report {
	s.reportsMu.RLock()
	defer s.reportsMu.RUnlock()
	out := make([]domain.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// ReportByID returns a single report and whether it was found.
func (s *Store) ReportByID(id string) (domain.Report, bool) {
	s.reportsMu.RLock()
	defer s.reportsMu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Report{}, false
}

// UpsertReport replaces an existing record by ID or appends a new one.
func (s *Store) UpsertReport(r domain.Report) {
	s.reportsMu.Lock()
	defer s.reportsMu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == r.ID {
			s.reports[i] = r
			return
		}
	}
	s.reports = append(s.reports, r)
}

// ReplaceReports swaps in a full collection; used only by the cache loader.
func (s *Store) ReplaceReports(rs []domain.Report) {
	s.reportsMu.Lock()
	s.reports = rs
	s.reportsMu.Unlock()
}

// --- notifications ---

// Notifications returns a snapshot copy of the notification collection.
func (s *Store) Notifications() []domain.Notification {
	s.notificationsMu.RLock()
	defer s.notificationsMu.RUnlock()
	out := make([]domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// NotificationsFor returns the notifications addressed to a display name.
func (s *Store) NotificationsFor(recipient string) []domain.Notification {
	s.notificationsMu.RLock()
	defer s.notificationsMu.RUnlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

// NotificationByID returns a single notification and whether it was found.
func (s *Store) NotificationByID(id string) (domain.Notification, bool) {
	s.notificationsMu.RLock()
	defer s.notificationsMu.RUnlock()
	for _, n := range s.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// UpsertNotification replaces an existing record by ID or appends a new one.
func (s *Store) UpsertNotification(n domain.Notification) {
	s.notificationsMu.Lock()
	defer s.notificationsMu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == n.ID {
			s.notifications[i] = n
			return
		}
	}
	s.notifications = append(s.notifications, n)
}

// ReplaceNotifications swaps in a full collection; used only by the loader.
func (s *Store) ReplaceNotifications(ns []domain.Notification) {
	s.notificationsMu.Lock()
	s.notifications = ns
	s.notificationsMu.Unlock()
}
