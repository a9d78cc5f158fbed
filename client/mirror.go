// Package client implements the server's counterpart on the client side: a
// session-local mirror of server state fed by the event stream, and a
// degraded-mode controller that serves reads from a bundled dataset when the
// server is unreachable.
//
// Known gap, kept deliberately: a session that starts or turns degraded
// never reconciles locally created records with the server, even if
// connectivity returns. Recovering requires an explicit reload.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipehub/application/query"
	"recipehub/domain"
)

// ErrUnavailable is returned by every server-authoritative write once the
// session is degraded. Writes fail fast and explicitly; they are never
// queued and never silently dropped.
var ErrUnavailable = errors.New("server unavailable: session is in degraded mode")

// Mode is the session connectivity state.
type Mode int

const (
	// ModeAuto resolves to connected or degraded via the startup probe.
	ModeAuto Mode = iota
	ModeConnected
	ModeDegraded
)

// Config configures a Mirror. Mode is explicit so tests can pin either
// state instead of depending on a live probe.
type Config struct {
	BaseURL      string
	ProbeTimeout time.Duration
	Mode         Mode
	Logger       *zap.Logger
}

// ViewState is whatever the UI currently holds. Incoming events are
// reconciled into it in place, so an idle screen stays current without a
// refetch.
type ViewState struct {
	CurrentRecipe  *domain.Recipe
	RecipeList     []domain.Recipe
	CurrentAccount *domain.PublicAccount
}

// Mirror is one client session's read-mostly projection of server state.
// It owns nothing canonical and is disposable.
type Mirror struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger

	mu            sync.RWMutex
	mode          Mode
	accounts      []domain.PublicAccount
	notifications []domain.Notification
	view          ViewState
	local         map[string]domain.Recipe // session-local records, degraded mode only

	fallback []domain.Recipe

	conn   eventConn
	done   chan struct{}
	closed sync.Once
}

// New builds a Mirror. Call Start to resolve connectivity and subscribe.
func New(cfg Config) (*Mirror, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}

	fallback, err := loadFallbackDataset()
	if err != nil {
		return nil, fmt.Errorf("loading fallback dataset: %w", err)
	}

	return &Mirror{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		httpc:    &http.Client{Timeout: cfg.ProbeTimeout},
		logger:   cfg.Logger,
		mode:     cfg.Mode,
		local:    make(map[string]domain.Recipe),
		fallback: fallback,
		done:     make(chan struct{}),
	}, nil
}

// Start resolves the session mode. Connected sessions pull the account
// directory and open the event stream; degraded sessions stay degraded for
// their whole lifetime.
func (m *Mirror) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.mode == ModeAuto {
		if m.probe(ctx) {
			m.mode = ModeConnected
		} else {
			m.mode = ModeDegraded
		}
	}
	mode := m.mode
	m.mu.Unlock()

	if mode == ModeDegraded {
		m.logger.Info("session starting degraded, reads served from bundled dataset")
		return nil
	}

	if err := m.fetchAccounts(ctx); err != nil {
		m.degrade("account directory fetch failed", err)
		return nil
	}
	if err := m.subscribe(ctx); err != nil {
		m.degrade("event stream subscription failed", err)
		return nil
	}
	return nil
}

// Close tears down the event stream.
func (m *Mirror) Close() {
	m.closed.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.Unlock()
	})
}

// Mode returns the session's connectivity state.
func (m *Mirror) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// probe checks reachability with a lightweight request.
func (m *Mirror) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return resp.StatusCode == http.StatusOK
}

// degrade flips the session into its terminal degraded state. A connected
// session only ends up here when a mutating request fails in a way the
// controller treats as connectivity loss.
func (m *Mirror) degrade(reason string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModeDegraded {
		return
	}
	m.mode = ModeDegraded
	m.logger.Warn("session degraded", zap.String("reason", reason), zap.Error(err))
}

// --- reads ---

// SearchRecipes runs a query. Connected sessions ask the server; degraded
// sessions run the same engine over the bundled dataset merged with
// session-local records.
func (m *Mirror) SearchRecipes(ctx context.Context, c query.Criteria) (query.Result, error) {
	if m.Mode() == ModeDegraded {
		return query.Run(m.offlineSnapshot(), c), nil
	}

	var res query.Result
	if err := m.getJSON(ctx, "/api/v1/recipes"+criteriaQuery(c), &res.Data, &res); err != nil {
		// Reads never fail hard: fall back to the offline snapshot.
		m.logger.Warn("server read failed, serving offline snapshot", zap.Error(err))
		return query.Run(m.offlineSnapshot(), c), nil
	}

	m.mu.Lock()
	m.view.RecipeList = res.Data
	m.mu.Unlock()
	return res, nil
}

// Recipe returns a single record by ID from whichever source the session
// reads from. A miss returns ok=false, never an error.
func (m *Mirror) Recipe(ctx context.Context, id string) (domain.Recipe, bool) {
	res, err := m.SearchRecipes(ctx, query.Criteria{IDs: []string{id}})
	if err != nil || len(res.Data) == 0 {
		return domain.Recipe{}, false
	}
	return res.Data[0], true
}

// Accounts returns the mirrored account directory.
func (m *Mirror) Accounts() []domain.PublicAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PublicAccount, len(m.accounts))
	copy(out, m.accounts)
	return out
}

// Notifications returns notifications received over the event stream this
// session.
func (m *Mirror) Notifications() []domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// View returns a copy of the current view state.
func (m *Mirror) View() ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// ShowRecipe marks a record as the one currently displayed; subsequent
// events for the same identity update it in place.
func (m *Mirror) ShowRecipe(r domain.Recipe) {
	m.mu.Lock()
	m.view.CurrentRecipe = &r
	m.mu.Unlock()
}

// ShowAccount marks an account as the one currently displayed.
func (m *Mirror) ShowAccount(a domain.PublicAccount) {
	m.mu.Lock()
	m.view.CurrentAccount = &a
	m.mu.Unlock()
}

// offlineSnapshot merges the bundled dataset with session-local records.
// Local records shadow bundled ones with the same ID.
func (m *Mirror) offlineSnapshot() []domain.Recipe {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shadowed := make(map[string]struct{}, len(m.local))
	out := make([]domain.Recipe, 0, len(m.fallback)+len(m.local))
	for _, r := range m.fallback {
		if local, ok := m.local[r.ID]; ok {
			out = append(out, local)
			shadowed[r.ID] = struct{}{}
			continue
		}
		out = append(out, r)
	}
	for id, r := range m.local {
		if _, ok := shadowed[id]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// --- writes ---

// SaveRecipe upserts a recipe. Connected sessions post to the server; a
// failure degrades the session and the record lands in the session-local
// set instead (and is never reconciled, see the package comment). Degraded
// sessions write locally from the start.
func (m *Mirror) SaveRecipe(ctx context.Context, r domain.Recipe) (domain.Recipe, error) {
	if m.Mode() == ModeDegraded {
		return m.saveLocal(r), nil
	}

	var saved domain.Recipe
	if err := m.postJSON(ctx, "/api/v1/recipes", r, &saved); err != nil {
		m.degrade("recipe save failed", err)
		return m.saveLocal(r), nil
	}
	return saved, nil
}

func (m *Mirror) saveLocal(r domain.Recipe) domain.Recipe {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = fmt.Sprintf("local-%d", time.Now().UnixNano())
	}
	r.Normalize()
	m.mu.Lock()
	m.local[r.ID] = r
	m.mu.Unlock()
	return r
}

// Register creates an account. Server authority required: degraded sessions
// fail fast.
func (m *Mirror) Register(ctx context.Context, email, name, password string) error {
	if m.Mode() == ModeDegraded {
		return ErrUnavailable
	}
	body := map[string]interface{}{"email": email, "name": name, "password": password}
	if err := m.postJSON(ctx, "/api/v1/accounts", body, nil); err != nil {
		m.degrade("registration failed", err)
		return ErrUnavailable
	}
	return nil
}

// Report flags a recipe. Server authority required.
func (m *Mirror) Report(ctx context.Context, recipeID, reason, details string) error {
	if m.Mode() == ModeDegraded {
		return ErrUnavailable
	}
	body := map[string]string{"recipeId": recipeID, "reason": reason, "details": details}
	if err := m.postJSON(ctx, "/api/v1/reports", body, nil); err != nil {
		m.degrade("report failed", err)
		return ErrUnavailable
	}
	return nil
}

// MarkNotificationRead flips a notification's read flag on the server.
func (m *Mirror) MarkNotificationRead(ctx context.Context, id string) error {
	if m.Mode() == ModeDegraded {
		return ErrUnavailable
	}
	if err := m.postJSON(ctx, "/api/v1/notifications/"+id+"/read", struct{}{}, nil); err != nil {
		m.degrade("notification update failed", err)
		return ErrUnavailable
	}
	return nil
}

// --- transport helpers ---

func (m *Mirror) fetchAccounts(ctx context.Context) error {
	var accounts []domain.PublicAccount
	if err := m.getJSON(ctx, "/api/v1/accounts", &accounts, nil); err != nil {
		return err
	}
	m.mu.Lock()
	m.accounts = accounts
	m.mu.Unlock()
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Pagination *struct {
			Page  int `json:"page"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		} `json:"pagination"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (m *Mirror) getJSON(ctx context.Context, path string, out interface{}, page *query.Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+path, nil)
	if err != nil {
		return err
	}
	return m.do(req, out, page)
}

func (m *Mirror) postJSON(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return m.do(req, out, nil)
}

func (m *Mirror) do(req *http.Request, out interface{}, page *query.Result) error {
	resp, err := m.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		msg := "request failed"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return fmt.Errorf("%s (%d)", msg, resp.StatusCode)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}
	if page != nil && env.Meta != nil && env.Meta.Pagination != nil {
		page.Page = env.Meta.Pagination.Page
		page.Total = env.Meta.Pagination.Total
		page.Pages = env.Meta.Pagination.Pages
	}
	return nil
}

func criteriaQuery(c query.Criteria) string {
	vals := url.Values{}
	set := func(k, v string) {
		if v != "" {
			vals.Set(k, v)
		}
	}
	set("q", c.Text)
	set("sort", string(c.Sort))
	set("tags", strings.Join(c.Tags, ","))
	set("complexity", strings.Join(c.Complexities, ","))
	set("ids", strings.Join(c.IDs, ","))
	if c.Page > 0 {
		set("page", fmt.Sprint(c.Page))
	}
	if c.PageSize > 0 {
		set("pageSize", fmt.Sprint(c.PageSize))
	}
	if c.MinMinutes > 0 {
		set("minMinutes", fmt.Sprint(c.MinMinutes))
	}
	if c.MaxMinutes > 0 {
		set("maxMinutes", fmt.Sprint(c.MaxMinutes))
	}
	if len(vals) == 0 {
		return ""
	}
	return "?" + vals.Encode()
}
