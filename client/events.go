package client

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"recipehub/domain"
)

// eventConn is the slice of *websocket.Conn the mirror uses, extracted so
// tests can feed events without a live server.
type eventConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// subscribe opens the persistent event channel and starts the read loop.
func (m *Mirror) subscribe(ctx context.Context) error {
	wsURL := strings.Replace(m.baseURL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	go m.readLoop(conn)
	return nil
}

// readLoop consumes the event stream until the connection or session ends.
// There is no reconnect: missed state is recovered by explicit queries, and
// a session that loses its stream mid-flight keeps its last mirrored state.
func (m *Mirror) readLoop(conn eventConn) {
	for {
		select {
		case <-m.done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("event stream closed", zap.Error(err))
			return
		}

		var ev struct {
			Type    domain.EventType `json:"type"`
			Payload json.RawMessage  `json:"payload"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			m.logger.Warn("malformed event", zap.Error(err))
			continue
		}
		m.HandleEvent(ev.Type, ev.Payload)
	}
}

// HandleEvent reconciles one broadcast event into whatever local view state
// references the same identity, replacing it in place. Exported so tests
// can drive the mirror without a connection.
func (m *Mirror) HandleEvent(t domain.EventType, payload json.RawMessage) {
	switch t {
	case domain.EventRecipeUpserted:
		var r domain.Recipe
		if err := json.Unmarshal(payload, &r); err != nil {
			m.logger.Warn("bad recipe payload", zap.Error(err))
			return
		}
		m.applyRecipe(r)

	case domain.EventRecipeDeleted:
		var p domain.DeletedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return
		}
		m.removeRecipe(p.ID)

	case domain.EventImportCompleted:
		// The list on screen is stale after a bulk import; drop it so the
		// next read refetches.
		m.mu.Lock()
		m.view.RecipeList = nil
		m.mu.Unlock()

	case domain.EventAccountUpserted:
		var a domain.PublicAccount
		if err := json.Unmarshal(payload, &a); err != nil {
			return
		}
		m.applyAccount(a)

	case domain.EventNotificationCreated:
		var n domain.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return
		}
		m.applyNotification(n)

	case domain.EventReportCreated, domain.EventReportUpdated:
		// Reports are staff-screen data; the mirror does not shadow them.

	case domain.EventAnnouncement:
		var a domain.AnnouncementPayload
		if err := json.Unmarshal(payload, &a); err != nil {
			return
		}
		m.logger.Info("announcement", zap.String("title", a.Title), zap.String("body", a.Body))
	}
}

func (m *Mirror) applyRecipe(r domain.Recipe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view.CurrentRecipe != nil && m.view.CurrentRecipe.ID == r.ID {
		*m.view.CurrentRecipe = r
	}
	for i := range m.view.RecipeList {
		if m.view.RecipeList[i].ID == r.ID {
			m.view.RecipeList[i] = r
			break
		}
	}
}

func (m *Mirror) removeRecipe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view.CurrentRecipe != nil && m.view.CurrentRecipe.ID == id {
		m.view.CurrentRecipe = nil
	}
	for i := range m.view.RecipeList {
		if m.view.RecipeList[i].ID == id {
			m.view.RecipeList = append(m.view.RecipeList[:i], m.view.RecipeList[i+1:]...)
			break
		}
	}
}

func (m *Mirror) applyAccount(a domain.PublicAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view.CurrentAccount != nil && m.view.CurrentAccount.Email == a.Email {
		*m.view.CurrentAccount = a
	}
	replaced := false
	for i := range m.accounts {
		if m.accounts[i].Email == a.Email {
			m.accounts[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		m.accounts = append(m.accounts, a)
	}
}

func (m *Mirror) applyNotification(n domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == n.ID {
			m.notifications[i] = n
			return
		}
	}
	m.notifications = append(m.notifications, n)
}
