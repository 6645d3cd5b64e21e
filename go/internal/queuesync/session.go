package queuesync

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Fixed keys the viewer's identity is stored under.
const (
	SessionTokenKey = "slotSync_token"
	SessionNameKey  = "slotSync_name"
)

// SessionStore is the external key-value capability sessions persist to.
// Get reports found=false for a missing key.
type SessionStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Remove(ctx context.Context, key string) error
}

// SessionManager holds the viewer's session in memory and mirrors changes to
// the store. The store is read once, by Load.
type SessionManager struct {
	store SessionStore

	mu      sync.RWMutex
	current *models.Session
	// savedAt is the last poll sequence issued before current was saved
	savedAt uint64
}

func NewSessionManager(store SessionStore) *SessionManager {
	return &SessionManager{store: store}
}

// Load restores a returning participant's session. A partial or corrupt
// entry is treated as no session.
func (m *SessionManager) Load(ctx context.Context) (*models.Session, error) {
	tokenStr, foundToken, err := m.store.Get(ctx, SessionTokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}
	name, foundName, err := m.store.Get(ctx, SessionNameKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session name: %w", err)
	}
	if !foundToken || !foundName {
		return nil, nil
	}

	token, err := strconv.Atoi(tokenStr)
	if err != nil {
		log.Warn().Str("token", tokenStr).Msg("ignoring unparsable stored session token")
		return nil, nil
	}

	sess := &models.Session{Token: token, Name: name}
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	log.Info().Int("token", token).Str("name", name).Msg("restored session")
	return m.Current(), nil
}

// Current returns a copy of the session, or nil.
func (m *SessionManager) Current() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	sess := *m.current
	return &sess
}

// Save stores a freshly assigned identity. savedAt is the newest poll
// sequence that may predate it; Reconcile ignores snapshots up to it.
func (m *SessionManager) Save(ctx context.Context, sess models.Session, savedAt uint64) error {
	m.mu.Lock()
	m.current = &sess
	m.savedAt = savedAt
	m.mu.Unlock()

	if err := m.store.Set(ctx, SessionTokenKey, strconv.Itoa(sess.Token)); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	if err := m.store.Set(ctx, SessionNameKey, sess.Name); err != nil {
		return fmt.Errorf("failed to store session name: %w", err)
	}
	return nil
}

// Clear forgets the session in memory and in the store.
func (m *SessionManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Remove(ctx, SessionTokenKey); err != nil {
		return fmt.Errorf("failed to remove session token: %w", err)
	}
	if err := m.store.Remove(ctx, SessionNameKey); err != nil {
		return fmt.Errorf("failed to remove session name: %w", err)
	}
	return nil
}

// Reconcile clears a session whose token is absent from snap (removed
// server-side), where seq is the poll that produced snap. Snapshots from
// polls issued before the session was saved are ignored. It reports whether
// the session was cleared.
func (m *SessionManager) Reconcile(ctx context.Context, snap *models.Snapshot, seq uint64) bool {
	sess := m.Current()
	if sess == nil || snap == nil || sess.InQueue(snap) {
		return false
	}

	// a concurrent Save may have replaced the session we looked at
	m.mu.Lock()
	if m.current == nil || m.current.Token != sess.Token || seq <= m.savedAt {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	log.Info().Int("token", sess.Token).Msg("session token no longer queued, clearing session")
	if err := m.Clear(ctx); err != nil {
		log.Error().Err(err).Int("token", sess.Token).Msg("failed to clear stale session")
	}
	return true
}
