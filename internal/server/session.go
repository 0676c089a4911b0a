package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/jvx/internal/flatten"
)

const (
	sessionName  = "jvx"
	sessionIDKey = "view_id"
)

// view is one browser session's engine. The engine holds the session's
// expanded paths and search term over the shared document.
type view struct {
	mu       sync.Mutex
	id       string
	engine   *flatten.Engine
	version  uint64 // document version the engine holds
	lastSeen time.Time
}

// viewFor returns the caller's view, creating a session cookie on first use.
// The returned view is locked and synced with the shared document; the caller
// must unlock it.
func (s *Server) viewFor(w http.ResponseWriter, r *http.Request) (*view, docState, error) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		// A cookie from an older key; start over with a fresh session.
		s.log.V(1).Info("discarding invalid session", "error", err.Error())
		session, err = s.sessionStore.New(r, sessionName)
		if err != nil && session == nil {
			return nil, docState{}, fmt.Errorf("session: %w", err)
		}
	}

	id, _ := session.Values[sessionIDKey].(string)
	v := s.lookupView(id)
	if v == nil {
		v = s.newView()
		session.Values[sessionIDKey] = v.id
		if err := session.Save(r, w); err != nil {
			return nil, docState{}, fmt.Errorf("save session: %w", err)
		}
	}

	v.mu.Lock()
	v.lastSeen = time.Now()
	st := s.snapshot()
	if v.version != st.version {
		if st.hasDoc {
			v.engine.SetDocument(st.doc)
		} else {
			v.engine.ClearDocument()
		}
		v.version = st.version
	}
	return v, st, nil
}

func (s *Server) lookupView(id string) *view {
	if id == "" {
		return nil
	}
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	return s.views[id]
}

func (s *Server) newView() *view {
	v := &view{
		id: uuid.NewString(),
		engine: flatten.NewEngine(
			flatten.WithInvalidPatternMode(s.cfg.InvalidPattern),
			flatten.WithExpanded(s.cfg.Expanded...),
		),
		lastSeen: time.Now(),
	}
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	s.pruneViewsLocked(time.Now())
	s.views[v.id] = v
	s.log.V(1).Info("new view session", "id", v.id, "sessions", len(s.views))
	return v
}

// pruneViewsLocked drops views idle for longer than the session max age,
// then the least recently seen ones until a new view fits under MaxSessions.
// Views in use are never dropped.
func (s *Server) pruneViewsLocked(now time.Time) {
	seen := make(map[string]time.Time, len(s.views))
	for id, v := range s.views {
		if !v.mu.TryLock() {
			continue
		}
		last := v.lastSeen
		v.mu.Unlock()
		if now.Sub(last) > s.cfg.SessionMaxAge {
			delete(s.views, id)
			continue
		}
		seen[id] = last
	}
	for len(s.views) >= s.cfg.MaxSessions && len(seen) > 0 {
		oldest := ""
		for id, last := range seen {
			if oldest == "" || last.Before(seen[oldest]) {
				oldest = id
			}
		}
		delete(s.views, oldest)
		delete(seen, oldest)
		s.log.V(1).Info("evicted view session", "id", oldest)
	}
}

// Sessions returns the number of live view sessions.
func (s *Server) Sessions() int {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	return len(s.views)
}
