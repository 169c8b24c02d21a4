package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/persona/pkg/cryptox"
)

const (
	DefaultCookieName = "persona_sid"
	DefaultTTL        = 24 * time.Hour
)

// CookieOptions shapes the session cookie. The zero value of SameSite means
// http.SameSiteNoneMode when Secure is set and http.SameSiteLaxMode
// otherwise; the Persona login callback is a cross-site POST, so browsers only
// send the cookie with it under SameSite=None.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Manager loads and saves sessions for HTTP requests.
type Manager struct {
	backend Backend
	sealer  *cryptox.Sealer
	cookie  CookieOptions
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Manager)

// WithSealer encrypts session data before it reaches the backend.
func WithSealer(s *cryptox.Sealer) Option {
	return func(m *Manager) { m.sealer = s }
}

func WithCookie(c CookieOptions) Option {
	return func(m *Manager) { m.cookie = c }
}

// WithTTL sets the idle lifetime of a session. Every save extends it.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager storing sessions in backend.
func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		cookie:  CookieOptions{Name: DefaultCookieName, Path: "/", Secure: true},
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cookie.Name == "" {
		m.cookie.Name = DefaultCookieName
	}
	if m.cookie.Path == "" {
		m.cookie.Path = "/"
	}
	if m.cookie.SameSite == 0 {
		m.cookie.SameSite = http.SameSiteLaxMode
		if m.cookie.Secure {
			m.cookie.SameSite = http.SameSiteNoneMode
		}
	}
	return m
}

// Backend returns the underlying store, e.g. for readiness checks.
func (m *Manager) Backend() Backend { return m.backend }

// Load returns the session named by the request cookie. Unknown, expired or
// undecodable sessions yield a fresh empty session; only backend failures are
// errors.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil || c.Value == "" {
		return newSession("", nil), nil
	}
	id := c.Value

	blob, err := m.backend.Load(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return newSession("", nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	values, err := m.decode(id, blob)
	if err != nil {
		m.logger.WarnContext(r.Context(), "session.decode_failed",
			"sid_fp", cryptox.FingerprintToken(id),
			"err", err,
		)
		return newSession("", nil), nil
	}
	return newSession(id, values), nil
}

// Save persists sess if it changed and writes the cookie. It must run before
// the response header is written.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.dirty {
		return nil
	}

	if len(sess.values) == 0 {
		if sess.id != "" {
			if err := m.backend.Delete(ctx, sess.id); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		sess.id = ""
		sess.dirty, sess.renew = false, false
		http.SetCookie(w, m.newCookie("", -1))
		return nil
	}

	if sess.id == "" || sess.renew {
		newID, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}
		if sess.id != "" {
			if err := m.backend.Delete(ctx, sess.id); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		sess.id = newID
	}

	blob, err := m.encode(sess.id, sess.values)
	if err != nil {
		return err
	}
	if err := m.backend.Save(ctx, sess.id, blob, m.now().Add(m.ttl)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	sess.dirty, sess.renew = false, false
	http.SetCookie(w, m.newCookie(sess.id, int(m.ttl/time.Second)))
	return nil
}

func (m *Manager) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     m.cookie.Path,
		Domain:   m.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	}
}

func (m *Manager) encode(id string, values map[string]string) ([]byte, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if m.sealer == nil {
		return data, nil
	}
	return m.sealer.Seal(data, []byte(id))
}

func (m *Manager) decode(id string, blob []byte) (map[string]string, error) {
	if m.sealer != nil {
		var err error
		if blob, err = m.sealer.Open(blob, []byte(id)); err != nil {
			return nil, err
		}
	}
	var values map[string]string
	if err := json.Unmarshal(blob, &values); err != nil {
		return nil, err
	}
	return values, nil
}
