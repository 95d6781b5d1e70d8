package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateSignedIn       State = "signed_in"
	StateTokenRefreshed State = "token_refreshed"
	StateSignedOut      State = "signed_out"
)

const subscriberBuffer = 8

type Session struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	RefreshedAt time.Time `json:"refreshed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Change описывает переход состояния авторизации пользователя.
type Change struct {
	State     State     `json:"state"`
	Session   Session   `json:"session"`
	Timestamp time.Time `json:"timestamp"`
}

// Store хранит активные сессии процесса и рассылает изменения подписчикам.
// Создается один раз при старте и закрывается при остановке сервера.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	sessions    map[uuid.UUID]Session
	subscribers map[uuid.UUID]map[chan Change]struct{}
	closed      bool
}

// NewStore создает пустое хранилище сессий.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		sessions:    make(map[uuid.UUID]Session),
		subscribers: make(map[uuid.UUID]map[chan Change]struct{}),
	}
}

// Put сохраняет сессию и уведомляет подписчиков пользователя.
func (s *Store) Put(sess Session, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.sessions[sess.ID] = sess
	s.publishLocked(sess.UserID, Change{State: state, Session: sess})
}

// Get возвращает действующую сессию по идентификатору.
func (s *Store) Get(id uuid.UUID) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.now()) {
		return Session{}, false
	}

	return sess, true
}

// Active сообщает, принадлежит ли действующая сессия пользователю.
func (s *Store) Active(id, userID uuid.UUID) bool {
	sess, ok := s.Get(id)
	return ok && sess.UserID == userID
}

// ForUser возвращает действующие сессии пользователя.
func (s *Store) ForUser(userID uuid.UUID) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.Expired(now) {
			out = append(out, sess)
		}
	}
	return out
}

// Remove завершает сессию и уведомляет подписчиков о выходе.
func (s *Store) Remove(id uuid.UUID) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}

	delete(s.sessions, id)
	s.publishLocked(sess.UserID, Change{State: StateSignedOut, Session: sess})
	return sess, true
}

// PurgeExpired удаляет истекшие сессии и возвращает их количество.
func (s *Store) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, sess := range s.sessions {
		if !sess.Expired(now) {
			continue
		}
		delete(s.sessions, id)
		s.publishLocked(sess.UserID, Change{State: StateSignedOut, Session: sess})
		purged++
	}
	return purged
}

// Len возвращает число сессий в хранилище.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Subscribe подписывает на изменения сессий пользователя.
// Функция отписки идемпотентна и безопасна после Close.
func (s *Store) Subscribe(userID uuid.UUID) (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	subs, ok := s.subscribers[userID]
	if !ok {
		subs = make(map[chan Change]struct{})
		s.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		subs, exists := s.subscribers[userID]
		if !exists {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}

		delete(subs, ch)
		if len(subs) == 0 {
			delete(s.subscribers, userID)
		}
		close(ch)
	}
}

// Close закрывает все подписки. Повторный вызов ничего не делает.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for userID, subs := range s.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(s.subscribers, userID)
	}
}

func (s *Store) publishLocked(userID uuid.UUID, change Change) {
	change.Timestamp = s.now().UTC()

	for ch := range s.subscribers[userID] {
		select {
		case ch <- change:
		default:
		}
	}
}
