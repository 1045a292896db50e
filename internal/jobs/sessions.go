package jobs

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sessions hands out one FetchService per signed-in user and runs its
// watcher. When the user signs out (or a different user takes over the
// seat) the old session is torn down and a fresh one starts cleanly.
type Sessions struct {
	actions *ActionService
	log     *logrus.Logger

	mu sync.Mutex
	m  map[uint]*session
}

type session struct {
	svc    *FetchService
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessions(actions *ActionService, log *logrus.Logger) *Sessions {
	return &Sessions{
		actions: actions,
		log:     log,
		m:       make(map[uint]*session),
	}
}

// For returns the fetch service for userID, creating it and starting its
// watcher on first use.
func (s *Sessions) For(userID uint) *FetchService {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[userID]; ok {
		return sess.svc
	}
	svc := NewFetchService(s.actions, s.actions.feed, userID, s.log)
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{svc: svc, cancel: cancel, done: make(chan struct{})}
	s.m[userID] = sess
	go func() {
		defer close(sess.done)
		svc.Watch(ctx)
	}()
	return svc
}

// Close tears down the session for userID and waits for its watcher to
// stop, so a new session for the same user never overlaps the old one.
func (s *Sessions) Close(userID uint) {
	s.mu.Lock()
	sess, ok := s.m[userID]
	if ok {
		sess.cancel()
		delete(s.m, userID)
	}
	s.mu.Unlock()
	if ok {
		<-sess.done
	}
}

// CloseAll stops every watcher and waits for them. Called on shutdown,
// before shared resources like the change feed are closed.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	stopped := make([]*session, 0, len(s.m))
	for id, sess := range s.m {
		sess.cancel()
		delete(s.m, id)
		stopped = append(stopped, sess)
	}
	s.mu.Unlock()
	for _, sess := range stopped {
		<-sess.done
	}
}
