package ingest_test

import (
	"context"
	"errors"
	"sync"

	"github.com/nhle/goal-guardian/internal/source"
)

// fakeSource serves a fixed list of message bodies. Handle i is bodies[i].
type fakeSource struct {
	mu sync.Mutex

	bodies     []string
	connectErr error

	// unreadable marks handles whose fetch fails with a FetchError.
	unreadable map[int]bool

	// dropAt makes fetching that handle fail with a ConnectivityError;
	// negative disables it.
	dropAt int

	connects int
	closes   int
	criteria []source.Criteria
}

func newFakeSource(bodies ...string) *fakeSource {
	return &fakeSource{bodies: bodies, dropAt: -1}
}

func (f *fakeSource) Connect(_ context.Context, _, _ string) (source.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connects++
	return &fakeSession{src: f}, nil
}

func (f *fakeSource) stats() (connects, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.closes
}

type fakeSession struct {
	src *fakeSource
}

func (s *fakeSession) Search(_ context.Context, c source.Criteria) (*source.Handles, error) {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	s.src.criteria = append(s.src.criteria, c)

	hs := make([]source.Handle, len(s.src.bodies))
	for i := range s.src.bodies {
		hs[i] = source.Handle(i)
	}
	return source.NewHandles(hs...), nil
}

func (s *fakeSession) FetchBody(_ context.Context, h source.Handle) (string, error) {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	i := int(h)
	if i == s.src.dropAt {
		return "", &source.ConnectivityError{Op: "fetch", Timeout: true, Err: errors.New("i/o timeout")}
	}
	if s.src.unreadable[i] {
		return "", &source.FetchError{Handle: h, Err: errors.New("message expunged")}
	}
	return s.src.bodies[i], nil
}

func (s *fakeSession) Close() error {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	s.src.closes++
	return nil
}
