package wound_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cory-johannsen/greatwound/internal/actor"
)

// scriptedSource replays die faces in order; once exhausted it keeps rolling
// ones. Faces above the requested die size are clamped to the top face.
type scriptedSource struct {
	mu    sync.Mutex
	faces []int
	calls int
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := 1
	if s.calls < len(s.faces) {
		face = s.faces[s.calls]
	}
	s.calls++
	if face > n {
		face = n
	}
	return face - 1
}

func (s *scriptedSource) rolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingNotifier captures announcements instead of broadcasting them.
type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingNotifier) Post(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func (r *recordingNotifier) containing(sub string) int {
	count := 0
	for _, text := range r.all() {
		if strings.Contains(text, sub) {
			count++
		}
	}
	return count
}

// recordingPrompter records every question and answers them all the same way.
type recordingPrompter struct {
	mu        sync.Mutex
	accept    bool
	questions []string
}

func (p *recordingPrompter) Confirm(_ context.Context, question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.questions = append(p.questions, question)
	return p.accept
}

func (p *recordingPrompter) asked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.questions)
}

// recordingStore captures persistence calls.
type recordingStore struct {
	mu      sync.Mutex
	items   []actor.Item
	effects []actor.Effect
}

func (s *recordingStore) AttachItem(_ context.Context, _ string, item actor.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *recordingStore) AttachEffect(_ context.Context, _ string, effect actor.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, effect)
	return nil
}

func (s *recordingStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), len(s.effects)
}

// mapLookup resolves actors from a fixed map.
type mapLookup map[string]*actor.Actor

func (m mapLookup) GetByID(_ context.Context, id string) (*actor.Actor, error) {
	a, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("actor %s not found", id)
	}
	return a, nil
}
