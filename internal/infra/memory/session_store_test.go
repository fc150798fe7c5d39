package memory

import (
	"errors"
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	session := app.NewSession("s1", sampleQuiz(), 0, app.Options{})

	if err := store.Add(session); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}
	if got := store.ListByQuiz("quiz-1"); len(got) != 1 || got[0] != session {
		t.Fatalf("expected quiz index to hold the session, got %v", got)
	}

	err := store.Add(app.NewSession("s1", sampleQuiz(), 0, app.Options{}))
	if !errors.Is(err, domain.ErrDuplicateSessionID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	store.BindPlayer("p1", "s1")
	if got, ok := store.GetByPlayer("p1"); !ok || got != session {
		t.Fatalf("expected player bound to session")
	}
	if _, ok := store.GetByPlayer("p2"); ok {
		t.Fatalf("expected unknown player to miss")
	}
}
