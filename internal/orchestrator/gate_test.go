package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/beadloop/beadloop/pkg/models"
)

func TestChildrenCompleteNoChildren(t *testing.T) {
	s := newFakeStore(leaf("fb-p0.1", models.StatusInProgress, "fb-p0"))
	g := NewGate(s, NopLogger())

	if !g.ChildrenComplete(context.Background(), "fb-p0.1") {
		t.Error("zero children should be vacuously complete")
	}
}

func TestChildrenCompleteAllTerminal(t *testing.T) {
	s := newFakeStore(
		leaf("fb-p0.1", models.StatusInProgress, "fb-p0"),
		leaf("fb-p0.1.1", models.StatusDone, "fb-p0.1"),
		leaf("fb-p0.1.2", models.StatusClosed, "fb-p0.1"),
	)
	g := NewGate(s, NopLogger())

	if !g.ChildrenComplete(context.Background(), "fb-p0.1") {
		t.Error("done and closed children should pass the gate")
	}
}

func TestChildrenCompleteOpenStates(t *testing.T) {
	for _, status := range []models.Status{models.StatusReady, models.StatusInProgress, models.StatusBlocked} {
		t.Run(string(status), func(t *testing.T) {
			s := newFakeStore(
				leaf("fb-p0.1.1", models.StatusClosed, "fb-p0.1"),
				leaf("fb-p0.1.2", status, "fb-p0.1"),
			)
			g := NewGate(s, NopLogger())

			if g.ChildrenComplete(context.Background(), "fb-p0.1") {
				t.Errorf("a %s child should hold the gate open", status)
			}
		})
	}
}

func TestChildrenCompleteReopensAfterChildrenClose(t *testing.T) {
	s := newFakeStore(leaf("fb-p0.1.1", models.StatusReady, "fb-p0.1"))
	g := NewGate(s, NopLogger())

	if g.ChildrenComplete(context.Background(), "fb-p0.1") {
		t.Fatal("gate should be open while the child is ready")
	}

	s.tasks["fb-p0.1.1"].Status = models.StatusClosed

	if !g.ChildrenComplete(context.Background(), "fb-p0.1") {
		t.Error("gate should pass after the child closes, with no other change")
	}
}

func TestInspectReportsBlockedChild(t *testing.T) {
	s := newFakeStore(
		leaf("fb-p0.1.1", models.StatusClosed, "fb-p0.1"),
		leaf("fb-p0.1.2", models.StatusBlocked, "fb-p0.1"),
	)
	g := NewGate(s, NopLogger())

	complete, blockedChild := g.Inspect(context.Background(), "fb-p0.1")
	if complete {
		t.Fatal("a blocked child should hold the gate open")
	}
	if blockedChild != "fb-p0.1.2" {
		t.Errorf("blockedChild = %q, want fb-p0.1.2", blockedChild)
	}
}

func TestInspectReportsNoBlockedChildForActiveStates(t *testing.T) {
	s := newFakeStore(leaf("fb-p0.1.1", models.StatusInProgress, "fb-p0.1"))
	g := NewGate(s, NopLogger())

	complete, blockedChild := g.Inspect(context.Background(), "fb-p0.1")
	if complete {
		t.Fatal("an in-progress child should hold the gate open")
	}
	if blockedChild != "" {
		t.Errorf("blockedChild = %q, want empty for a child that can still finish", blockedChild)
	}
}

// A store read failure makes the gate report complete. This is a deliberate
// availability-over-correctness choice: an outage could close an ancestor
// early, and the close mutation is the only backstop.
func TestChildrenCompleteStoreErrorTreatedAsComplete(t *testing.T) {
	s := newFakeStore(leaf("fb-p0.1.1", models.StatusReady, "fb-p0.1"))
	s.childrenErr = errors.New("store unreachable")
	g := NewGate(s, NopLogger())

	if !g.ChildrenComplete(context.Background(), "fb-p0.1") {
		t.Error("read failure should degrade to complete, not wedge the loop")
	}
}
