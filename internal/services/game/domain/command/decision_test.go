package command

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

func TestAcceptDecision_ReturnsEventsOnly(t *testing.T) {
	decision := Accept(event.Draft{Type: event.TypePass, Payload: []byte(`{"seat":1}`)})

	if len(decision.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(decision.Events))
	}
	if len(decision.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %d", len(decision.Rejections))
	}
	if decision.Err() != nil {
		t.Fatalf("expected nil error, got %v", decision.Err())
	}
}

func TestDecisionValidate(t *testing.T) {
	if err := (Decision{}).Validate(); err == nil {
		t.Fatal("expected error for empty decision")
	}
	both := Decision{
		Events:     []event.Draft{{Type: event.TypePass}},
		Rejections: []Rejection{{Code: "NOPE"}},
	}
	if err := both.Validate(); err == nil {
		t.Fatal("expected error for mixed decision")
	}
	if err := Reject(Rejection{Code: "NOPE"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRejectionMatching(t *testing.T) {
	notYourTurn := &Rejection{Kind: apperrors.CodeIllegalMove, Code: "NOT_YOUR_TURN"}
	cause := errors.New("seat 2 acted on seat 0's turn")
	decision := Reject(notYourTurn.With("not your turn", cause))

	err := decision.Err()
	if !errors.Is(err, notYourTurn) {
		t.Fatal("expected match by code")
	}
	if !errors.Is(err, &Rejection{Kind: apperrors.CodeIllegalMove}) {
		t.Fatal("expected match by kind")
	}
	if !errors.Is(err, apperrors.ErrIllegalMove) {
		t.Fatal("expected match against platform code")
	}
	if errors.Is(err, apperrors.ErrInvalidEvent) {
		t.Fatal("expected no match against other kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if apperrors.CodeOf(err) != apperrors.CodeIllegalMove {
		t.Fatalf("unexpected code %s", apperrors.CodeOf(err))
	}
}
