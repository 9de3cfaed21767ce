package game

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/doudizhu/internal/platform/errors"
	"github.com/louisbranch/doudizhu/internal/services/game/domain/command"
)

func illegal(code, message string) *command.Rejection {
	return &command.Rejection{Kind: apperrors.CodeIllegalMove, Code: code, Message: message}
}

func invalid(code, message string) *command.Rejection {
	return &command.Rejection{Kind: apperrors.CodeInvalidEvent, Code: code, Message: message}
}

// Illegal moves: well-formed events that violate turn order, ownership,
// pattern legality or dominance.
var (
	ErrWrongPhase           = illegal("WRONG_PHASE", "action not allowed in this phase")
	ErrNotYourTurn          = illegal("NOT_YOUR_TURN", "not your turn")
	ErrCardsNotInHand       = illegal("CARDS_NOT_IN_HAND", "cards not in hand")
	ErrUnrecognizedShape    = illegal("UNRECOGNIZED_SHAPE", "cards form no recognized shape")
	ErrDoesNotBeatIncumbent = illegal("DOES_NOT_BEAT_INCUMBENT", "play does not beat the incumbent")
	ErrIllegalPass          = illegal("ILLEGAL_PASS_AS_LEADER", "the trick leader may not pass")
	ErrRoundResetPending    = illegal("ROUND_RESET_PENDING", "trick must be reset first")
	ErrRoundResetNotDue     = illegal("ROUND_RESET_NOT_DUE", "round reset requires two passes in a row")
	ErrBiddingInProgress    = illegal("BIDDING_IN_PROGRESS", "bidding has not concluded")
	ErrNotHighestBidder     = illegal("NOT_HIGHEST_BIDDER", "landlord must be the highest bidder")
	ErrNotFallbackLandlord  = illegal("NOT_FALLBACK_LANDLORD", "landlord must be the rule-supplied fallback")
	ErrBiddingExhausted     = &command.Rejection{
		Kind:    apperrors.CodeBiddingExhausted,
		Code:    "BIDDING_EXHAUSTED",
		Message: "every seat declined; landlord must be assigned",
	}
)

// Invalid events: payloads that are malformed for their declared type.
var (
	ErrUnknownEvent     = invalid("UNKNOWN_EVENT_TYPE", "unknown event type")
	ErrMalformedPayload = invalid("MALFORMED_PAYLOAD", "malformed payload")
	ErrInvalidDeal      = invalid("INVALID_DEAL", "deal must assign 17 cards to each seat and 3 to the bottom")
	ErrSeatOutOfRange   = invalid("SEAT_OUT_OF_RANGE", "seat out of range")
	ErrBidOutOfRange    = invalid("BID_OUT_OF_RANGE", "bid must be between 0 and 3")
	ErrLeaderMismatch   = invalid("LEADER_MISMATCH", "round reset must name the last player to play")
	ErrWinnerMismatch   = invalid("WINNER_MISMATCH", "game over must name the seat that emptied its hand")
	ErrUnknownCommand   = invalid("UNKNOWN_COMMAND", "unknown command type")
)

// reject returns a copy of base with a specific message.
func reject(base *command.Rejection, format string, args ...any) error {
	r := base.With(fmt.Sprintf(format, args...), nil)
	return &r
}

// rejectCause returns a copy of base wrapping cause.
func rejectCause(base *command.Rejection, cause error) error {
	r := base.With(base.Message, cause)
	return &r
}

// asRejection converts any reducer error into a rejection value.
func asRejection(err error) command.Rejection {
	var r *command.Rejection
	if errors.As(err, &r) {
		return *r
	}
	return ErrMalformedPayload.With(ErrMalformedPayload.Message, err)
}
