package errors

import "errors"

var (
	ErrAgendaItemNotFound = errors.New("agenda item not found")
	ErrSessionNotFound    = errors.New("voting session not found")
	ErrSessionAlreadyOpen = errors.New("agenda item already has a voting session")
	ErrInvalidAgendaInput = errors.New("invalid agenda item input")
	ErrInvalidVoteInput   = errors.New("invalid vote input")
	ErrInvalidVoterID     = errors.New("invalid voter identifier")
	ErrSessionClosed      = errors.New("voting session is closed")
	ErrVoterNotEligible   = errors.New("voter is not eligible to vote")
	ErrDuplicateVote      = errors.New("voter already voted in this session")
	ErrVersionConflict    = errors.New("session version conflict")
)
