package gov

import "errors"

// Every rejected precondition surfaces one of these kinds; callers match with
// errors.Is. A failed call leaves tallies, locks and accruals untouched.
var (
	ErrInvalidArrayLength     = errors.New("invalid array length")
	ErrInvalidInternalData    = errors.New("invalid internal data")
	ErrInvalidExecutorsLength = errors.New("invalid executors length")
	ErrInvalidProposalID      = errors.New("invalid proposal id")
	ErrLowCreatingPower       = errors.New("low creating power")

	ErrEmptyVote          = errors.New("empty vote")
	ErrLowVotingPower     = errors.New("low voting power")
	ErrWrongVoteAmount    = errors.New("wrong vote amount")
	ErrVoteLimitReached   = errors.New("vote limit reached")
	ErrVoteUnavailable    = errors.New("vote unavailable")
	ErrNFTAlreadyVoted    = errors.New("nft already voted")
	ErrDelegatedVotingOff = errors.New("delegated voting off")
	ErrVoteSideMismatch   = errors.New("vote side mismatch")

	ErrCantBeMoved       = errors.New("can't be moved to validators")
	ErrInvalidStatus     = errors.New("invalid proposal status")
	ErrNoVoteForProposal = errors.New("no vote for proposal")
	ErrNoHandler         = errors.New("no handler for action target")

	ErrProposalNotExecuted = errors.New("proposal not executed")
	ErrRewardsOff          = errors.New("rewards off")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFailedToSendEth     = errors.New("failed to send eth")
)
