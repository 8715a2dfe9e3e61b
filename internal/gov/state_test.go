package gov_test

import (
	"math/big"
	"testing"

	"dao_governance_pool/internal/gov"

	"github.com/stretchr/testify/assert"
)

func TestState_UnknownProposal(t *testing.T) {
	env := newTestEnv(baseSettings())
	assert.Equal(t, gov.StateUndefined, env.pool.State(42))
}

func TestState_DefeatedWithoutQuorum(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	assert.NoError(t, env.pool.Vote(alice, proposalID, big.NewInt(10000), nil, gov.VoteSideFor))

	assert.Equal(t, gov.StateVoting, env.pool.State(proposalID))
	env.advance(voteDuration)
	assert.Equal(t, gov.StateDefeated, env.pool.State(proposalID))
}

func TestState_EarlyCompletion(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	env.passProposal(t, proposalID)
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))
}

func TestState_NoEarlyCompletionWaitsForDeadline(t *testing.T) {
	bundle := baseSettings()
	bundle.EarlyCompletion = false
	env := newTestEnv(bundle)
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	env.passProposal(t, proposalID)
	assert.Equal(t, gov.StateVoting, env.pool.State(proposalID))

	env.advance(voteDuration)
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))
}

func TestState_AgainstWinsDefeated(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	assert.NoError(t, env.pool.Vote(alice, proposalID, big.NewInt(10000), nil, gov.VoteSideFor))
	assert.NoError(t, env.pool.Vote(bob, proposalID, big.NewInt(14000), nil, gov.VoteSideAgainst))

	assert.Equal(t, gov.StateDefeated, env.pool.State(proposalID))
}

func TestState_TieDefeated(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.ledger.Deposit(alice, big.NewInt(10000))
	env.ledger.Deposit(bob, big.NewInt(10000))
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	assert.NoError(t, env.pool.Vote(alice, proposalID, big.NewInt(10000), nil, gov.VoteSideFor))
	assert.NoError(t, env.pool.Vote(bob, proposalID, big.NewInt(10000), nil, gov.VoteSideAgainst))

	assert.Equal(t, gov.StateDefeated, env.pool.State(proposalID))
}

func TestState_LiveQuorumDenominator(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	env.passProposal(t, proposalID)

	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))

	// A big new deposit raises the quorum bar and reopens the vote.
	env.ledger.Deposit(carol, big.NewInt(50000))
	assert.Equal(t, gov.StateVoting, env.pool.State(proposalID))
}

func TestMoveProposalToValidators_NotWaiting(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	assert.ErrorIs(t, env.pool.MoveProposalToValidators(proposalID), gov.ErrCantBeMoved)
	assert.ErrorIs(t, env.pool.MoveProposalToValidators(42), gov.ErrCantBeMoved)
}

func TestMoveProposalToValidators_SecondStage(t *testing.T) {
	bundle := baseSettings()
	bundle.ValidatorsVote = true
	env := newTestEnv(bundle)
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	env.passProposal(t, proposalID)

	assert.Equal(t, gov.StateWaitingForVotingTransfer, env.pool.State(proposalID))
	assert.NoError(t, env.pool.MoveProposalToValidators(proposalID))
	assert.Equal(t, gov.StateValidatorVoting, env.pool.State(proposalID))

	// Escalation happens exactly once.
	assert.ErrorIs(t, env.pool.MoveProposalToValidators(proposalID), gov.ErrCantBeMoved)

	view, _ := env.pool.GetProposal(proposalID)
	assert.Equal(t, env.now+validatorTime, view.VoteEnd)
	assert.True(t, view.Escalated)
}

func TestValidatorVoting_Succeeds(t *testing.T) {
	bundle := baseSettings()
	bundle.ValidatorsVote = true
	env := newTestEnv(bundle)
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	env.passProposal(t, proposalID)
	assert.NoError(t, env.pool.MoveProposalToValidators(proposalID))

	assert.NoError(t, env.committee.Vote(validatorOne, proposalID, gov.VoteSideFor))
	assert.Equal(t, gov.StateValidatorVoting, env.pool.State(proposalID))

	assert.NoError(t, env.committee.Vote(validatorTwo, proposalID, gov.VoteSideFor))
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))
}

func TestValidatorVoting_Defeated(t *testing.T) {
	bundle := baseSettings()
	bundle.ValidatorsVote = true
	env := newTestEnv(bundle)
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	env.passProposal(t, proposalID)
	assert.NoError(t, env.pool.MoveProposalToValidators(proposalID))

	assert.NoError(t, env.committee.Vote(validatorOne, proposalID, gov.VoteSideFor))
	assert.NoError(t, env.committee.Vote(validatorTwo, proposalID, gov.VoteSideAgainst))
	assert.Equal(t, gov.StateDefeated, env.pool.State(proposalID))
}

func TestValidatorVoting_WindowExpires(t *testing.T) {
	bundle := baseSettings()
	bundle.ValidatorsVote = true
	env := newTestEnv(bundle)
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	env.passProposal(t, proposalID)
	assert.NoError(t, env.pool.MoveProposalToValidators(proposalID))

	assert.NoError(t, env.committee.Vote(validatorOne, proposalID, gov.VoteSideFor))
	env.advance(validatorTime)
	assert.Equal(t, gov.StateDefeated, env.pool.State(proposalID))
}
