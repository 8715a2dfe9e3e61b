package validators_test

import (
	"math/big"
	"testing"

	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/validators"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	validatorOne = common.HexToAddress("0xD4")
	validatorTwo = common.HexToAddress("0xD5")
	outsider     = common.HexToAddress("0xA1")
)

type committeeEnv struct {
	committee *validators.Committee
	now       int64
}

func newCommitteeEnv() *committeeEnv {
	env := &committeeEnv{now: 1_700_000_000}
	env.committee = validators.New(map[common.Address]*big.Int{
		validatorOne: big.NewInt(100),
		validatorTwo: big.NewInt(100),
	}, func() int64 { return env.now })
	return env
}

func quorum(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), gov.Precision)
}

func TestCreateExternalProposal_Once(t *testing.T) {
	env := newCommitteeEnv()

	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))
	assert.ErrorIs(t, env.committee.CreateExternalProposal(1, quorum(51), 600), validators.ErrAlreadyCreated)
}

func TestVote_OnlyValidators(t *testing.T) {
	env := newCommitteeEnv()
	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))

	assert.ErrorIs(t, env.committee.Vote(outsider, 1, gov.VoteSideFor), validators.ErrNotValidator)
	assert.ErrorIs(t, env.committee.Vote(validatorOne, 2, gov.VoteSideFor), validators.ErrNoBallot)
}

func TestVote_FullWeightOnce(t *testing.T) {
	env := newCommitteeEnv()
	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))

	assert.NoError(t, env.committee.Vote(validatorOne, 1, gov.VoteSideFor))
	assert.ErrorIs(t, env.committee.Vote(validatorOne, 1, gov.VoteSideFor), validators.ErrAlreadyVoted)

	state, ok := env.committee.ExternalState(1)
	assert.True(t, ok)
	assert.Equal(t, gov.CommitteeVoting, state)
}

func TestExternalState_QuorumDecides(t *testing.T) {
	env := newCommitteeEnv()
	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))

	assert.NoError(t, env.committee.Vote(validatorOne, 1, gov.VoteSideFor))
	assert.NoError(t, env.committee.Vote(validatorTwo, 1, gov.VoteSideFor))

	state, _ := env.committee.ExternalState(1)
	assert.Equal(t, gov.CommitteeSucceeded, state)

	// The ballot is terminal: late votes bounce.
	assert.ErrorIs(t, env.committee.Vote(validatorTwo, 1, gov.VoteSideAgainst), validators.ErrBallotClosed)
}

func TestExternalState_TieDefeated(t *testing.T) {
	env := newCommitteeEnv()
	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))

	assert.NoError(t, env.committee.Vote(validatorOne, 1, gov.VoteSideFor))
	assert.NoError(t, env.committee.Vote(validatorTwo, 1, gov.VoteSideAgainst))

	state, _ := env.committee.ExternalState(1)
	assert.Equal(t, gov.CommitteeDefeated, state)
}

func TestExternalState_WindowExpires(t *testing.T) {
	env := newCommitteeEnv()
	assert.NoError(t, env.committee.CreateExternalProposal(1, quorum(51), 600))
	assert.NoError(t, env.committee.Vote(validatorOne, 1, gov.VoteSideFor))

	env.now += 600
	state, _ := env.committee.ExternalState(1)
	assert.Equal(t, gov.CommitteeDefeated, state)
	assert.ErrorIs(t, env.committee.Vote(validatorTwo, 1, gov.VoteSideFor), validators.ErrBallotClosed)
}

func TestExternalState_UnknownBallot(t *testing.T) {
	env := newCommitteeEnv()

	_, ok := env.committee.ExternalState(7)
	assert.False(t, ok)
}
