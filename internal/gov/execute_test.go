package gov_test

import (
	"errors"
	"math/big"
	"testing"

	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/curve"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestExecute_RequiresSucceededState(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), gov.ErrInvalidStatus)
	assert.ErrorIs(t, env.pool.Execute(carol, 42), gov.ErrInvalidStatus)
}

func TestExecute_NoHandlerForCalldata(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: externalTarget, Value: big.NewInt(0), Data: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	env.passProposal(t, proposalID)

	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), gov.ErrNoHandler)
}

func TestExecute_NativeShortfall(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: externalTarget, Value: big.NewInt(500)},
	})
	env.passProposal(t, proposalID)

	env.pool.Treasury().Deposit(gov.NativeToken, big.NewInt(499))
	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), gov.ErrInsufficientBalance)
}

func TestExecute_TransfersValueAndCallsHandler(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)
	handler := &stubHandler{}
	env.pool.RegisterHandler(externalTarget, handler)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: externalTarget, Value: big.NewInt(300), Data: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	env.passProposal(t, proposalID)
	env.pool.Treasury().Deposit(gov.NativeToken, big.NewInt(1000))

	assert.NoError(t, env.pool.Execute(carol, proposalID))
	assert.Equal(t, gov.StateExecuted, env.pool.State(proposalID))
	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, big.NewInt(300), env.pool.Treasury().ReceivedBy(externalTarget, gov.NativeToken))
	assert.Equal(t, big.NewInt(700), env.pool.Treasury().BalanceOf(gov.NativeToken))

	// Exactly once.
	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), gov.ErrInvalidStatus)
}

func TestExecute_FailingActionRevertsEverything(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	boom := errors.New("handler rejected")
	failing := &stubHandler{fail: boom}
	env.pool.RegisterHandler(externalTarget, failing)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: externalTarget, Value: big.NewInt(300)},
		{Target: externalTarget, Value: big.NewInt(0), Data: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	env.passProposal(t, proposalID)
	env.pool.Treasury().Deposit(gov.NativeToken, big.NewInt(1000))

	err := env.pool.Execute(carol, proposalID)
	assert.ErrorIs(t, err, boom)

	// The first action's transfer was unwound and the proposal is retryable.
	assert.Equal(t, big.NewInt(1000), env.pool.Treasury().BalanceOf(gov.NativeToken))
	assert.Equal(t, "0", env.pool.Treasury().ReceivedBy(externalTarget, gov.NativeToken).String())
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))

	failing.fail = nil
	assert.NoError(t, env.pool.Execute(carol, proposalID))
	assert.Equal(t, big.NewInt(300), env.pool.Treasury().ReceivedBy(externalTarget, gov.NativeToken))
}

func TestExecute_FailingActionRevertsInternalEdits(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	boom := errors.New("handler rejected")
	failing := &stubHandler{fail: boom}
	env.pool.RegisterHandler(externalTarget, failing)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackEditDescriptionURL("ipfs://mutated")},
		{Target: externalTarget, Value: big.NewInt(0), Data: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	env.passProposal(t, proposalID)

	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), boom)

	// The applied self-edit from the first action was unwound with the rest.
	assert.Equal(t, "", env.pool.DescriptionURL())
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))

	failing.fail = nil
	assert.NoError(t, env.pool.Execute(carol, proposalID))
	assert.Equal(t, "ipfs://mutated", env.pool.DescriptionURL())
}

func TestExecute_FailingActionRevertsExecutorRebinding(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	custom := baseSettings()
	custom.Duration = 7200
	customID := env.registry.AddSettings(custom)

	boom := errors.New("handler rejected")
	failing := &stubHandler{fail: boom}
	env.pool.RegisterHandler(externalTarget, failing)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: registryAddress, Value: big.NewInt(0), Data: gov.PackChangeExecutors(externalTarget, new(big.Int).SetUint64(customID))},
		{Target: externalTarget, Value: big.NewInt(0), Data: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	env.passProposal(t, proposalID)

	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), boom)

	_, bound := env.registry.ExecutorSettings(externalTarget)
	assert.False(t, bound)
	assert.Equal(t, gov.StateSucceeded, env.pool.State(proposalID))
}

func TestExecute_EditsDescriptionURL(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackEditDescriptionURL("ipfs://next")},
	})
	env.passProposal(t, proposalID)

	assert.NoError(t, env.pool.Execute(carol, proposalID))
	assert.Equal(t, "ipfs://next", env.pool.DescriptionURL())
}

func TestExecute_ChangesVoteLimit(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackChangeVoteLimit(big.NewInt(1))},
	})
	env.passProposal(t, proposalID)
	assert.NoError(t, env.pool.Execute(carol, proposalID))

	// Alice's slot on the executed proposal counts until she unlocks, so the
	// new limit of one is already used up.
	second, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	err := env.pool.Vote(alice, second, big.NewInt(100), nil, gov.VoteSideFor)
	assert.ErrorIs(t, err, gov.ErrVoteLimitReached)

	assert.NoError(t, env.pool.UnlockInProposals([]uint64{proposalID}, alice))
	assert.NoError(t, env.pool.Vote(alice, second, big.NewInt(100), nil, gov.VoteSideFor))
}

func TestExecute_RejectsInvalidVoteLimit(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackChangeVoteLimit(big.NewInt(0))},
	})
	env.passProposal(t, proposalID)

	assert.ErrorIs(t, env.pool.Execute(carol, proposalID), gov.ErrInvalidInternalData)
}

func TestExecute_SetsNftMultiplier(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	multiplierAddress := common.HexToAddress("0x4001")
	env.pool.RegisterNftMultiplier(multiplierAddress, curve.NewRewardMultiplier())

	// Pointing at an unregistered address fails the execution.
	unknown, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackSetNftMultiplier(common.HexToAddress("0x4002"))},
	})
	env.passProposal(t, unknown)
	assert.ErrorIs(t, env.pool.Execute(carol, unknown), gov.ErrNoHandler)

	known, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: poolAddress, Value: big.NewInt(0), Data: gov.PackSetNftMultiplier(multiplierAddress)},
	})
	env.passProposal(t, known)
	assert.NoError(t, env.pool.Execute(carol, known))
}

func TestExecute_ChangeExecutorsRebindsSettings(t *testing.T) {
	env := newTestEnv(baseSettings())
	env.seedQuorum(t)

	custom := baseSettings()
	custom.Duration = 7200
	customID := env.registry.AddSettings(custom)

	proposalID, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{
		{Target: registryAddress, Value: big.NewInt(0), Data: gov.PackChangeExecutors(externalTarget, new(big.Int).SetUint64(customID))},
	})
	env.passProposal(t, proposalID)
	assert.NoError(t, env.pool.Execute(carol, proposalID))

	next, _ := env.pool.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	view, _ := env.pool.GetProposal(next)
	assert.Equal(t, customID, view.SettingsID)
}
