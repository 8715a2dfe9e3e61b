package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Execute runs every action of a succeeded proposal in order as one atomic
// unit. A failing action reverts the whole execution and leaves the proposal
// Succeeded and retryable. On success the proposal is executed exactly once
// and rewards are settled.
func (p *Pool) Execute(caller common.Address, proposalID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return ErrInvalidStatus
	}
	if p.state(proposal) != StateSucceeded {
		return ErrInvalidStatus
	}

	totalNative := new(big.Int)
	for _, action := range proposal.Actions {
		if len(action.Data) > 0 {
			if _, ok := p.handlers[action.Target]; !ok {
				return ErrNoHandler
			}
		}
		totalNative.Add(totalNative, action.Value)
	}
	if p.treasury.BalanceOf(NativeToken).Cmp(totalNative) < 0 {
		return ErrInsufficientBalance
	}

	// Handlers may debit the treasury or mutate their own state; snapshot the
	// treasury and every revertable handler before its first call so a failing
	// action unwinds everything applied so far.
	snapshot := p.treasury.snapshot()
	snapshotted := map[CallHandler]struct{}{}
	var restores []func()
	revert := func() {
		p.treasury.restore(snapshot)
		for j := len(restores) - 1; j >= 0; j-- {
			restores[j]()
		}
	}
	ctx := CallContext{
		ProposalID: proposalID,
		Executor:   caller,
		VotesFor:   new(big.Int).Set(proposal.VotesFor),
	}

	for i, action := range proposal.Actions {
		if action.Value.Sign() > 0 {
			if err := p.treasury.Send(NativeToken, action.Target, action.Value); err != nil {
				revert()
				return errors.Wrapf(err, "failed to transfer value for action %d", i)
			}
		}
		if len(action.Data) == 0 {
			continue
		}
		handler := p.handlers[action.Target]
		if reverter, ok := handler.(StateReverter); ok {
			if _, seen := snapshotted[handler]; !seen {
				snapshotted[handler] = struct{}{}
				state := reverter.SnapshotState()
				restores = append(restores, func() { reverter.RestoreState(state) })
			}
		}
		if err := handler.OnProposalCall(ctx, action.Value, action.Data); err != nil {
			revert()
			return errors.Wrapf(err, "failed to execute action %d", i)
		}
	}

	proposal.Executed = true
	p.settleRewards(proposal, caller)

	p.logger.Debugw("proposal executed",
		"proposal", proposalID, "caller", caller.Hex(), "actions", len(proposal.Actions))
	return nil
}

// settleRewards accrues the execution and per-voter rewards after a
// successful execution. Settlement is accrual-only: the single treasury check
// here just warns when the pot cannot cover the full set, claims re-check
// live balances.
func (p *Pool) settleRewards(proposal *Proposal, executor common.Address) {
	settings := proposal.Settings
	if !settings.RewardsEnabled() {
		return
	}

	if settings.ExecutionReward.Sign() > 0 {
		accrual := p.accrual(proposal.ID, executor, settings.RewardToken)
		accrual.Execution.Add(accrual.Execution, settings.ExecutionReward)
	}

	for key, record := range p.votes {
		if key.ProposalID != proposal.ID || record.Side != VoteSideFor {
			continue
		}
		reward := new(big.Int).Mul(record.Weight, settings.VoteRewardsCoefficient)
		reward.Div(reward, Precision)
		if p.nftMultiplier != nil {
			reward.Add(reward, p.nftMultiplier.ExtraReward(key.Voter, reward))
		}
		if reward.Sign() == 0 {
			continue
		}
		accrual := p.accrual(proposal.ID, key.Voter, settings.RewardToken)
		accrual.Voting.Add(accrual.Voting, reward)
	}

	pending := new(big.Int)
	for key, accrual := range p.rewards {
		if key.ProposalID == proposal.ID && !accrual.Claimed {
			pending.Add(pending, accrual.Total())
		}
	}
	if balance := p.treasury.BalanceOf(settings.RewardToken); balance.Cmp(pending) < 0 {
		p.logger.Warnw("treasury cannot cover settled rewards",
			"proposal", proposal.ID, "pending", pending.String(), "balance", balance.String())
	}
}
