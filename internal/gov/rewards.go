package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimRewards pays out the caller's pending accruals for the given executed
// proposals. The whole batch is validated before anything is paid; a second
// claim for an already-paid proposal pays zero without error. Proposals with
// rewards disabled always fail RewardsOff.
func (p *Pool) ClaimRewards(account common.Address, proposalIDs []uint64) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(proposalIDs) == 0 {
		return nil, ErrInvalidArrayLength
	}

	type payment struct {
		accrual *RewardAccrual
		amount  *big.Int
	}

	var payments []payment
	needed := map[common.Address]*big.Int{}
	seen := map[uint64]struct{}{}

	for _, proposalID := range proposalIDs {
		proposal := p.proposal(proposalID)
		if proposal == nil {
			return nil, ErrProposalNotExecuted
		}
		if !proposal.Settings.RewardsEnabled() {
			return nil, ErrRewardsOff
		}
		if !proposal.Executed {
			return nil, ErrProposalNotExecuted
		}
		if _, dup := seen[proposalID]; dup {
			continue
		}
		seen[proposalID] = struct{}{}

		accrual := p.rewards[rewardKey{ProposalID: proposalID, Account: account}]
		if accrual == nil || accrual.Claimed {
			continue
		}
		amount := accrual.Total()
		if amount.Sign() == 0 {
			continue
		}

		payments = append(payments, payment{accrual: accrual, amount: amount})
		total, ok := needed[accrual.Token]
		if !ok {
			total = new(big.Int)
			needed[accrual.Token] = total
		}
		total.Add(total, amount)
	}

	// One live balance check per token for the whole batch, then apply.
	// Short treasury fails the call and leaves every accrual claimable.
	for token, amount := range needed {
		if p.treasury.BalanceOf(token).Cmp(amount) < 0 {
			if token == NativeToken {
				return nil, ErrFailedToSendEth
			}
			return nil, ErrInsufficientBalance
		}
	}

	paid := new(big.Int)
	for _, pay := range payments {
		if err := p.treasury.Send(pay.accrual.Token, account, pay.amount); err != nil {
			// Balance was checked above; a send failure here is a bug.
			panic(err)
		}
		pay.accrual.Creation.SetInt64(0)
		pay.accrual.Execution.SetInt64(0)
		pay.accrual.Voting.SetInt64(0)
		pay.accrual.Claimed = true
		paid.Add(paid, pay.amount)
	}

	if paid.Sign() > 0 {
		p.logger.Debugw("rewards claimed", "account", account.Hex(), "paid", paid.String())
	}
	return paid, nil
}

// PendingRewards reports the unclaimed accrual for (proposal, account).
func (p *Pool) PendingRewards(proposalID uint64, account common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()

	accrual := p.rewards[rewardKey{ProposalID: proposalID, Account: account}]
	if accrual == nil || accrual.Claimed {
		return new(big.Int)
	}
	return accrual.Total()
}
