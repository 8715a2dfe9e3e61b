package dist

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"dao_governance_pool/internal/gov"
)

var (
	ErrNoDistribution = errors.New("no distribution for proposal")
	ErrAlreadyFunded  = errors.New("distribution already funded")
)

// VoteSource reads finalized vote data back out of the pool. Claims run
// outside execution, so calling the pool here is safe.
type VoteSource interface {
	WinningWeight(proposalID uint64, account common.Address) *big.Int
}

// distribution is one funded payout pot with its winning-weight snapshot.
type distribution struct {
	token       common.Address
	amount      *big.Int
	totalWeight *big.Int
	claimed     map[common.Address]struct{}
}

// Executor is the distribution-proposal target: an executed proposal funds a
// pot, and winning-side voters later claim shares exactly proportional to
// their recorded effective weight.
type Executor struct {
	mu sync.Mutex

	address  common.Address
	treasury *gov.Treasury
	votes    VoteSource

	pots          map[common.Address]*big.Int
	paid          map[common.Address]map[common.Address]*big.Int
	distributions map[uint64]*distribution
}

func New(address common.Address, treasury *gov.Treasury, votes VoteSource) *Executor {
	return &Executor{
		address:       address,
		treasury:      treasury,
		votes:         votes,
		pots:          map[common.Address]*big.Int{},
		paid:          map[common.Address]map[common.Address]*big.Int{},
		distributions: map[uint64]*distribution{},
	}
}

// OnProposalCall funds the distribution during pool execution. The embedded
// proposal id was already matched at creation; it is re-checked against the
// executing context here. Token funding is pulled from the pool treasury, so
// a short treasury reverts the whole execution.
func (e *Executor) OnProposalCall(ctx gov.CallContext, value *big.Int, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	embeddedID, token, amount, err := gov.UnpackDistributionExecute(data)
	if err != nil {
		return gov.ErrInvalidInternalData
	}
	if !embeddedID.IsUint64() || embeddedID.Uint64() != ctx.ProposalID {
		return gov.ErrInvalidProposalID
	}
	if _, ok := e.distributions[ctx.ProposalID]; ok {
		return ErrAlreadyFunded
	}

	if token == gov.NativeToken {
		// The pool already transferred the native value to this executor.
		amount = new(big.Int).Set(value)
	} else if err := e.treasury.Send(token, e.address, amount); err != nil {
		return err
	}

	pot, ok := e.pots[token]
	if !ok {
		pot = new(big.Int)
		e.pots[token] = pot
	}
	pot.Add(pot, amount)

	e.distributions[ctx.ProposalID] = &distribution{
		token:       token,
		amount:      new(big.Int).Set(amount),
		totalWeight: new(big.Int).Set(ctx.VotesFor),
		claimed:     map[common.Address]struct{}{},
	}
	return nil
}

// Claim pays the account's pro-rata share for each executed distribution:
// amount x weight / totalWeight, fixed-point exact. A repeated claim pays
// zero and does not error.
func (e *Executor) Claim(account common.Address, proposalIDs []uint64) (*big.Int, error) {
	if len(proposalIDs) == 0 {
		return nil, gov.ErrInvalidArrayLength
	}

	// Weights are queried from the pool without holding the executor mutex:
	// the pool may be executing another distribution into us concurrently.
	seen := map[uint64]struct{}{}
	weights := make(map[uint64]*big.Int, len(proposalIDs))
	for _, proposalID := range proposalIDs {
		if _, dup := seen[proposalID]; dup {
			continue
		}
		seen[proposalID] = struct{}{}
		weights[proposalID] = e.votes.WinningWeight(proposalID, account)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Validate the whole batch before moving anything, so a failing id never
	// leaves a partial payout behind.
	type payout struct {
		d     *distribution
		share *big.Int
	}
	var payouts []payout
	needed := map[common.Address]*big.Int{}

	for proposalID, weight := range weights {
		d, ok := e.distributions[proposalID]
		if !ok {
			return nil, ErrNoDistribution
		}
		if _, ok := d.claimed[account]; ok {
			continue
		}
		if d.totalWeight.Sign() == 0 || weight.Sign() == 0 {
			continue
		}

		share := new(big.Int).Mul(d.amount, weight)
		share.Div(share, d.totalWeight)
		if share.Sign() == 0 {
			continue
		}

		payouts = append(payouts, payout{d: d, share: share})
		want, ok := needed[d.token]
		if !ok {
			want = new(big.Int)
			needed[d.token] = want
		}
		want.Add(want, share)
	}

	for token, want := range needed {
		pot := e.pots[token]
		if pot == nil || pot.Cmp(want) < 0 {
			if token == gov.NativeToken {
				return nil, gov.ErrFailedToSendEth
			}
			return nil, gov.ErrInsufficientBalance
		}
	}

	total := new(big.Int)
	for _, pay := range payouts {
		e.pots[pay.d.token].Sub(e.pots[pay.d.token], pay.share)

		byToken, ok := e.paid[account]
		if !ok {
			byToken = map[common.Address]*big.Int{}
			e.paid[account] = byToken
		}
		got, ok := byToken[pay.d.token]
		if !ok {
			got = new(big.Int)
			byToken[pay.d.token] = got
		}
		got.Add(got, pay.share)

		pay.d.claimed[account] = struct{}{}
		total.Add(total, pay.share)
	}
	return total, nil
}

// PotOf reports the unclaimed remainder held for a token, including division
// residue stranded by truncated shares.
func (e *Executor) PotOf(token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pot, ok := e.pots[token]; ok {
		return new(big.Int).Set(pot)
	}
	return new(big.Int)
}

// PaidTo reports the cumulative amount of token claimed by an account.
func (e *Executor) PaidTo(account, token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if byToken, ok := e.paid[account]; ok {
		if got, ok := byToken[token]; ok {
			return new(big.Int).Set(got)
		}
	}
	return new(big.Int)
}
