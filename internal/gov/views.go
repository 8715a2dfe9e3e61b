package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// ProposalView is a detached copy of a ledger entry plus its current state,
// safe to hand to front-ends.
type ProposalView struct {
	Proposal
	State ProposalState
}

// Proposals pages through the append-only ledger. O(limit) and stable under
// concurrent appends: ids never move.
func (p *Pool) Proposals(offset, limit int) []ProposalView {
	p.mu.Lock()
	defer p.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(p.proposals) {
		return nil
	}
	end := offset + limit
	if end > len(p.proposals) {
		end = len(p.proposals)
	}

	return lo.Map(p.proposals[offset:end], func(proposal *Proposal, _ int) ProposalView {
		return ProposalView{Proposal: copyProposal(proposal), State: p.state(proposal)}
	})
}

func (p *Pool) GetProposal(proposalID uint64) (ProposalView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return ProposalView{}, false
	}
	return ProposalView{Proposal: copyProposal(proposal), State: p.state(proposal)}, true
}

// UserVotes returns the caller's own or delegated vote record for a proposal.
func (p *Pool) UserVotes(proposalID uint64, account common.Address, delegated bool) (VoteRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record := p.votes[voteKey{ProposalID: proposalID, Voter: account, Delegated: delegated}]
	if record == nil {
		return VoteRecord{}, false
	}
	return VoteRecord{
		Tokens:    new(big.Int).Set(record.Tokens),
		NftIDs:    append([]uint64(nil), record.NftIDs...),
		Weight:    new(big.Int).Set(record.Weight),
		Side:      record.Side,
		Delegated: record.Delegated,
	}, true
}

// WinningWeight is the account's total effective weight on the winning (for)
// side, own and delegated records combined. Distribution executors use it for
// pro-rata payouts.
func (p *Pool) WinningWeight(proposalID uint64, account common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()

	weight := new(big.Int)
	for _, delegated := range []bool{false, true} {
		record := p.votes[voteKey{ProposalID: proposalID, Voter: account, Delegated: delegated}]
		if record != nil && record.Side == VoteSideFor {
			weight.Add(weight, record.Weight)
		}
	}
	return weight
}

// QuorumReached reports whether member turnout currently meets the proposal's
// quorum against the live votable supply.
func (p *Pool) QuorumReached(proposalID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return false
	}
	turnout := new(big.Int).Add(proposal.VotesFor, proposal.VotesAgainst)
	return quorumReached(turnout, p.ledger.TotalVotableSupply(), proposal.Settings.Quorum)
}

func (p *Pool) WithdrawableAssets(account common.Address) (*big.Int, []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.WithdrawableAssets(account)
}

func (p *Pool) UndelegateableAssets(delegator, delegatee common.Address) (*big.Int, []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.UndelegateableAssets(delegator, delegatee)
}

func copyProposal(proposal *Proposal) Proposal {
	copied := *proposal
	copied.Settings = CopySettings(proposal.Settings)
	copied.VotesFor = new(big.Int).Set(proposal.VotesFor)
	copied.VotesAgainst = new(big.Int).Set(proposal.VotesAgainst)
	copied.Actions = make([]Action, len(proposal.Actions))
	for i, action := range proposal.Actions {
		copied.Actions[i] = Action{
			Target: action.Target,
			Value:  new(big.Int).Set(action.Value),
			Data:   append([]byte(nil), action.Data...),
		}
	}
	return copied
}
