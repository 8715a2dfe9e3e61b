package gov

import "github.com/ethereum/go-ethereum/common"

// UnlockInProposals clears the account's lock entries for finalized (or
// overdue) proposals, freeing the underlying assets for withdrawal or reuse.
// An id the account never voted on fails NoVoteForProposal; an id still open
// fails VoteUnavailable. The batch is all-or-nothing.
func (p *Pool) UnlockInProposals(proposalIDs []uint64, account common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(proposalIDs) == 0 {
		return ErrInvalidArrayLength
	}

	now := p.now()
	for _, proposalID := range proposalIDs {
		proposal := p.proposal(proposalID)
		if proposal == nil {
			return ErrNoVoteForProposal
		}
		own := p.votes[voteKey{ProposalID: proposalID, Voter: account, Delegated: false}]
		delegated := p.votes[voteKey{ProposalID: proposalID, Voter: account, Delegated: true}]
		if own == nil && delegated == nil {
			return ErrNoVoteForProposal
		}
		if state := p.state(proposal); !state.Finalized() && now < proposal.VoteEnd {
			return ErrVoteUnavailable
		}
	}

	for _, proposalID := range proposalIDs {
		if err := p.ledger.Unlock(account, proposalID); err != nil {
			return err
		}
		delete(p.votedIn[account], proposalID)
	}

	p.logger.Debugw("unlocked in proposals", "account", account.Hex(), "count", len(proposalIDs))
	return nil
}
