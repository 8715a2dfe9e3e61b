package gov

import "math/big"

// State is a pure function of stored fields, the clock and, once escalated,
// the committee's terminal state. It never mutates anything.
func (p *Pool) State(proposalID uint64) ProposalState {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return StateUndefined
	}
	return p.state(proposal)
}

func (p *Pool) state(proposal *Proposal) ProposalState {
	if proposal.Executed {
		return StateExecuted
	}

	now := p.now()

	if proposal.Escalated {
		committee, ok := p.validators.ExternalState(proposal.ID)
		if !ok {
			return StateUndefined
		}
		switch committee {
		case CommitteeSucceeded:
			return StateSucceeded
		case CommitteeDefeated:
			return StateDefeated
		default:
			if now >= proposal.VoteEnd {
				return StateDefeated
			}
			return StateValidatorVoting
		}
	}

	turnout := new(big.Int).Add(proposal.VotesFor, proposal.VotesAgainst)
	// The quorum denominator is read live at every check: new deposits must
	// raise the bar for still-open proposals.
	if quorumReached(turnout, p.ledger.TotalVotableSupply(), proposal.Settings.Quorum) &&
		(proposal.Settings.EarlyCompletion || now >= proposal.VoteEnd) {
		if proposal.VotesFor.Cmp(proposal.VotesAgainst) > 0 {
			if proposal.Settings.ValidatorsVote {
				return StateWaitingForVotingTransfer
			}
			return StateSucceeded
		}
		return StateDefeated
	}

	if now < proposal.VoteEnd {
		return StateVoting
	}
	return StateDefeated
}

// quorumReached checks turnout/total >= quorum/PercentageFull in integer
// arithmetic.
func quorumReached(turnout, total, quorum *big.Int) bool {
	if total.Sign() == 0 {
		return false
	}
	lhs := new(big.Int).Mul(turnout, PercentageFull)
	rhs := new(big.Int).Mul(total, quorum)
	return lhs.Cmp(rhs) >= 0
}

// MoveProposalToValidators escalates a quorum-met proposal to the validator
// committee, forwarding an immutable snapshot and extending the member-facing
// deadline to the validator window. Allowed exactly once.
func (p *Pool) MoveProposalToValidators(proposalID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return ErrCantBeMoved
	}
	if p.state(proposal) != StateWaitingForVotingTransfer {
		return ErrCantBeMoved
	}

	err := p.validators.CreateExternalProposal(
		proposalID,
		new(big.Int).Set(proposal.Settings.QuorumValidators),
		proposal.Settings.DurationValidators,
	)
	if err != nil {
		return err
	}

	proposal.Escalated = true
	proposal.VoteEnd = p.now() + proposal.Settings.DurationValidators

	p.logger.Debugw("proposal moved to validators",
		"proposal", proposalID, "vote_end", proposal.VoteEnd)
	return nil
}
