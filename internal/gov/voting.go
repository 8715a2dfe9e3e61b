package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Vote commits the caller's own tokens/NFTs to a proposal side. Re-voting on
// the same side is cumulative; the effective weight is recomputed over the
// running raw total so non-linear curves stay exact.
func (p *Pool) Vote(voter common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, side VoteSide) error {
	return p.vote(voter, proposalID, tokens, nftIDs, side, false)
}

// VoteDelegated spends power delegated to the caller. Requires the settings
// snapshot to allow delegated voting.
func (p *Pool) VoteDelegated(voter common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, side VoteSide) error {
	return p.vote(voter, proposalID, tokens, nftIDs, side, true)
}

func (p *Pool) vote(voter common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, side VoteSide, delegated bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return ErrVoteUnavailable
	}
	if p.state(proposal) != StateVoting {
		return ErrVoteUnavailable
	}

	if tokens == nil {
		tokens = new(big.Int)
	}
	if tokens.Sign() < 0 {
		return ErrWrongVoteAmount
	}
	if tokens.Sign() == 0 && len(nftIDs) == 0 {
		return ErrEmptyVote
	}
	if delegated && !proposal.Settings.DelegatedVotingAllowed {
		return ErrDelegatedVotingOff
	}

	key := voteKey{ProposalID: proposalID, Voter: voter, Delegated: delegated}
	existing := p.votes[key]
	counterpart := p.votes[voteKey{ProposalID: proposalID, Voter: voter, Delegated: !delegated}]

	// One side per voter per proposal: cancel first to change sides.
	if existing != nil && existing.Side != side {
		return ErrVoteSideMismatch
	}
	if counterpart != nil && counterpart.Side != side {
		return ErrVoteSideMismatch
	}

	if existing == nil && counterpart == nil && len(p.votedIn[voter]) >= p.voteLimit {
		return ErrVoteLimitReached
	}

	availableTokens, availableNfts := p.ledger.VotingPowerOf(voter, delegated)
	if availableTokens.Sign() == 0 && len(availableNfts) == 0 {
		return ErrLowVotingPower
	}

	prevTokens := new(big.Int)
	var prevNfts []uint64
	oldWeight := new(big.Int)
	if existing != nil {
		prevTokens = existing.Tokens
		prevNfts = existing.NftIDs
		oldWeight = existing.Weight
	}

	totalTokens := new(big.Int).Add(prevTokens, tokens)
	if totalTokens.Cmp(availableTokens) > 0 {
		return ErrWrongVoteAmount
	}

	votedSet, ok := p.nftVoted[proposalID]
	if !ok {
		votedSet = map[uint64]struct{}{}
		p.nftVoted[proposalID] = votedSet
	}
	availableSet := make(map[uint64]struct{}, len(availableNfts))
	for _, nft := range availableNfts {
		availableSet[nft] = struct{}{}
	}
	seen := make(map[uint64]struct{}, len(nftIDs))
	for _, nft := range nftIDs {
		if _, used := votedSet[nft]; used {
			return ErrNFTAlreadyVoted
		}
		if _, dup := seen[nft]; dup {
			return ErrNFTAlreadyVoted
		}
		seen[nft] = struct{}{}
		if _, owned := availableSet[nft]; !owned {
			return ErrWrongVoteAmount
		}
	}

	totalNfts := make([]uint64, 0, len(prevNfts)+len(nftIDs))
	totalNfts = append(totalNfts, prevNfts...)
	totalNfts = append(totalNfts, nftIDs...)

	raw := new(big.Int).Add(totalTokens, p.ledger.NftRawPower(totalNfts))
	newWeight := p.curve.Transform(voter, raw)
	if newWeight.Cmp(proposal.Settings.MinVotesForVoting) < 0 {
		return ErrLowVotingPower
	}

	// Everything validated; lock then mutate tallies. Nothing below can fail.
	if err := p.ledger.Lock(voter, proposalID, totalTokens, totalNfts, delegated); err != nil {
		return err
	}

	for _, nft := range nftIDs {
		votedSet[nft] = struct{}{}
	}

	if existing == nil {
		existing = &VoteRecord{Side: side, Delegated: delegated}
		p.votes[key] = existing
	}
	existing.Tokens = totalTokens
	existing.NftIDs = totalNfts
	existing.Weight = newWeight

	delta := new(big.Int).Sub(newWeight, oldWeight)
	if side == VoteSideFor {
		proposal.VotesFor.Add(proposal.VotesFor, delta)
	} else {
		proposal.VotesAgainst.Add(proposal.VotesAgainst, delta)
	}

	open, ok := p.votedIn[voter]
	if !ok {
		open = map[uint64]struct{}{}
		p.votedIn[voter] = open
	}
	open[proposalID] = struct{}{}

	p.logger.Debugw("vote cast",
		"proposal", proposalID, "voter", voter.Hex(), "side", side.String(),
		"delegated", delegated, "weight", newWeight.String())

	return nil
}

// CancelVote symmetrically removes the caller's contribution to an open
// proposal and releases the lock. This is the only path that decrements
// tallies.
func (p *Pool) CancelVote(voter common.Address, proposalID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	proposal := p.proposal(proposalID)
	if proposal == nil {
		return ErrNoVoteForProposal
	}

	ownKey := voteKey{ProposalID: proposalID, Voter: voter, Delegated: false}
	delegatedKey := voteKey{ProposalID: proposalID, Voter: voter, Delegated: true}
	own := p.votes[ownKey]
	delegatedRecord := p.votes[delegatedKey]
	if own == nil && delegatedRecord == nil {
		return ErrNoVoteForProposal
	}

	if p.state(proposal) != StateVoting {
		return ErrVoteUnavailable
	}

	if err := p.ledger.Unlock(voter, proposalID); err != nil {
		return err
	}

	votedSet := p.nftVoted[proposalID]
	for key, record := range map[voteKey]*VoteRecord{ownKey: own, delegatedKey: delegatedRecord} {
		if record == nil {
			continue
		}
		if record.Side == VoteSideFor {
			proposal.VotesFor.Sub(proposal.VotesFor, record.Weight)
		} else {
			proposal.VotesAgainst.Sub(proposal.VotesAgainst, record.Weight)
		}
		for _, nft := range record.NftIDs {
			delete(votedSet, nft)
		}
		delete(p.votes, key)
	}
	delete(p.votedIn[voter], proposalID)

	p.logger.Debugw("vote cancelled", "proposal", proposalID, "voter", voter.Hex())
	return nil
}
