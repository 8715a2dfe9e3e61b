package validators

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"dao_governance_pool/internal/gov"
)

var (
	ErrNotValidator   = errors.New("not a validator")
	ErrAlreadyCreated = errors.New("external proposal already created")
	ErrNoBallot       = errors.New("no external proposal")
	ErrAlreadyVoted   = errors.New("validator already voted")
	ErrBallotClosed   = errors.New("ballot closed")
)

// ballot is the immutable snapshot the pool forwarded plus the committee's
// own tallies.
type ballot struct {
	quorum       *big.Int
	voteEnd      int64
	votesFor     *big.Int
	votesAgainst *big.Int
	voted        map[common.Address]struct{}
}

// Committee runs weighted ballots over a fixed, whitelisted validator set.
// Not a consensus protocol: one trust domain, one total order of calls.
type Committee struct {
	mu sync.Mutex

	weights     map[common.Address]*big.Int
	totalWeight *big.Int
	now         func() int64

	ballots map[uint64]*ballot
}

func New(weights map[common.Address]*big.Int, now func() int64) *Committee {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	committee := &Committee{
		weights:     make(map[common.Address]*big.Int, len(weights)),
		totalWeight: new(big.Int),
		now:         now,
		ballots:     map[uint64]*ballot{},
	}
	for validator, weight := range weights {
		committee.weights[validator] = new(big.Int).Set(weight)
		committee.totalWeight.Add(committee.totalWeight, weight)
	}
	return committee
}

// CreateExternalProposal opens a ballot for an escalated pool proposal.
// The quorum/duration snapshot is frozen here and never re-read.
func (c *Committee) CreateExternalProposal(id uint64, quorum *big.Int, duration int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ballots[id]; ok {
		return ErrAlreadyCreated
	}
	c.ballots[id] = &ballot{
		quorum:       new(big.Int).Set(quorum),
		voteEnd:      c.now() + duration,
		votesFor:     new(big.Int),
		votesAgainst: new(big.Int),
		voted:        map[common.Address]struct{}{},
	}
	return nil
}

// Vote casts a validator's full weight once per ballot.
func (c *Committee) Vote(validator common.Address, id uint64, side gov.VoteSide) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	weight, ok := c.weights[validator]
	if !ok {
		return ErrNotValidator
	}
	b, ok := c.ballots[id]
	if !ok {
		return ErrNoBallot
	}
	if c.state(b) != gov.CommitteeVoting {
		return ErrBallotClosed
	}
	if _, ok := b.voted[validator]; ok {
		return ErrAlreadyVoted
	}

	b.voted[validator] = struct{}{}
	if side == gov.VoteSideFor {
		b.votesFor.Add(b.votesFor, weight)
	} else {
		b.votesAgainst.Add(b.votesAgainst, weight)
	}
	return nil
}

func (c *Committee) ExternalState(id uint64) (gov.CommitteeState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.ballots[id]
	if !ok {
		return gov.CommitteeVoting, false
	}
	return c.state(b), true
}

func (c *Committee) state(b *ballot) gov.CommitteeState {
	turnout := new(big.Int).Add(b.votesFor, b.votesAgainst)
	lhs := new(big.Int).Mul(turnout, gov.PercentageFull)
	rhs := new(big.Int).Mul(c.totalWeight, b.quorum)

	if lhs.Cmp(rhs) >= 0 {
		if b.votesFor.Cmp(b.votesAgainst) > 0 {
			return gov.CommitteeSucceeded
		}
		return gov.CommitteeDefeated
	}
	if c.now() >= b.voteEnd {
		return gov.CommitteeDefeated
	}
	return gov.CommitteeVoting
}
