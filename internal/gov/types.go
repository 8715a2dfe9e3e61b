package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Fixed-point base used by reward coefficients and quorum fractions.
// PercentageFull is 100%, so a quorum of 71% is stored as 71 * Precision.
var (
	Precision      = new(big.Int).Exp(big.NewInt(10), big.NewInt(25), nil)
	PercentageFull = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)
)

// NativeToken is the sentinel reward-token address meaning the pool's
// native asset rather than a token contract.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

type VoteSide uint8

const (
	VoteSideFor VoteSide = iota
	VoteSideAgainst
)

func (s VoteSide) String() string {
	if s == VoteSideFor {
		return "for"
	}
	return "against"
}

type ProposalState uint8

const (
	StateUndefined ProposalState = iota
	StateVoting
	StateWaitingForVotingTransfer
	StateValidatorVoting
	StateDefeated
	StateSucceeded
	StateExecuted
)

func (s ProposalState) String() string {
	switch s {
	case StateVoting:
		return "voting"
	case StateWaitingForVotingTransfer:
		return "waiting for voting transfer"
	case StateValidatorVoting:
		return "validator voting"
	case StateDefeated:
		return "defeated"
	case StateSucceeded:
		return "succeeded"
	case StateExecuted:
		return "executed"
	default:
		return "undefined"
	}
}

// Finalized reports whether no further vote can change the outcome.
func (s ProposalState) Finalized() bool {
	return s == StateDefeated || s == StateSucceeded || s == StateExecuted
}

// Action is one external call bundled into a proposal. Data starts with a
// 4-byte selector when non-empty; an empty Data means a plain native transfer.
type Action struct {
	Target common.Address `json:"target"`
	Value  *big.Int       `json:"value"`
	Data   hexutil.Bytes  `json:"data"`
}

// Settings is one immutable parameter bundle from the settings registry.
// Proposals copy the bundle at creation time, so later registry edits never
// retroactively change an open vote.
type Settings struct {
	EarlyCompletion        bool
	DelegatedVotingAllowed bool
	ValidatorsVote         bool
	Duration               int64
	DurationValidators     int64
	Quorum                 *big.Int
	QuorumValidators       *big.Int
	MinVotesForVoting      *big.Int
	MinVotesForCreating    *big.Int
	RewardToken            common.Address
	CreationReward         *big.Int
	ExecutionReward        *big.Int
	VoteRewardsCoefficient *big.Int
	ExecutorDescription    string
}

// RewardsEnabled reports whether this bundle pays rewards at all.
func (s Settings) RewardsEnabled() bool {
	return s.RewardToken != (common.Address{})
}

// Proposal is one append-only ledger entry. Entries are never deleted:
// reward claims may arrive long after execution.
type Proposal struct {
	ID             uint64
	Creator        common.Address
	SettingsID     uint64
	Settings       Settings
	CreatedAt      int64
	VoteEnd        int64
	Escalated      bool
	Executed       bool
	VotesFor       *big.Int
	VotesAgainst   *big.Int
	Actions        []Action
	DescriptionURL string
	Misc           string
}

// VoteRecord is one voter's cumulative contribution to one proposal,
// kept separately for own and delegated power.
type VoteRecord struct {
	Tokens    *big.Int
	NftIDs    []uint64
	Weight    *big.Int
	Side      VoteSide
	Delegated bool
}

// RewardAccrual is the pending claimable amount for (proposal, account).
// Zeroed and flagged on claim, never resurrected.
type RewardAccrual struct {
	Token     common.Address
	Creation  *big.Int
	Execution *big.Int
	Voting    *big.Int
	Claimed   bool
}

// Total returns the amount a claim would pay right now.
func (a *RewardAccrual) Total() *big.Int {
	total := new(big.Int).Add(a.Creation, a.Execution)
	return total.Add(total, a.Voting)
}

type voteKey struct {
	ProposalID uint64
	Voter      common.Address
	Delegated  bool
}

type rewardKey struct {
	ProposalID uint64
	Account    common.Address
}
