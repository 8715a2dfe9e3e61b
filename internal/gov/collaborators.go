package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetLedger is the custody collaborator: deposits, delegation and the lock
// entries that keep assets committed to open votes from moving.
type AssetLedger interface {
	// Lock records the cumulative raw assets account has committed to
	// proposalID. Called with running totals, never deltas.
	Lock(account common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, delegated bool) error
	// Unlock drops the lock entry for (account, proposalID). Idempotent.
	Unlock(account common.Address, proposalID uint64) error
	// VotingPowerOf returns the raw assets account may spend: its own
	// deposits, or the aggregate delegated to it.
	VotingPowerOf(account common.Address, delegated bool) (tokens *big.Int, nftIDs []uint64)
	// NftRawPower converts an NFT set to its raw token-equivalent power.
	NftRawPower(nftIDs []uint64) *big.Int
	// TotalVotableSupply is the live quorum denominator, read at call time.
	TotalVotableSupply() *big.Int
	// WithdrawableAssets is what the account could move right now given its
	// outstanding lock entries across all open proposals.
	WithdrawableAssets(account common.Address) (tokens *big.Int, nftIDs []uint64)
	// UndelegateableAssets is the (delegator -> delegatee) portion not pinned
	// by the delegatee's outstanding lock entries.
	UndelegateableAssets(delegator, delegatee common.Address) (tokens *big.Int, nftIDs []uint64)
}

// PowerCurve maps raw vote amounts to effective weight. Implementations must
// be pure, deterministic and monotonic in the raw amount.
type PowerCurve interface {
	Transform(account common.Address, raw *big.Int) *big.Int
}

type CommitteeState uint8

const (
	CommitteeVoting CommitteeState = iota
	CommitteeSucceeded
	CommitteeDefeated
)

// ValidatorCommittee runs the optional second voting stage over a fixed
// validator list. The pool only ever forwards an immutable snapshot and reads
// back a terminal state.
type ValidatorCommittee interface {
	CreateExternalProposal(id uint64, quorum *big.Int, duration int64) error
	ExternalState(id uint64) (CommitteeState, bool)
}

// SettingsRegistry stores immutable-per-id parameter bundles and the trusted
// executor mapping consumed during proposal creation.
type SettingsRegistry interface {
	SettingsOf(id uint64) (Settings, error)
	// ExecutorSettings resolves a trusted executor's registered settings id.
	ExecutorSettings(target common.Address) (uint64, bool)
	DefaultSettingsID() uint64
	InternalSettingsID() uint64
}

// CallContext identifies the execution a handler is being invoked from.
// Handlers run inside the executing call and must not re-enter the pool; the
// snapshots they need are carried here instead.
type CallContext struct {
	ProposalID uint64
	// Executor is the account that called Execute, not the pool itself.
	Executor common.Address
	// VotesFor is the winning-side tally at execution time.
	VotesFor *big.Int
}

// CallHandler receives proposal actions routed by target address during
// execution. Handlers must mutate their own state only after all of their
// validation passed; the pool reverts its treasury and every StateReverter
// handler on any action error and treats re-entry into the pool as hostile.
type CallHandler interface {
	OnProposalCall(ctx CallContext, value *big.Int, data []byte) error
}

// StateReverter is implemented by handlers whose applied calls must be
// unwound when a later action of the same execution fails. The pool snapshots
// each such handler before its first call and restores every snapshot on any
// action failure, so a partially executed proposal leaves no effects behind.
type StateReverter interface {
	SnapshotState() any
	RestoreState(state any)
}

// NftMultiplier boosts the coefficient term of vote rewards for accounts
// holding a locked multiplier NFT.
type NftMultiplier interface {
	ExtraReward(account common.Address, base *big.Int) *big.Int
}
