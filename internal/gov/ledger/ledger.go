package ledger

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientDeposit = errors.New("insufficient deposit")
	ErrAssetsLocked        = errors.New("assets locked in open proposals")
	ErrNftNotOwned         = errors.New("nft not owned")
	ErrNftAlreadyDeposited = errors.New("nft already deposited")
	ErrNotDelegated        = errors.New("assets not delegated")
)

type lockKey struct {
	Account    common.Address
	ProposalID uint64
}

// lockEntry remembers the raw assets an account committed to one proposal,
// split by own and delegated spend. An entry existing at all means the
// proposal is still open: the pool unlocks on finalization.
type lockEntry struct {
	OwnTokens       *big.Int
	DelegatedTokens *big.Int
	OwnNfts         map[uint64]struct{}
	DelegatedNfts   map[uint64]struct{}
}

// Ledger is the asset-custody collaborator: deposits, NFT ownership,
// delegation and per-proposal lock entries. The same tokens may back many
// open proposals, so the withdrawable amount subtracts the maximum locked
// amount, not the sum; NFT availability subtracts the union of locked sets.
type Ledger struct {
	mu sync.Mutex

	nftUnitPower *big.Int

	balances map[common.Address]*big.Int
	nftsOf   map[common.Address]map[uint64]struct{}
	nftCount int

	delegated     map[common.Address]map[common.Address]*big.Int
	delegatedNfts map[common.Address]map[common.Address]map[uint64]struct{}

	totalTokens *big.Int

	locks map[lockKey]*lockEntry
}

// New creates a ledger where every deposited NFT carries nftUnitPower raw
// voting power.
func New(nftUnitPower *big.Int) *Ledger {
	return &Ledger{
		nftUnitPower:  new(big.Int).Set(nftUnitPower),
		balances:      map[common.Address]*big.Int{},
		nftsOf:        map[common.Address]map[uint64]struct{}{},
		delegated:     map[common.Address]map[common.Address]*big.Int{},
		delegatedNfts: map[common.Address]map[common.Address]map[uint64]struct{}{},
		totalTokens:   new(big.Int),
		locks:         map[lockKey]*lockEntry{},
	}
}

func (l *Ledger) Deposit(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance(account).Add(l.balance(account), amount)
	l.totalTokens.Add(l.totalTokens, amount)
}

func (l *Ledger) DepositNfts(account common.Address, nftIDs ...uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	owned := l.nfts(account)
	for _, nft := range nftIDs {
		if l.ownerOf(nft) != nil {
			return ErrNftAlreadyDeposited
		}
	}
	for _, nft := range nftIDs {
		owned[nft] = struct{}{}
		l.nftCount++
	}
	return nil
}

// Withdraw moves tokens out of the ledger. Tokens locked for any open
// proposal cannot leave, even if other proposals already released them.
func (l *Ledger) Withdraw(account common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(account)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientDeposit
	}
	free := new(big.Int).Sub(balance, l.maxOwnLocked(account))
	if free.Cmp(amount) < 0 {
		return ErrAssetsLocked
	}

	balance.Sub(balance, amount)
	l.totalTokens.Sub(l.totalTokens, amount)
	return nil
}

func (l *Ledger) WithdrawNfts(account common.Address, nftIDs ...uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	owned := l.nfts(account)
	locked := l.lockedOwnNfts(account)
	for _, nft := range nftIDs {
		if _, ok := owned[nft]; !ok {
			return ErrNftNotOwned
		}
		if _, ok := locked[nft]; ok {
			return ErrAssetsLocked
		}
	}
	for _, nft := range nftIDs {
		delete(owned, nft)
		l.nftCount--
	}
	return nil
}

// Delegate moves part of the delegator's free assets into a delegatee's
// delegated pool. Locked assets cannot be redelegated.
func (l *Ledger) Delegate(from, to common.Address, amount *big.Int, nftIDs ...uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientDeposit
	}
	free := new(big.Int).Sub(balance, l.maxOwnLocked(from))
	if free.Cmp(amount) < 0 {
		return ErrAssetsLocked
	}

	owned := l.nfts(from)
	lockedNfts := l.lockedOwnNfts(from)
	for _, nft := range nftIDs {
		if _, ok := owned[nft]; !ok {
			return ErrNftNotOwned
		}
		if _, ok := lockedNfts[nft]; ok {
			return ErrAssetsLocked
		}
	}

	balance.Sub(balance, amount)
	l.delegation(from, to).Add(l.delegation(from, to), amount)

	delegatedSet := l.delegationNfts(from, to)
	for _, nft := range nftIDs {
		delete(owned, nft)
		delegatedSet[nft] = struct{}{}
	}
	return nil
}

// Undelegate returns delegated assets to the delegator, refusing anything
// the delegatee still has pinned under an open-proposal lock.
func (l *Ledger) Undelegate(from, to common.Address, amount *big.Int, nftIDs ...uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delegation := l.delegation(from, to)
	if delegation.Cmp(amount) < 0 {
		return ErrNotDelegated
	}
	pool := l.delegatedPool(to)
	free := new(big.Int).Sub(pool, l.maxDelegatedLocked(to))
	if free.Cmp(amount) < 0 {
		return ErrAssetsLocked
	}

	delegatedSet := l.delegationNfts(from, to)
	lockedNfts := l.lockedDelegatedNfts(to)
	for _, nft := range nftIDs {
		if _, ok := delegatedSet[nft]; !ok {
			return ErrNotDelegated
		}
		if _, ok := lockedNfts[nft]; ok {
			return ErrAssetsLocked
		}
	}

	delegation.Sub(delegation, amount)
	l.balance(from).Add(l.balance(from), amount)

	owned := l.nfts(from)
	for _, nft := range nftIDs {
		delete(delegatedSet, nft)
		owned[nft] = struct{}{}
	}
	return nil
}

// Lock records the cumulative commitment of (account, proposal) for one
// spend mode. Called by the pool with running totals.
func (l *Ledger) Lock(account common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, delegated bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if delegated {
		if l.delegatedPool(account).Cmp(tokens) < 0 {
			return ErrInsufficientDeposit
		}
	} else if l.balance(account).Cmp(tokens) < 0 {
		return ErrInsufficientDeposit
	}

	key := lockKey{Account: account, ProposalID: proposalID}
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{
			OwnTokens:       new(big.Int),
			DelegatedTokens: new(big.Int),
			OwnNfts:         map[uint64]struct{}{},
			DelegatedNfts:   map[uint64]struct{}{},
		}
		l.locks[key] = entry
	}

	nftSet := entry.OwnNfts
	if delegated {
		entry.DelegatedTokens.Set(tokens)
		nftSet = entry.DelegatedNfts
	} else {
		entry.OwnTokens.Set(tokens)
	}
	for _, nft := range nftIDs {
		nftSet[nft] = struct{}{}
	}
	return nil
}

// Unlock drops the entry for (account, proposal). Idempotent; never touches
// entries of other proposals.
func (l *Ledger) Unlock(account common.Address, proposalID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, lockKey{Account: account, ProposalID: proposalID})
	return nil
}

func (l *Ledger) VotingPowerOf(account common.Address, delegated bool) (*big.Int, []uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if delegated {
		pool := l.delegatedPool(account)
		nfts := map[uint64]struct{}{}
		for _, byDelegatee := range l.delegatedNfts {
			for nft := range byDelegatee[account] {
				nfts[nft] = struct{}{}
			}
		}
		return pool, sortedNfts(nfts)
	}
	return new(big.Int).Set(l.balance(account)), sortedNfts(l.nfts(account))
}

func (l *Ledger) NftRawPower(nftIDs []uint64) *big.Int {
	return new(big.Int).Mul(l.nftUnitPower, big.NewInt(int64(len(nftIDs))))
}

// TotalVotableSupply is every deposited token (own and delegated) plus the
// raw power of every deposited NFT. Read live, never cached by callers.
func (l *Ledger) TotalVotableSupply() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	nftPower := new(big.Int).Mul(l.nftUnitPower, big.NewInt(int64(l.nftCount)))
	return nftPower.Add(nftPower, l.totalTokens)
}

func (l *Ledger) WithdrawableAssets(account common.Address) (*big.Int, []uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	free := new(big.Int).Sub(l.balance(account), l.maxOwnLocked(account))
	locked := l.lockedOwnNfts(account)
	available := map[uint64]struct{}{}
	for nft := range l.nfts(account) {
		if _, ok := locked[nft]; !ok {
			available[nft] = struct{}{}
		}
	}
	return free, sortedNfts(available)
}

func (l *Ledger) UndelegateableAssets(delegator, delegatee common.Address) (*big.Int, []uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool := l.delegatedPool(delegatee)
	free := new(big.Int).Sub(pool, l.maxDelegatedLocked(delegatee))
	delegation := l.delegation(delegator, delegatee)
	if free.Cmp(delegation) > 0 {
		free = new(big.Int).Set(delegation)
	}

	locked := l.lockedDelegatedNfts(delegatee)
	available := map[uint64]struct{}{}
	for nft := range l.delegationNfts(delegator, delegatee) {
		if _, ok := locked[nft]; !ok {
			available[nft] = struct{}{}
		}
	}
	return free, sortedNfts(available)
}

func (l *Ledger) balance(account common.Address) *big.Int {
	balance, ok := l.balances[account]
	if !ok {
		balance = new(big.Int)
		l.balances[account] = balance
	}
	return balance
}

func (l *Ledger) nfts(account common.Address) map[uint64]struct{} {
	owned, ok := l.nftsOf[account]
	if !ok {
		owned = map[uint64]struct{}{}
		l.nftsOf[account] = owned
	}
	return owned
}

func (l *Ledger) ownerOf(nft uint64) *common.Address {
	for account, owned := range l.nftsOf {
		if _, ok := owned[nft]; ok {
			account := account
			return &account
		}
	}
	for delegator, byDelegatee := range l.delegatedNfts {
		for _, set := range byDelegatee {
			if _, ok := set[nft]; ok {
				delegator := delegator
				return &delegator
			}
		}
	}
	return nil
}

func (l *Ledger) delegation(from, to common.Address) *big.Int {
	byDelegatee, ok := l.delegated[from]
	if !ok {
		byDelegatee = map[common.Address]*big.Int{}
		l.delegated[from] = byDelegatee
	}
	amount, ok := byDelegatee[to]
	if !ok {
		amount = new(big.Int)
		byDelegatee[to] = amount
	}
	return amount
}

func (l *Ledger) delegationNfts(from, to common.Address) map[uint64]struct{} {
	byDelegatee, ok := l.delegatedNfts[from]
	if !ok {
		byDelegatee = map[common.Address]map[uint64]struct{}{}
		l.delegatedNfts[from] = byDelegatee
	}
	set, ok := byDelegatee[to]
	if !ok {
		set = map[uint64]struct{}{}
		byDelegatee[to] = set
	}
	return set
}

func (l *Ledger) delegatedPool(to common.Address) *big.Int {
	pool := new(big.Int)
	for _, byDelegatee := range l.delegated {
		if amount, ok := byDelegatee[to]; ok {
			pool.Add(pool, amount)
		}
	}
	return pool
}

func (l *Ledger) maxOwnLocked(account common.Address) *big.Int {
	max := new(big.Int)
	for key, entry := range l.locks {
		if key.Account == account && entry.OwnTokens.Cmp(max) > 0 {
			max = entry.OwnTokens
		}
	}
	return new(big.Int).Set(max)
}

func (l *Ledger) maxDelegatedLocked(account common.Address) *big.Int {
	max := new(big.Int)
	for key, entry := range l.locks {
		if key.Account == account && entry.DelegatedTokens.Cmp(max) > 0 {
			max = entry.DelegatedTokens
		}
	}
	return new(big.Int).Set(max)
}

func (l *Ledger) lockedOwnNfts(account common.Address) map[uint64]struct{} {
	union := map[uint64]struct{}{}
	for key, entry := range l.locks {
		if key.Account != account {
			continue
		}
		for nft := range entry.OwnNfts {
			union[nft] = struct{}{}
		}
	}
	return union
}

func (l *Ledger) lockedDelegatedNfts(account common.Address) map[uint64]struct{} {
	union := map[uint64]struct{}{}
	for key, entry := range l.locks {
		if key.Account != account {
			continue
		}
		for nft := range entry.DelegatedNfts {
			union[nft] = struct{}{}
		}
	}
	return union
}

func sortedNfts(set map[uint64]struct{}) []uint64 {
	nfts := make([]uint64, 0, len(set))
	for nft := range set {
		nfts = append(nfts, nft)
	}
	sort.Slice(nfts, func(i, j int) bool { return nfts[i] < nfts[j] })
	return nfts
}
