package settings

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"dao_governance_pool/internal/gov"
)

var (
	ErrUnknownSettings = errors.New("unknown settings id")
)

// Registry stores immutable-per-id parameter bundles and maps trusted
// executor addresses to the bundle governing their proposals. Bundles are
// copied in and out, so a stored bundle never changes under an open vote.
type Registry struct {
	mu sync.Mutex

	bundles   map[uint64]gov.Settings
	executors map[common.Address]uint64
	nextID    uint64
}

const (
	defaultID  uint64 = 1
	internalID uint64 = 2
)

// New seeds the registry with the default bundle (id 1) governing untrusted
// targets and the internal bundle (id 2) governing internal-selector calls.
func New(defaultBundle, internalBundle gov.Settings) *Registry {
	return &Registry{
		bundles: map[uint64]gov.Settings{
			defaultID:  gov.CopySettings(defaultBundle),
			internalID: gov.CopySettings(internalBundle),
		},
		executors: map[common.Address]uint64{},
		nextID:    internalID + 1,
	}
}

// AddSettings registers a new immutable bundle and returns its id.
func (r *Registry) AddSettings(bundle gov.Settings) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.bundles[id] = gov.CopySettings(bundle)
	return id
}

func (r *Registry) SettingsOf(id uint64) (gov.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bundle, ok := r.bundles[id]
	if !ok {
		return gov.Settings{}, ErrUnknownSettings
	}
	return gov.CopySettings(bundle), nil
}

// SetExecutor marks a target as trusted, binding it to an existing bundle.
func (r *Registry) SetExecutor(target common.Address, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bundles[id]; !ok {
		return ErrUnknownSettings
	}
	r.executors[target] = id
	return nil
}

func (r *Registry) ExecutorSettings(target common.Address) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.executors[target]
	return id, ok
}

func (r *Registry) DefaultSettingsID() uint64  { return defaultID }
func (r *Registry) InternalSettingsID() uint64 { return internalID }

// SnapshotState copies the executor bindings so the pool can unwind an
// applied changeExecutors call when a later action of the same execution
// fails. Bundles are immutable per id and need no copy.
func (r *Registry) SnapshotState() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	executors := make(map[common.Address]uint64, len(r.executors))
	for target, id := range r.executors {
		executors[target] = id
	}
	return executors
}

func (r *Registry) RestoreState(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors = state.(map[common.Address]uint64)
}

// OnProposalCall lets executed proposals rebind trusted executors through
// the whitelisted changeExecutors(address,uint256) selector.
func (r *Registry) OnProposalCall(_ gov.CallContext, _ *big.Int, data []byte) error {
	sel, ok := gov.CallSelector(data)
	if !ok || sel != gov.SelectorChangeExecutors {
		return gov.ErrInvalidInternalData
	}
	executor, id, err := gov.UnpackChangeExecutors(data)
	if err != nil {
		return gov.ErrInvalidInternalData
	}
	if !id.IsUint64() {
		return gov.ErrInvalidInternalData
	}
	return r.SetExecutor(executor, id.Uint64())
}
