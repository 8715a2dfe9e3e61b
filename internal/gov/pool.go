package gov

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const defaultVoteLimit = 20

// Pool is the governance engine: proposal lifecycle, weighted vote tallying,
// asset locking, validator escalation, atomic execution and reward
// settlement. Every public call is strictly serialized; given the same call
// order and clock, outcomes are deterministic.
//
// Collaborators are injected by handle at construction time, never resolved
// from ambient state, so the pool, committee and registry may reference each
// other without ownership cycles.
type Pool struct {
	mu sync.Mutex

	self       common.Address
	ledger     AssetLedger
	curve      PowerCurve
	validators ValidatorCommittee
	registry   SettingsRegistry
	treasury   *Treasury
	logger     *zap.SugaredLogger
	now        func() int64

	internalSelectors map[common.Address]map[[4]byte]struct{}
	handlers          map[common.Address]CallHandler
	distribution      map[common.Address]struct{}
	multipliers       map[common.Address]NftMultiplier

	nftMultiplier NftMultiplier
	voteLimit     int

	descriptionURL string

	// proposals is append-only and index-addressed: id == index + 1.
	proposals []*Proposal
	votes     map[voteKey]*VoteRecord
	votedIn   map[common.Address]map[uint64]struct{}
	nftVoted  map[uint64]map[uint64]struct{}
	rewards   map[rewardKey]*RewardAccrual
}

type Config struct {
	SelfAddress    common.Address
	Ledger         AssetLedger
	Curve          PowerCurve
	Validators     ValidatorCommittee
	Registry       SettingsRegistry
	Treasury       *Treasury
	Logger         *zap.SugaredLogger
	Now            func() int64
	VoteLimit      int
	DescriptionURL string
}

func NewPool(config Config) *Pool {
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	if config.Now == nil {
		config.Now = func() int64 { return time.Now().Unix() }
	}
	if config.VoteLimit <= 0 {
		config.VoteLimit = defaultVoteLimit
	}
	if config.Treasury == nil {
		config.Treasury = NewTreasury()
	}

	pool := &Pool{
		self:              config.SelfAddress,
		ledger:            config.Ledger,
		curve:             config.Curve,
		validators:        config.Validators,
		registry:          config.Registry,
		treasury:          config.Treasury,
		logger:            config.Logger,
		now:               config.Now,
		voteLimit:         config.VoteLimit,
		descriptionURL:    config.DescriptionURL,
		internalSelectors: map[common.Address]map[[4]byte]struct{}{},
		handlers:          map[common.Address]CallHandler{},
		distribution:      map[common.Address]struct{}{},
		multipliers:       map[common.Address]NftMultiplier{},
		votes:             map[voteKey]*VoteRecord{},
		votedIn:           map[common.Address]map[uint64]struct{}{},
		nftVoted:          map[uint64]map[uint64]struct{}{},
		rewards:           map[rewardKey]*RewardAccrual{},
	}

	pool.RegisterInternalTarget(config.SelfAddress, selfHandler{pool},
		SelectorEditDescriptionURL, SelectorSetNftMultiplier, SelectorChangeVoteLimit)

	return pool
}

// RegisterInternalTarget whitelists selectors callable on an internal
// component (the registry, the ledger, the pool itself). Any other call to
// an internal target fails proposal validation.
func (p *Pool) RegisterInternalTarget(target common.Address, handler CallHandler, selectors ...[4]byte) {
	allowed, ok := p.internalSelectors[target]
	if !ok {
		allowed = map[[4]byte]struct{}{}
		p.internalSelectors[target] = allowed
	}
	for _, sel := range selectors {
		allowed[sel] = struct{}{}
	}
	p.handlers[target] = handler
}

// RegisterHandler routes execution-time calls for an external executor.
func (p *Pool) RegisterHandler(target common.Address, handler CallHandler) {
	p.handlers[target] = handler
}

// RegisterDistributionExecutor marks a target as a distribution-proposal
// executor, which gets the embedded-id and native-value checks at creation.
func (p *Pool) RegisterDistributionExecutor(target common.Address, handler CallHandler) {
	p.distribution[target] = struct{}{}
	p.handlers[target] = handler
}

// RegisterNftMultiplier makes a multiplier selectable via a
// setNftMultiplier(address) self-call.
func (p *Pool) RegisterNftMultiplier(address common.Address, multiplier NftMultiplier) {
	p.multipliers[address] = multiplier
}

func (p *Pool) Treasury() *Treasury {
	return p.treasury
}

// CreateProposal validates the action bundle, resolves its settings snapshot
// and appends a new proposal. Only the creation reward accrual moves at this
// point, no assets.
func (p *Pool) CreateProposal(creator common.Address, descriptionURL, misc string, actions []Action) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(actions) == 0 {
		return 0, ErrInvalidArrayLength
	}

	newID := uint64(len(p.proposals)) + 1

	copied := make([]Action, len(actions))
	for i, action := range actions {
		if action.Value == nil {
			action.Value = new(big.Int)
		} else {
			action.Value = new(big.Int).Set(action.Value)
		}
		action.Data = append([]byte(nil), action.Data...)
		copied[i] = action
	}

	settingsID, err := p.resolveSettingsID(copied, newID)
	if err != nil {
		return 0, err
	}

	settings, err := p.registry.SettingsOf(settingsID)
	if err != nil {
		return 0, err
	}
	settings = CopySettings(settings)

	// Proposals that go through the validator stage carry exactly one action,
	// like distribution proposals.
	if settings.ValidatorsVote && len(copied) != 1 {
		return 0, ErrInvalidExecutorsLength
	}

	tokens, nftIDs := p.ledger.VotingPowerOf(creator, false)
	raw := new(big.Int).Add(tokens, p.ledger.NftRawPower(nftIDs))
	if p.curve.Transform(creator, raw).Cmp(settings.MinVotesForCreating) < 0 {
		return 0, ErrLowCreatingPower
	}

	now := p.now()
	proposal := &Proposal{
		ID:             newID,
		Creator:        creator,
		SettingsID:     settingsID,
		Settings:       settings,
		CreatedAt:      now,
		VoteEnd:        now + settings.Duration,
		VotesFor:       new(big.Int),
		VotesAgainst:   new(big.Int),
		Actions:        copied,
		DescriptionURL: descriptionURL,
		Misc:           misc,
	}
	p.proposals = append(p.proposals, proposal)

	if settings.RewardsEnabled() && settings.CreationReward.Sign() > 0 {
		accrual := p.accrual(newID, creator, settings.RewardToken)
		accrual.Creation.Add(accrual.Creation, settings.CreationReward)
	}

	p.logger.Debugw("proposal created",
		"id", newID, "creator", creator.Hex(), "settings", settingsID, "actions", len(copied))

	return newID, nil
}

// resolveSettingsID picks the settings bundle for a new proposal: the agreed
// trusted-executor id if every action resolves to the same one, otherwise
// the default. Internal and distribution targets are validated on the way.
func (p *Pool) resolveSettingsID(actions []Action, newID uint64) (uint64, error) {
	resolved := uint64(0)
	agree := true

	for i, action := range actions {
		settingsID, err := p.actionSettingsID(action, newID, len(actions))
		if err != nil {
			return 0, err
		}
		if i == 0 {
			resolved = settingsID
		} else if settingsID != resolved {
			agree = false
		}
	}

	if !agree {
		return p.registry.DefaultSettingsID(), nil
	}
	return resolved, nil
}

func (p *Pool) actionSettingsID(action Action, newID uint64, actionCount int) (uint64, error) {
	if allowed, internal := p.internalSelectors[action.Target]; internal {
		if action.Value.Sign() != 0 {
			return 0, ErrInvalidInternalData
		}
		sel, ok := CallSelector(action.Data)
		if !ok {
			return 0, ErrInvalidInternalData
		}
		if _, ok := allowed[sel]; !ok {
			return 0, ErrInvalidInternalData
		}
		return p.registry.InternalSettingsID(), nil
	}

	if _, isDistribution := p.distribution[action.Target]; isDistribution {
		if actionCount != 1 {
			return 0, ErrInvalidExecutorsLength
		}
		embeddedID, token, _, err := UnpackDistributionExecute(action.Data)
		if err != nil {
			return 0, ErrInvalidInternalData
		}
		if !embeddedID.IsUint64() || embeddedID.Uint64() != newID {
			return 0, ErrInvalidProposalID
		}
		if action.Value.Sign() != 0 && token != NativeToken {
			return 0, ErrInvalidInternalData
		}
	}

	if settingsID, ok := p.registry.ExecutorSettings(action.Target); ok {
		return settingsID, nil
	}
	return p.registry.DefaultSettingsID(), nil
}

func (p *Pool) proposal(id uint64) *Proposal {
	if id == 0 || id > uint64(len(p.proposals)) {
		return nil
	}
	return p.proposals[id-1]
}

func (p *Pool) accrual(proposalID uint64, account, token common.Address) *RewardAccrual {
	key := rewardKey{ProposalID: proposalID, Account: account}
	accrual, ok := p.rewards[key]
	if !ok {
		accrual = &RewardAccrual{
			Token:     token,
			Creation:  new(big.Int),
			Execution: new(big.Int),
			Voting:    new(big.Int),
		}
		p.rewards[key] = accrual
	}
	return accrual
}

// CopySettings deep-copies a bundle so snapshots stay immutable.
func CopySettings(settings Settings) Settings {
	settings.Quorum = bigCopy(settings.Quorum)
	settings.QuorumValidators = bigCopy(settings.QuorumValidators)
	settings.MinVotesForVoting = bigCopy(settings.MinVotesForVoting)
	settings.MinVotesForCreating = bigCopy(settings.MinVotesForCreating)
	settings.CreationReward = bigCopy(settings.CreationReward)
	settings.ExecutionReward = bigCopy(settings.ExecutionReward)
	settings.VoteRewardsCoefficient = bigCopy(settings.VoteRewardsCoefficient)
	return settings
}

func bigCopy(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(value)
}

// selfHandler applies the pool's own whitelisted internal selectors during
// execution. It runs inside the executing call, so it mutates pool fields
// directly instead of re-entering the public surface.
type selfHandler struct {
	pool *Pool
}

func (h selfHandler) OnProposalCall(_ CallContext, _ *big.Int, data []byte) error {
	sel, ok := CallSelector(data)
	if !ok {
		return ErrInvalidInternalData
	}

	switch sel {
	case SelectorEditDescriptionURL:
		url, err := unpackEditDescriptionURL(data)
		if err != nil {
			return ErrInvalidInternalData
		}
		h.pool.descriptionURL = url
	case SelectorSetNftMultiplier:
		address, err := unpackSetNftMultiplier(data)
		if err != nil {
			return ErrInvalidInternalData
		}
		multiplier, ok := h.pool.multipliers[address]
		if !ok {
			return ErrNoHandler
		}
		h.pool.nftMultiplier = multiplier
	case SelectorChangeVoteLimit:
		limit, err := unpackChangeVoteLimit(data)
		if err != nil {
			return ErrInvalidInternalData
		}
		if !limit.IsInt64() || limit.Sign() <= 0 {
			return ErrInvalidInternalData
		}
		h.pool.voteLimit = int(limit.Int64())
	default:
		return ErrInvalidInternalData
	}
	return nil
}

// poolSnapshot captures the fields the self handler may mutate.
type poolSnapshot struct {
	descriptionURL string
	voteLimit      int
	nftMultiplier  NftMultiplier
}

func (h selfHandler) SnapshotState() any {
	return poolSnapshot{
		descriptionURL: h.pool.descriptionURL,
		voteLimit:      h.pool.voteLimit,
		nftMultiplier:  h.pool.nftMultiplier,
	}
}

func (h selfHandler) RestoreState(state any) {
	snap := state.(poolSnapshot)
	h.pool.descriptionURL = snap.descriptionURL
	h.pool.voteLimit = snap.voteLimit
	h.pool.nftMultiplier = snap.nftMultiplier
}

// DescriptionURL returns the pool's own metadata URL (editable only through
// an executed self-targeted proposal).
func (p *Pool) DescriptionURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.descriptionURL
}
