package services_test

import (
	"math/big"
	"sort"
	"sync"
	"testing"

	"dao_governance_pool/internal/db/models"
	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/curve"
	"dao_governance_pool/internal/gov/ledger"
	"dao_governance_pool/internal/gov/settings"
	"dao_governance_pool/internal/gov/validators"
	"dao_governance_pool/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var (
	poolAddress = common.HexToAddress("0x1001")
	rewardToken = common.HexToAddress("0x3001")

	alice = common.HexToAddress("0xA1")
	bob   = common.HexToAddress("0xB2")
)

type fakeProposalRepo struct {
	rows map[uint64]*models.Proposal
}

func (f *fakeProposalRepo) Upsert(request *models.Proposal) (*models.Proposal, error) {
	f.rows[request.ID] = request
	return request, nil
}

func (f *fakeProposalRepo) Update(request *models.Proposal) (*models.Proposal, error) {
	f.rows[request.ID] = request
	return request, nil
}

func (f *fakeProposalRepo) GetOne(proposalID uint64) (*models.Proposal, error) {
	return f.rows[proposalID], nil
}

func (f *fakeProposalRepo) GetMany(offset, limit int) ([]*models.Proposal, error) {
	var rows []*models.Proposal
	for _, row := range f.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (f *fakeProposalRepo) GetManyByStatus(status ...models.ProposalStatus) ([]*models.Proposal, error) {
	var rows []*models.Proposal
	for _, row := range f.rows {
		for _, s := range status {
			if row.Status == s {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows, nil
}

type voteRowKey struct {
	ProposalID uint64
	Voter      string
	Delegated  bool
}

type fakeVoteRepo struct {
	rows map[voteRowKey]*models.Vote
}

func (f *fakeVoteRepo) Upsert(request *models.Vote) (*models.Vote, error) {
	f.rows[voteRowKey{request.ProposalID, request.Voter, request.Delegated}] = request
	return request, nil
}

func (f *fakeVoteRepo) DeleteForVoter(proposalID uint64, voter string) error {
	for key := range f.rows {
		if key.ProposalID == proposalID && key.Voter == voter {
			delete(f.rows, key)
		}
	}
	return nil
}

func (f *fakeVoteRepo) GetManyByProposal(proposalID uint64) ([]*models.Vote, error) {
	var rows []*models.Vote
	for key, row := range f.rows {
		if key.ProposalID == proposalID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeVoteRepo) GetManyByVoter(voter string) ([]*models.Vote, error) {
	var rows []*models.Vote
	for key, row := range f.rows {
		if key.Voter == voter {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type fakeClaimRepo struct {
	rows []*models.RewardClaim
}

func (f *fakeClaimRepo) Create(request *models.RewardClaim) (*models.RewardClaim, error) {
	f.rows = append(f.rows, request)
	return request, nil
}

func (f *fakeClaimRepo) GetManyByAccount(account string) ([]*models.RewardClaim, error) {
	var rows []*models.RewardClaim
	for _, row := range f.rows {
		if row.Account == account {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type serviceEnv struct {
	service   services.PoolService
	pool      *gov.Pool
	ledger    *ledger.Ledger
	proposals *fakeProposalRepo
	votes     *fakeVoteRepo
	claims    *fakeClaimRepo
	now       int64
}

func newServiceEnv(withRewards bool) *serviceEnv {
	env := &serviceEnv{now: 1_700_000_000}

	bundle := gov.Settings{
		EarlyCompletion:        true,
		DelegatedVotingAllowed: true,
		Duration:               3600,
		DurationValidators:     600,
		Quorum:                 new(big.Int).Mul(big.NewInt(51), gov.Precision),
		QuorumValidators:       new(big.Int).Mul(big.NewInt(51), gov.Precision),
		MinVotesForVoting:      big.NewInt(0),
		MinVotesForCreating:    big.NewInt(0),
	}
	if withRewards {
		bundle.RewardToken = rewardToken
		bundle.CreationReward = big.NewInt(100)
		bundle.VoteRewardsCoefficient = new(big.Int).Set(gov.Precision)
	}

	env.ledger = ledger.New(big.NewInt(1000))
	env.pool = gov.NewPool(gov.Config{
		SelfAddress: poolAddress,
		Ledger:      env.ledger,
		Curve:       curve.NewLinear(),
		Validators:  validators.New(nil, func() int64 { return env.now }),
		Registry:    settings.New(bundle, bundle),
		Now:         func() int64 { return env.now },
	})

	env.proposals = &fakeProposalRepo{rows: map[uint64]*models.Proposal{}}
	env.votes = &fakeVoteRepo{rows: map[voteRowKey]*models.Vote{}}
	env.claims = &fakeClaimRepo{}
	env.service = services.NewPoolService(env.pool, env.proposals, env.votes, env.claims, zap.NewNop().Sugar())

	return env
}

func noopAction() gov.Action {
	return gov.Action{Target: common.HexToAddress("0x2001"), Value: big.NewInt(0)}
}

func TestCreateProposal_MirrorsRow(t *testing.T) {
	env := newServiceEnv(false)
	env.ledger.Deposit(alice, big.NewInt(1000))

	proposalID, err := env.service.CreateProposal(alice, "ipfs://p1", "", []gov.Action{noopAction()})
	assert.NoError(t, err)

	row := env.proposals.rows[proposalID]
	assert.NotNil(t, row)
	assert.Equal(t, alice.Hex(), row.Creator)
	assert.Equal(t, models.ProposalStatusVoting, row.Status)
	assert.Equal(t, "ipfs://p1", row.DescriptionURL)
	assert.Equal(t, "0", row.VotesFor)
}

func TestCreateProposal_EngineErrorSkipsMirror(t *testing.T) {
	env := newServiceEnv(false)

	_, err := env.service.CreateProposal(alice, "", "", nil)
	assert.ErrorIs(t, err, gov.ErrInvalidArrayLength)
	assert.Empty(t, env.proposals.rows)
}

func TestVote_MirrorsTalliesAndVoteRow(t *testing.T) {
	env := newServiceEnv(false)
	env.ledger.Deposit(alice, big.NewInt(1000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	err := env.service.Vote(alice, proposalID, big.NewInt(600), nil, gov.VoteSideFor, false)
	assert.NoError(t, err)

	row := env.proposals.rows[proposalID]
	assert.Equal(t, "600", row.VotesFor)
	assert.True(t, row.QuorumReached)
	assert.Equal(t, models.ProposalStatusSucceeded, row.Status)

	voteRow := env.votes.rows[voteRowKey{proposalID, alice.Hex(), false}]
	assert.NotNil(t, voteRow)
	assert.Equal(t, models.VoteSideFor, voteRow.Side)
	assert.Equal(t, "600", voteRow.Weight)
}

func TestCancelVote_DeletesVoteRows(t *testing.T) {
	env := newServiceEnv(false)
	env.ledger.Deposit(alice, big.NewInt(1000))
	env.ledger.Deposit(bob, big.NewInt(9000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	assert.NoError(t, env.service.Vote(alice, proposalID, big.NewInt(600), nil, gov.VoteSideFor, false))

	assert.NoError(t, env.service.CancelVote(alice, proposalID))
	assert.Empty(t, env.votes.rows)
	assert.Equal(t, "0", env.proposals.rows[proposalID].VotesFor)
}

func TestClaimRewards_RecordsClaimRow(t *testing.T) {
	env := newServiceEnv(true)
	env.ledger.Deposit(alice, big.NewInt(1000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	assert.NoError(t, env.service.Vote(alice, proposalID, big.NewInt(600), nil, gov.VoteSideFor, false))

	env.pool.Treasury().Deposit(rewardToken, big.NewInt(10000))
	assert.NoError(t, env.service.Execute(bob, proposalID))

	paid, err := env.service.ClaimRewards(alice, []uint64{proposalID})
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(700), paid)

	assert.Len(t, env.claims.rows, 1)
	claim := env.claims.rows[0]
	assert.Equal(t, alice.Hex(), claim.Account)
	assert.Equal(t, rewardToken.Hex(), claim.Token)
	assert.Equal(t, "700", claim.Amount)
	assert.Equal(t, []int64{int64(proposalID)}, claim.Proposals)
}

func TestClaimRewards_ConcurrentClaimsRecordOnce(t *testing.T) {
	env := newServiceEnv(true)
	env.ledger.Deposit(alice, big.NewInt(1000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	assert.NoError(t, env.service.Vote(alice, proposalID, big.NewInt(600), nil, gov.VoteSideFor, false))

	env.pool.Treasury().Deposit(rewardToken, big.NewInt(10000))
	assert.NoError(t, env.service.Execute(bob, proposalID))

	// The engine pays once; the losing racer snapshots zero pending and must
	// not write a second claim row.
	paid := make([]*big.Int, 2)
	var wg sync.WaitGroup
	for i := range paid {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount, err := env.service.ClaimRewards(alice, []uint64{proposalID})
			assert.NoError(t, err)
			paid[i] = amount
		}(i)
	}
	wg.Wait()

	assert.Equal(t, big.NewInt(700), new(big.Int).Add(paid[0], paid[1]))
	assert.Len(t, env.claims.rows, 1)
	assert.Equal(t, "700", env.claims.rows[0].Amount)
}

func TestClaimRewards_EngineErrorRecordsNothing(t *testing.T) {
	env := newServiceEnv(true)
	env.ledger.Deposit(alice, big.NewInt(1000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})

	_, err := env.service.ClaimRewards(alice, []uint64{proposalID})
	assert.ErrorIs(t, err, gov.ErrProposalNotExecuted)
	assert.Empty(t, env.claims.rows)
}

func TestSyncProposalStates_FinalizesOverdueRows(t *testing.T) {
	env := newServiceEnv(false)
	env.ledger.Deposit(alice, big.NewInt(1000))
	proposalID, _ := env.service.CreateProposal(alice, "", "", []gov.Action{noopAction()})
	assert.NoError(t, env.service.Vote(alice, proposalID, big.NewInt(100), nil, gov.VoteSideFor, false))

	assert.Equal(t, models.ProposalStatusVoting, env.proposals.rows[proposalID].Status)

	env.now += 3600
	assert.NoError(t, env.service.SyncProposalStates())
	assert.Equal(t, models.ProposalStatusDefeated, env.proposals.rows[proposalID].Status)
}
