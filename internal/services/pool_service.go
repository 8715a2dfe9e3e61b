package services

import (
	"math/big"
	"sync"
	"time"

	"dao_governance_pool/internal/db/models"
	"dao_governance_pool/internal/db/repositories"
	"dao_governance_pool/internal/gov"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type poolService struct {
	pool         *gov.Pool
	proposalRepo repositories.ProposalRepository
	voteRepo     repositories.VoteRepository
	claimRepo    repositories.RewardClaimRepository
	logger       *zap.SugaredLogger

	// claimMu keeps the pending-reward snapshot and the engine claim as one
	// unit, so two concurrent claims cannot both record the same payout.
	claimMu sync.Mutex
}

// PoolService fronts the in-memory engine and keeps the database mirror in
// step with it. The engine is the source of truth: a failed mirror write is
// logged and retried by the next sync, never surfaced to the caller.
type PoolService interface {
	CreateProposal(creator common.Address, descriptionURL, misc string, actions []gov.Action) (uint64, error)
	Vote(voter common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, side gov.VoteSide, delegated bool) error
	CancelVote(voter common.Address, proposalID uint64) error
	MoveProposalToValidators(proposalID uint64) error
	Execute(caller common.Address, proposalID uint64) error
	ClaimRewards(account common.Address, proposalIDs []uint64) (*big.Int, error)
	UnlockInProposals(proposalIDs []uint64, account common.Address) error
	SyncProposalStates() error
}

func NewPoolService(
	pool *gov.Pool,
	proposalRepo repositories.ProposalRepository,
	voteRepo repositories.VoteRepository,
	claimRepo repositories.RewardClaimRepository,
	logger *zap.SugaredLogger,
) PoolService {
	return &poolService{
		pool:         pool,
		proposalRepo: proposalRepo,
		voteRepo:     voteRepo,
		claimRepo:    claimRepo,
		logger:       logger,
	}
}

func (s *poolService) CreateProposal(creator common.Address, descriptionURL, misc string, actions []gov.Action) (uint64, error) {
	proposalID, err := s.pool.CreateProposal(creator, descriptionURL, misc, actions)
	if err != nil {
		return 0, err
	}

	s.mirrorProposal(proposalID)
	return proposalID, nil
}

func (s *poolService) Vote(voter common.Address, proposalID uint64, tokens *big.Int, nftIDs []uint64, side gov.VoteSide, delegated bool) error {
	var err error
	if delegated {
		err = s.pool.VoteDelegated(voter, proposalID, tokens, nftIDs, side)
	} else {
		err = s.pool.Vote(voter, proposalID, tokens, nftIDs, side)
	}
	if err != nil {
		return err
	}

	s.mirrorProposal(proposalID)
	s.mirrorVote(proposalID, voter, delegated)
	return nil
}

func (s *poolService) CancelVote(voter common.Address, proposalID uint64) error {
	if err := s.pool.CancelVote(voter, proposalID); err != nil {
		return err
	}

	s.mirrorProposal(proposalID)
	if err := s.voteRepo.DeleteForVoter(proposalID, voter.Hex()); err != nil {
		s.logger.Errorw("failed to delete vote rows", "proposal", proposalID, "voter", voter.Hex(), "error", err)
	}
	return nil
}

func (s *poolService) MoveProposalToValidators(proposalID uint64) error {
	if err := s.pool.MoveProposalToValidators(proposalID); err != nil {
		return err
	}

	s.mirrorProposal(proposalID)
	return nil
}

func (s *poolService) Execute(caller common.Address, proposalID uint64) error {
	if err := s.pool.Execute(caller, proposalID); err != nil {
		return err
	}

	s.mirrorProposal(proposalID)
	return nil
}

func (s *poolService) ClaimRewards(account common.Address, proposalIDs []uint64) (*big.Int, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	// Snapshot the per-token breakdown up front: the engine only reports the
	// grand total, and a claim is all-or-nothing.
	pending := map[common.Address]*big.Int{}
	perToken := map[common.Address][]int64{}
	for _, proposalID := range proposalIDs {
		view, ok := s.pool.GetProposal(proposalID)
		if !ok {
			continue
		}
		amount := s.pool.PendingRewards(proposalID, account)
		if amount.Sign() == 0 {
			continue
		}
		token := view.Settings.RewardToken
		if _, ok := pending[token]; !ok {
			pending[token] = new(big.Int)
		}
		pending[token].Add(pending[token], amount)
		perToken[token] = append(perToken[token], int64(proposalID))
	}

	paid, err := s.pool.ClaimRewards(account, proposalIDs)
	if err != nil {
		return nil, err
	}

	for token, amount := range pending {
		_, err := s.claimRepo.Create(&models.RewardClaim{
			Account:   account.Hex(),
			Token:     token.Hex(),
			Amount:    amount.String(),
			Proposals: perToken[token],
			ClaimedAt: time.Now(),
		})
		if err != nil {
			s.logger.Errorw("failed to record reward claim", "account", account.Hex(), "token", token.Hex(), "error", err)
		}
	}
	return paid, nil
}

func (s *poolService) UnlockInProposals(proposalIDs []uint64, account common.Address) error {
	if err := s.pool.UnlockInProposals(proposalIDs, account); err != nil {
		return err
	}

	for _, proposalID := range proposalIDs {
		if err := s.voteRepo.DeleteForVoter(proposalID, account.Hex()); err != nil {
			s.logger.Errorw("failed to delete vote rows", "proposal", proposalID, "account", account.Hex(), "error", err)
		}
	}
	return nil
}

// SyncProposalStates refreshes every non-terminal mirror row from the engine.
// Run periodically so passive transitions (deadlines, quorum shifts from new
// deposits) land in the database without a mutating call.
func (s *poolService) SyncProposalStates() error {
	proposals, err := s.proposalRepo.GetManyByStatus(
		models.ProposalStatusVoting,
		models.ProposalStatusWaitingValidators,
		models.ProposalStatusValidatorVoting,
	)
	if err != nil {
		return err
	}

	for _, proposal := range proposals {
		s.mirrorProposal(proposal.ID)
	}
	return nil
}

func (s *poolService) mirrorProposal(proposalID uint64) {
	view, ok := s.pool.GetProposal(proposalID)
	if !ok {
		return
	}

	row := &models.Proposal{
		ID:             view.ID,
		Creator:        view.Creator.Hex(),
		SettingsID:     view.SettingsID,
		DescriptionURL: view.DescriptionURL,
		Misc:           view.Misc,
		Status:         proposalStatus(view.State),
		VotesFor:       view.VotesFor.String(),
		VotesAgainst:   view.VotesAgainst.String(),
		QuorumReached:  s.pool.QuorumReached(proposalID),
		ValidatorsVote: view.Settings.ValidatorsVote,
		Escalated:      view.Escalated,
		Executed:       view.Executed,
		CreatedAt:      time.Unix(view.CreatedAt, 0).UTC(),
		VoteEnd:        time.Unix(view.VoteEnd, 0).UTC(),
	}

	if _, err := s.proposalRepo.Upsert(row); err != nil {
		s.logger.Errorw("failed to mirror proposal", "proposal", proposalID, "error", err)
	}
}

func (s *poolService) mirrorVote(proposalID uint64, voter common.Address, delegated bool) {
	record, ok := s.pool.UserVotes(proposalID, voter, delegated)
	if !ok {
		return
	}

	row := &models.Vote{
		ProposalID: proposalID,
		Voter:      voter.Hex(),
		Side:       voteSide(record.Side),
		Tokens:     record.Tokens.String(),
		NftIDs:     lo.Map(record.NftIDs, func(id uint64, _ int) int64 { return int64(id) }),
		Weight:     record.Weight.String(),
		Delegated:  delegated,
		CreatedAt:  time.Now(),
	}

	if _, err := s.voteRepo.Upsert(row); err != nil {
		s.logger.Errorw("failed to mirror vote", "proposal", proposalID, "voter", voter.Hex(), "error", err)
	}
}

func proposalStatus(state gov.ProposalState) models.ProposalStatus {
	switch state {
	case gov.StateWaitingForVotingTransfer:
		return models.ProposalStatusWaitingValidators
	case gov.StateValidatorVoting:
		return models.ProposalStatusValidatorVoting
	case gov.StateDefeated:
		return models.ProposalStatusDefeated
	case gov.StateSucceeded:
		return models.ProposalStatusSucceeded
	case gov.StateExecuted:
		return models.ProposalStatusExecuted
	default:
		return models.ProposalStatusVoting
	}
}

func voteSide(side gov.VoteSide) models.VoteSide {
	if side == gov.VoteSideAgainst {
		return models.VoteSideAgainst
	}
	return models.VoteSideFor
}
