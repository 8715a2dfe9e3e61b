package repositories

import (
	"dao_governance_pool/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type voteRepository struct {
	repository
}

type VoteRepository interface {
	Upsert(request *models.Vote) (*models.Vote, error)
	DeleteForVoter(proposalID uint64, voter string) error
	GetManyByProposal(proposalID uint64) ([]*models.Vote, error)
	GetManyByVoter(voter string) ([]*models.Vote, error)
}

func NewVoteRepository(db *pg.DB) VoteRepository {
	return &voteRepository{
		repository: repository{
			db: db,
		},
	}
}

func (r *voteRepository) Upsert(request *models.Vote) (*models.Vote, error) {
	_, err := r.db.Model(request).
		OnConflict("(proposal_id, voter, delegated) DO UPDATE").
		Set("side = EXCLUDED.side").
		Set("tokens = EXCLUDED.tokens").
		Set("nft_ids = EXCLUDED.nft_ids").
		Set("weight = EXCLUDED.weight").
		Insert()
	if err != nil {
		return nil, err
	}

	vote := &models.Vote{}

	err = r.db.Model(vote).
		Where("proposal_id = ?", request.ProposalID).
		Where("voter = ?", request.Voter).
		Where("delegated = ?", request.Delegated).
		Select()

	return vote, err
}

func (r *voteRepository) DeleteForVoter(proposalID uint64, voter string) error {
	_, err := r.db.Model((*models.Vote)(nil)).
		Where("proposal_id = ?", proposalID).
		Where("voter = ?", voter).
		Delete()
	return err
}

func (r *voteRepository) GetManyByProposal(proposalID uint64) ([]*models.Vote, error) {
	votes := make([]*models.Vote, 0)

	err := r.db.Model(&votes).
		Where("proposal_id = ?", proposalID).
		OrderExpr("created_at ASC").
		Select()

	return votes, err
}

func (r *voteRepository) GetManyByVoter(voter string) ([]*models.Vote, error) {
	votes := make([]*models.Vote, 0)

	err := r.db.Model(&votes).
		Where("voter = ?", voter).
		OrderExpr("created_at ASC").
		Select()

	return votes, err
}
