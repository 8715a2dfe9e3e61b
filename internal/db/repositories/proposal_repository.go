package repositories

import (
	"dao_governance_pool/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type proposalRepository struct {
	repository
}

type ProposalRepository interface {
	Upsert(request *models.Proposal) (*models.Proposal, error)
	Update(request *models.Proposal) (*models.Proposal, error)
	GetOne(proposalID uint64) (*models.Proposal, error)
	GetMany(offset, limit int) ([]*models.Proposal, error)
	GetManyByStatus(status ...models.ProposalStatus) ([]*models.Proposal, error)
}

func NewProposalRepository(db *pg.DB) ProposalRepository {
	return &proposalRepository{
		repository: repository{
			db: db,
		},
	}
}

func (r *proposalRepository) Upsert(request *models.Proposal) (*models.Proposal, error) {
	_, err := r.db.Model(request).
		OnConflict("(id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("votes_for = EXCLUDED.votes_for").
		Set("votes_against = EXCLUDED.votes_against").
		Set("quorum_reached = EXCLUDED.quorum_reached").
		Set("escalated = EXCLUDED.escalated").
		Set("executed = EXCLUDED.executed").
		Set("vote_end = EXCLUDED.vote_end").
		Set("description_url = EXCLUDED.description_url").
		Insert()
	if err != nil {
		return nil, err
	}

	proposal := &models.Proposal{}

	err = r.db.Model(proposal).
		Relation("Votes").
		Where("proposal.id = ?", request.ID).
		Select()

	return proposal, err
}

func (r *proposalRepository) Update(request *models.Proposal) (*models.Proposal, error) {
	_, err := r.db.Model(request).WherePK().Update()
	if err != nil {
		return nil, err
	}

	proposal := &models.Proposal{}

	err = r.db.Model(proposal).
		Relation("Votes").
		Where("proposal.id = ?", request.ID).
		Select()

	return proposal, err
}

func (r *proposalRepository) GetOne(proposalID uint64) (*models.Proposal, error) {
	proposal := &models.Proposal{}

	err := r.db.Model(proposal).
		Relation("Votes").
		Where("proposal.id = ?", proposalID).
		Select()

	return proposal, err
}

func (r *proposalRepository) GetMany(offset, limit int) ([]*models.Proposal, error) {
	proposals := make([]*models.Proposal, 0)

	err := r.db.Model(&proposals).
		OrderExpr("id ASC").
		Offset(offset).
		Limit(limit).
		Select()

	return proposals, err
}

func (r *proposalRepository) GetManyByStatus(status ...models.ProposalStatus) ([]*models.Proposal, error) {
	proposals := make([]*models.Proposal, 0)

	err := r.db.Model(&proposals).
		Relation("Votes").
		WhereGroup(func(q *pg.Query) (*pg.Query, error) {
			for _, s := range status {
				q = q.WhereOr("status = ?", s)
			}
			return q, nil
		}).
		Select()

	return proposals, err
}
