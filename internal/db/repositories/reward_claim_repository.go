package repositories

import (
	"dao_governance_pool/internal/db/models"

	"github.com/go-pg/pg/v10"
)

type rewardClaimRepository struct {
	repository
}

type RewardClaimRepository interface {
	Create(request *models.RewardClaim) (*models.RewardClaim, error)
	GetManyByAccount(account string) ([]*models.RewardClaim, error)
}

func NewRewardClaimRepository(db *pg.DB) RewardClaimRepository {
	return &rewardClaimRepository{
		repository: repository{
			db: db,
		},
	}
}

func (r *rewardClaimRepository) Create(request *models.RewardClaim) (*models.RewardClaim, error) {
	_, err := r.db.Model(request).Insert()
	if err != nil {
		return nil, err
	}

	claim := &models.RewardClaim{}

	err = r.db.Model(claim).
		Where("id = ?", request.ID).
		Select()

	return claim, err
}

func (r *rewardClaimRepository) GetManyByAccount(account string) ([]*models.RewardClaim, error) {
	claims := make([]*models.RewardClaim, 0)

	err := r.db.Model(&claims).
		Where("account = ?", account).
		OrderExpr("claimed_at ASC").
		Select()

	return claims, err
}
