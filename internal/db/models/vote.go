package models

import "time"

type VoteSide string

const (
	VoteSideFor     VoteSide = "for"
	VoteSideAgainst VoteSide = "against"
)

// Vote mirrors the engine's cumulative vote record for one
// (proposal, voter, delegated) key. Re-votes update the row in place.
type Vote struct {
	ID         int       `json:"id" pg:",pk"`
	ProposalID uint64    `json:"proposal_id" pg:",notnull,use_zero"`
	Voter      string    `json:"voter" pg:",notnull"`
	Side       VoteSide  `json:"side" pg:",notnull"`
	Tokens     string    `json:"tokens" pg:"type:numeric,notnull,use_zero"`
	NftIDs     []int64   `json:"nft_ids" pg:",array"`
	Weight     string    `json:"weight" pg:"type:numeric,notnull,use_zero"`
	Delegated  bool      `json:"delegated" pg:",use_zero"`
	CreatedAt  time.Time `json:"created_at" pg:"default:now()"`
}
