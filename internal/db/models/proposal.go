package models

import "time"

type ProposalStatus string

func (s ProposalStatus) String() string {
	return string(s)
}

const (
	ProposalStatusVoting            ProposalStatus = "voting"
	ProposalStatusWaitingValidators ProposalStatus = "waiting_validators"
	ProposalStatusValidatorVoting   ProposalStatus = "validator_voting"
	ProposalStatusDefeated          ProposalStatus = "defeated"
	ProposalStatusSucceeded         ProposalStatus = "succeeded"
	ProposalStatusExecuted          ProposalStatus = "executed"
)

// Terminal reports whether no sweep can move the proposal further.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusDefeated || s == ProposalStatusSucceeded || s == ProposalStatusExecuted
}

// Proposal mirrors one engine ledger entry for the query surface and the
// sweep service. The engine remains the source of truth; rows are refreshed
// after every successful engine call.
type Proposal struct {
	ID             uint64         `json:"id" pg:",pk"`
	Creator        string         `json:"creator" pg:",notnull"`
	SettingsID     uint64         `json:"settings_id" pg:",notnull,use_zero"`
	DescriptionURL string         `json:"description_url"`
	Misc           string         `json:"misc"`
	Status         ProposalStatus `json:"status" pg:",notnull,default:'voting'"`
	VotesFor       string         `json:"votes_for" pg:"type:numeric,notnull,use_zero"`
	VotesAgainst   string         `json:"votes_against" pg:"type:numeric,notnull,use_zero"`
	QuorumReached  bool           `json:"quorum_reached" pg:",use_zero"`
	ValidatorsVote bool           `json:"validators_vote" pg:",use_zero"`
	Escalated      bool           `json:"escalated" pg:",use_zero"`
	Executed       bool           `json:"executed" pg:",use_zero"`
	CreatedAt      time.Time      `json:"created_at" pg:"default:now()"`
	VoteEnd        time.Time      `json:"vote_end"`
	Votes          []Vote         `json:"votes" pg:"rel:has-many"`
}
