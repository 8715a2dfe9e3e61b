package configs

type ProposalSettings struct {
	EarlyCompletion        bool   `env:"SETTINGS_EARLY_COMPLETION" envDefault:"true"`
	DelegatedVotingAllowed bool   `env:"SETTINGS_DELEGATED_VOTING_ALLOWED" envDefault:"true"`
	ValidatorsVote         bool   `env:"SETTINGS_VALIDATORS_VOTE" envDefault:"false"`
	DurationSeconds        int64  `env:"SETTINGS_DURATION_SECONDS" envDefault:"604800"`
	DurationValidators     int64  `env:"SETTINGS_DURATION_VALIDATORS_SECONDS" envDefault:"259200"`
	QuorumPercent          int64  `env:"SETTINGS_QUORUM_PERCENT" envDefault:"51"`
	QuorumValidatorsPct    int64  `env:"SETTINGS_QUORUM_VALIDATORS_PERCENT" envDefault:"51"`
	MinVotesForVoting      string `env:"SETTINGS_MIN_VOTES_FOR_VOTING" envDefault:"0"`
	MinVotesForCreating    string `env:"SETTINGS_MIN_VOTES_FOR_CREATING" envDefault:"0"`
	RewardToken            string `env:"SETTINGS_REWARD_TOKEN"`
	CreationReward         string `env:"SETTINGS_CREATION_REWARD" envDefault:"0"`
	ExecutionReward        string `env:"SETTINGS_EXECUTION_REWARD" envDefault:"0"`
	VoteRewardsCoefficient string `env:"SETTINGS_VOTE_REWARDS_COEFFICIENT" envDefault:"0"`
	ExecutorDescription    string `env:"SETTINGS_EXECUTOR_DESCRIPTION" envDefault:"default"`
}
