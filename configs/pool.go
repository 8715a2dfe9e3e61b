package configs

type Pool struct {
	ListenAddress  string `env:"POOL_LISTEN_ADDRESS" envDefault:":8080"`
	Address        string `env:"POOL_ADDRESS,notEmpty"`
	DescriptionURL string `env:"POOL_DESCRIPTION_URL"`
	VoteLimit      int    `env:"POOL_VOTE_LIMIT" envDefault:"20"`
	NftUnitPower   int64  `env:"POOL_NFT_UNIT_POWER" envDefault:"1000"`

	// Validators are "address:weight" pairs forming the fixed committee.
	Validators []string `env:"POOL_VALIDATORS" envSeparator:","`

	ExpertBoostPercent int64    `env:"POOL_EXPERT_BOOST_PERCENT" envDefault:"0"`
	Experts            []string `env:"POOL_EXPERTS" envSeparator:","`
}
