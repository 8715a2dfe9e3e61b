package main

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"dao_governance_pool/configs"
	"dao_governance_pool/internal/db"
	"dao_governance_pool/internal/db/models"
	"dao_governance_pool/internal/db/repositories"
	"dao_governance_pool/internal/di"

	"github.com/go-co-op/gocron"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func main() {
	s := gocron.NewScheduler(time.UTC)

	config, err := configs.LoadProposalSweepServiceConfig()
	logger := di.NewLogger(config.App, config.Logger)

	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}
	logger.Info("config loaded")

	logger.Info("starting db")
	database, err := db.StartDB(config.DB, logger)
	if err != nil {
		logger.Fatalw("failed to start db", "error", err)
	}
	logger.Info("db started")

	s.Every(5).Minutes().Do(func() {
		proposalRepository := repositories.NewProposalRepository(database)

		logger.Info("getting open proposals")
		proposals, err := proposalRepository.GetManyByStatus(
			models.ProposalStatusVoting,
			models.ProposalStatusWaitingValidators,
			models.ProposalStatusValidatorVoting,
		)
		if err != nil {
			logger.Errorw("failed to get proposals", "error", err)
			return
		}

		proposalsNeedToBeUpdated := getProposalsNeedToBeUpdated(proposals, logger)

		if len(proposalsNeedToBeUpdated) == 0 {
			logger.Info("no proposals to update")
			return
		}

		updatedProposals := updateProposals(proposalsNeedToBeUpdated, proposalRepository, logger)

		for _, proposal := range updatedProposals {
			sendNotifications(proposal, config, logger)
		}

		logger.Info("proposals updated")
	})

	s.StartBlocking()
}

func getProposalsNeedToBeUpdated(proposals []*models.Proposal, logger *zap.SugaredLogger) []*models.Proposal {
	var proposalsNeedToBeUpdated []*models.Proposal

	for _, proposal := range proposals {
		status, changed := resolveFinalStatus(proposal, time.Now())
		if !changed {
			continue
		}

		logger.Infow("proposal resolved", "proposal", proposal.ID, "status", status)
		proposal.Status = status
		proposalsNeedToBeUpdated = append(proposalsNeedToBeUpdated, proposal)
	}

	return proposalsNeedToBeUpdated
}

// resolveFinalStatus decides what a voting-window expiry means for a mirror
// row. It only acts on rows whose deadline has passed; everything else is the
// engine's business and arrives via the regular sync.
func resolveFinalStatus(proposal *models.Proposal, now time.Time) (models.ProposalStatus, bool) {
	if proposal.Status.Terminal() || now.Before(proposal.VoteEnd) {
		return proposal.Status, false
	}

	// An escalated proposal whose validator window expired without a
	// committee verdict is defeated.
	if proposal.Escalated {
		return models.ProposalStatusDefeated, proposal.Status != models.ProposalStatusDefeated
	}

	if !proposal.QuorumReached || !forWins(proposal) {
		return models.ProposalStatusDefeated, true
	}

	// Quorum met and the for side won. A plain proposal is done; one that
	// requires validators sits waiting for the escalation call.
	if proposal.ValidatorsVote {
		return models.ProposalStatusWaitingValidators, proposal.Status != models.ProposalStatusWaitingValidators
	}
	return models.ProposalStatusSucceeded, true
}

func forWins(proposal *models.Proposal) bool {
	votesFor, okFor := new(big.Int).SetString(proposal.VotesFor, 10)
	votesAgainst, okAgainst := new(big.Int).SetString(proposal.VotesAgainst, 10)
	if !okFor || !okAgainst {
		return false
	}
	return votesFor.Cmp(votesAgainst) > 0
}

func updateProposals(
	proposals []*models.Proposal,
	proposalRepository repositories.ProposalRepository,
	logger *zap.SugaredLogger,
) []*models.Proposal {
	var updatedProposals []*models.Proposal

	for _, proposal := range proposals {
		_, err := proposalRepository.Update(proposal)
		if err != nil {
			logger.Errorw("failed to update proposal", "error", err)
			continue
		}

		updatedProposals = append(updatedProposals, proposal)
	}

	return updatedProposals
}

func sendNotifications(proposal *models.Proposal, config configs.ProposalSweepServiceConfig, logger *zap.SugaredLogger) {
	if config.Notifier.TelegramToken == "" || config.Notifier.TelegramChatID == 0 {
		return
	}

	bot, err := tgbotapi.NewBotAPI(config.Notifier.TelegramToken)
	if err != nil {
		logger.Errorw("could not create bot", "error", err)
		return
	}

	message := tgbotapi.NewMessage(config.Notifier.TelegramChatID, messageForProposal(proposal))
	if _, err := bot.Send(message); err != nil {
		logger.Errorw("could not send message", "error", err)
	}
}

func messageForProposal(proposal *models.Proposal) string {
	status := cases.Title(language.English).String(strings.ReplaceAll(proposal.Status.String(), "_", " "))

	text := fmt.Sprintf("Proposal #%d is now %s.", proposal.ID, status)
	if proposal.DescriptionURL != "" {
		text += fmt.Sprintf("\n%s", proposal.DescriptionURL)
	}
	return text
}
