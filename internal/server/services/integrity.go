package services

import (
	"context"

	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/repositories/accounts"
	"github.com/modhost/backend/internal/server/repositories/teams"
)

const integrityPageSize = 200

// IntegrityService keeps the denormalized back-reference lists (account
// project ids, account team ids, team project ids) consistent after entity
// lifecycle events. Fix-ups are bulk and non-transactional with the event
// itself: each changed record is persisted independently, and a dangling
// reference left by a partial run is tolerated by readers.
type IntegrityService struct {
	accounts accounts.Repository
	teams    teams.Repository
	log      logging.Logger
}

// NewIntegrityService wires the service to the repositories it scans.
func NewIntegrityService(accounts accounts.Repository, teams teams.Repository, log logging.Logger) *IntegrityService {
	return &IntegrityService{accounts: accounts, teams: teams, log: log}
}

// AddProjectToOwner appends the project slug to the owner account's project
// list. Idempotent: an already-present slug is left alone.
func (s *IntegrityService) AddProjectToOwner(ctx context.Context, ownerID, slug string) {
	account := s.accounts.FindByID(ctx, ownerID)
	if account == nil {
		s.log.Warn(ctx, "project owner not found", "account_id", ownerID, "slug", slug)
		return
	}
	if contains(account.Projects, slug) {
		return
	}
	account.Projects = append(account.Projects, slug)
	if !s.accounts.Update(ctx, *account) {
		s.log.Warn(ctx, "owner project list not updated", "account_id", ownerID, "slug", slug)
	}
}

// RemoveProjectReferences strips every reference to the deleted project
// (by slug or id) from all accounts and teams.
func (s *IntegrityService) RemoveProjectReferences(ctx context.Context, slug, id string) {
	for _, account := range accounts.FindAll(ctx, s.accounts, integrityPageSize) {
		trimmed, changed := without(account.Projects, slug, id)
		if !changed {
			continue
		}
		account.Projects = trimmed
		if !s.accounts.Update(ctx, account) {
			s.log.Warn(ctx, "stale project reference kept on account", "account_id", account.ID, "slug", slug)
		}
	}

	for offset := 0; ; offset += integrityPageSize {
		page := s.teams.FindPage(ctx, integrityPageSize, offset)
		for _, team := range page {
			trimmed, changed := without(team.Projects, slug, id)
			if !changed {
				continue
			}
			team.Projects = trimmed
			if !s.teams.Update(ctx, team) {
				s.log.Warn(ctx, "stale project reference kept on team", "team_id", team.ID, "slug", slug)
			}
		}
		if len(page) < integrityPageSize {
			return
		}
	}
}

// AddTeamToOwner appends the team id to the owner account's team list.
// Idempotent: an already-present id is left alone.
func (s *IntegrityService) AddTeamToOwner(ctx context.Context, ownerID, teamID string) {
	account := s.accounts.FindByID(ctx, ownerID)
	if account == nil {
		s.log.Warn(ctx, "team owner not found", "account_id", ownerID, "team_id", teamID)
		return
	}
	if contains(account.Teams, teamID) {
		return
	}
	account.Teams = append(account.Teams, teamID)
	if !s.accounts.Update(ctx, *account) {
		s.log.Warn(ctx, "owner team list not updated", "account_id", ownerID, "team_id", teamID)
	}
}

// RemoveTeamReferences strips the deleted team's id from every account.
func (s *IntegrityService) RemoveTeamReferences(ctx context.Context, teamID string) {
	for _, account := range accounts.FindAll(ctx, s.accounts, integrityPageSize) {
		trimmed, changed := without(account.Teams, teamID)
		if !changed {
			continue
		}
		account.Teams = trimmed
		if !s.accounts.Update(ctx, account) {
			s.log.Warn(ctx, "stale team reference kept on account", "account_id", account.ID, "team_id", teamID)
		}
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// without removes every occurrence of the given values, reporting whether
// anything was removed.
func without(list []string, values ...string) ([]string, bool) {
	out := make([]string, 0, len(list))
	changed := false
	for _, v := range list {
		if contains(values, v) {
			changed = true
			continue
		}
		out = append(out, v)
	}
	return out, changed
}
