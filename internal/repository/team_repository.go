package repository

import (
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/models"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// Create creates a team and its admin membership in one transaction
func (r *GormTeamRepository) Create(team *models.Team, admin *models.TeamMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		admin.TeamID = team.ID

		return tx.Create(admin).Error
	})
}

// FindByID finds a team by ID
func (r *GormTeamRepository) FindByID(id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByCode finds a team by join code
func (r *GormTeamRepository) FindByCode(code string) (*models.Team, error) {
	var team models.Team
	if err := r.db.Where("code = ?", code).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// Update updates a team
func (r *GormTeamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// AddMember adds a member to a team
func (r *GormTeamRepository) AddMember(member *models.TeamMember) error {
	return r.db.Create(member).Error
}

// RemoveMember removes a member from a team
func (r *GormTeamRepository) RemoveMember(teamID, userID uint64) error {
	return r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{}).Error
}

// FindMember finds a specific team member
func (r *GormTeamRepository) FindMember(teamID, userID uint64) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMember saves a member row (role changes)
func (r *GormTeamRepository) UpdateMember(member *models.TeamMember) error {
	return r.db.Save(member).Error
}

// CountAdmins counts a team's admins
func (r *GormTeamRepository) CountAdmins(teamID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ?", teamID, models.RoleAdmin).
		Count(&count).Error
	return count, err
}

// ListMembersByUserID lists all teams a user is a member of
func (r *GormTeamRepository) ListMembersByUserID(userID uint64) ([]models.TeamMember, error) {
	var memberships []models.TeamMember
	if err := r.db.Preload("Team").
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists a team's members ordered by XP descending
func (r *GormTeamRepository) ListMembers(teamID uint64) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.Preload("User").
		Where("team_id = ?", teamID).
		Order("xp DESC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListTeamIDs returns every team ID (snapshot job)
func (r *GormTeamRepository) ListTeamIDs() ([]uint64, error) {
	var ids []uint64
	if err := r.db.Model(&models.Team{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Stats aggregates task and XP totals for a team
func (r *GormTeamRepository) Stats(teamID uint64) (*TeamStats, error) {
	var stats TeamStats

	if err := r.db.Model(&models.Task{}).
		Where("team_id = ?", teamID).
		Count(&stats.TotalTasks).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.Task{}).
		Where("team_id = ? AND completed = ?", teamID, true).
		Count(&stats.CompletedTasks).Error; err != nil {
		return nil, err
	}

	var totalXP *int64
	if err := r.db.Model(&models.TeamMember{}).
		Where("team_id = ?", teamID).
		Select("SUM(xp)").
		Scan(&totalXP).Error; err != nil {
		return nil, err
	}
	if totalXP != nil {
		stats.TotalTeamXP = *totalXP
	}

	var top models.TeamMember
	err := r.db.Preload("User").
		Where("team_id = ?", teamID).
		Order("xp DESC").
		First(&top).Error
	if err == nil {
		stats.TopMember = top.User.DisplayName
	}

	return &stats, nil
}
