package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/utils"
)

// TeamServiceTestSuite defines the test suite for TeamService
type TeamServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TeamService
}

// SetupTest runs before each test
func (suite *TeamServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.ActivityEntry{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	activityService := NewActivityService(repository.NewActivityRepository(suite.db), logger.NewNop())
	suite.service = NewTeamService(repository.NewTeamRepository(suite.db), activityService)
}

// TearDownTest runs after each test
func (suite *TeamServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TeamServiceTestSuite) createUser(name string) *models.User {
	user := &models.User{
		Email:        name + "@example.com",
		DisplayName:  name,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TeamServiceTestSuite) TestCreateTeam_CreatorBecomesAdmin() {
	user := suite.createUser("alice")

	team, err := suite.service.CreateTeam("Quest Squad", user.ID)

	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Quest Squad", team.Name)
	assert.NotEmpty(suite.T(), team.Code)

	var member models.TeamMember
	suite.Require().NoError(suite.db.
		Where("team_id = ? AND user_id = ?", team.ID, user.ID).
		First(&member).Error)
	assert.Equal(suite.T(), models.RoleAdmin, member.Role)
}

func (suite *TeamServiceTestSuite) TestCreateTeam_NameRequired() {
	user := suite.createUser("alice")

	_, err := suite.service.CreateTeam("   ", user.ID)

	assert.ErrorIs(suite.T(), err, ErrTeamNameRequired)
}

func (suite *TeamServiceTestSuite) TestJoinTeam_ByCode() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")

	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)

	joined, err := suite.service.JoinTeam(team.Code, bob.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), team.ID, joined.ID)

	var member models.TeamMember
	suite.Require().NoError(suite.db.
		Where("team_id = ? AND user_id = ?", team.ID, bob.ID).
		First(&member).Error)
	assert.Equal(suite.T(), models.RoleMember, member.Role)

	var entry models.ActivityEntry
	suite.Require().NoError(suite.db.
		Where("team_id = ? AND action = ?", team.ID, models.ActionTeamJoined).
		First(&entry).Error)
	assert.Equal(suite.T(), bob.ID, entry.UserID)
}

func (suite *TeamServiceTestSuite) TestJoinTeam_InvalidCode() {
	user := suite.createUser("alice")

	_, err := suite.service.JoinTeam("NOPE", user.ID)

	assert.ErrorIs(suite.T(), err, ErrInvalidJoinCode)
}

func (suite *TeamServiceTestSuite) TestJoinTeam_AlreadyMember() {
	alice := suite.createUser("alice")

	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)

	_, err = suite.service.JoinTeam(team.Code, alice.ID)
	assert.ErrorIs(suite.T(), err, ErrAlreadyMember)
}

func (suite *TeamServiceTestSuite) TestChangeMemberRole_LastAdminGuard() {
	alice := suite.createUser("alice")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)

	_, err = suite.service.ChangeMemberRole(team.ID, alice.ID, alice.ID, models.RoleMember)
	assert.ErrorIs(suite.T(), err, ErrLastAdmin)
}

func (suite *TeamServiceTestSuite) TestChangeMemberRole_Promote() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)
	_, err = suite.service.JoinTeam(team.Code, bob.ID)
	suite.Require().NoError(err)

	member, err := suite.service.ChangeMemberRole(team.ID, alice.ID, bob.ID, models.RoleAdmin)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.RoleAdmin, member.Role)

	// With a second admin the original admin can step down
	_, err = suite.service.ChangeMemberRole(team.ID, alice.ID, alice.ID, models.RoleMember)
	suite.Require().NoError(err)
}

func (suite *TeamServiceTestSuite) TestChangeMemberRole_AdminOnly() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)
	_, err = suite.service.JoinTeam(team.Code, bob.ID)
	suite.Require().NoError(err)

	_, err = suite.service.ChangeMemberRole(team.ID, bob.ID, alice.ID, models.RoleMember)
	assert.ErrorIs(suite.T(), err, ErrNotTeamAdmin)
}

func (suite *TeamServiceTestSuite) TestRemoveMember_Rules() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)
	_, err = suite.service.JoinTeam(team.Code, bob.ID)
	suite.Require().NoError(err)

	err = suite.service.RemoveMember(team.ID, alice.ID, alice.ID)
	assert.ErrorIs(suite.T(), err, ErrCannotRemoveSelf)

	err = suite.service.RemoveMember(team.ID, bob.ID, alice.ID)
	assert.ErrorIs(suite.T(), err, ErrNotTeamAdmin)

	err = suite.service.RemoveMember(team.ID, alice.ID, bob.ID)
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *TeamServiceTestSuite) TestListMembers_OrderedByXP() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)
	_, err = suite.service.JoinTeam(team.Code, bob.ID)
	suite.Require().NoError(err)

	suite.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, bob.ID).
		Update("xp", 500)

	members, err := suite.service.ListMembers(team.ID, alice.ID)
	suite.Require().NoError(err)
	suite.Require().Len(members, 2)
	assert.Equal(suite.T(), bob.ID, members[0].UserID)
	assert.Equal(suite.T(), alice.ID, members[1].UserID)
}

func (suite *TeamServiceTestSuite) TestActivity_Paginated() {
	alice := suite.createUser("alice")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)

	for i := 0; i < 5; i++ {
		suite.db.Create(&models.ActivityEntry{
			TeamID:    team.ID,
			UserID:    alice.ID,
			Action:    models.ActionTaskCreated,
			TaskTitle: "Task",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	entries, total, err := suite.service.Activity(team.ID, alice.ID, utils.PaginationParams{
		Page:   1,
		Limit:  3,
		Offset: 0,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(5), total)
	suite.Require().Len(entries, 3)
	// Newest first
	assert.True(suite.T(), entries[0].CreatedAt.After(entries[2].CreatedAt))
}

func (suite *TeamServiceTestSuite) TestStats() {
	alice := suite.createUser("alice")
	team, err := suite.service.CreateTeam("Quest Squad", alice.ID)
	suite.Require().NoError(err)

	suite.db.Create(&models.Task{
		TeamID: team.ID, Title: "Open", Priority: models.PriorityP2,
		Status: models.TaskStatusTodo, CreatedByID: alice.ID, StatusUpdatedAt: time.Now(),
	})
	suite.db.Create(&models.Task{
		TeamID: team.ID, Title: "Done", Priority: models.PriorityP2,
		Status: models.TaskStatusDone, Completed: true, CreatedByID: alice.ID, StatusUpdatedAt: time.Now(),
	})
	suite.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, alice.ID).
		Update("xp", 120)

	stats, err := suite.service.Stats(team.ID, alice.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), stats.TotalTasks)
	assert.Equal(suite.T(), int64(1), stats.CompletedTasks)
	assert.Equal(suite.T(), int64(120), stats.TotalTeamXP)
}

// TestTeamServiceTestSuite runs the test suite
func TestTeamServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TeamServiceTestSuite))
}
