package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/rewards"
)

// ChallengeServiceTestSuite defines the test suite for ChallengeService
type ChallengeServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ChallengeService
}

// SetupTest runs before each test
func (suite *ChallengeServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Challenge{},
		&models.ChallengeCompletion{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.service = NewChallengeService(
		repository.NewChallengeRepository(suite.db),
		repository.NewTeamRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *ChallengeServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ChallengeServiceTestSuite) createUser(name string) *models.User {
	user := &models.User{
		Email:        name + "@example.com",
		DisplayName:  name,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *ChallengeServiceTestSuite) createTeam(name string, creatorID uint64) *models.Team {
	team := &models.Team{
		Name:        name,
		Code:        name + "CODE",
		CreatedByID: creatorID,
	}
	suite.db.Create(team)
	return team
}

func (suite *ChallengeServiceTestSuite) createMember(teamID, userID uint64, role models.TeamRole) *models.TeamMember {
	member := &models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	suite.db.Create(member)
	return member
}

func (suite *ChallengeServiceTestSuite) createTeamChallenge(teamID uint64, title string, xp int) *models.Challenge {
	challenge := &models.Challenge{
		TeamID:   &teamID,
		Title:    title,
		XPReward: xp,
		Type:     models.ChallengeTypeTask,
		Active:   true,
	}
	suite.db.Create(challenge)
	return challenge
}

func (suite *ChallengeServiceTestSuite) createGlobalChallenge(title string) *models.Challenge {
	challenge := &models.Challenge{
		Title:    title,
		XPReward: DefaultChallengeXP,
		Type:     models.ChallengeTypeSocial,
		Active:   true,
		IsGlobal: true,
	}
	suite.db.Create(challenge)
	return challenge
}

func (suite *ChallengeServiceTestSuite) reloadMember(teamID, userID uint64) models.TeamMember {
	var member models.TeamMember
	suite.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member)
	return member
}

func (suite *ChallengeServiceTestSuite) TestListDaily_MergesTeamAndGlobalRotation() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	teamChallenge := suite.createTeamChallenge(team.ID, "Close three bugs", 25)
	globals := make([]*models.Challenge, 0, 5)
	for _, title := range []string{"g1", "g2", "g3", "g4", "g5"} {
		globals = append(globals, suite.createGlobalChallenge(title))
	}

	// Jan 5 is day-of-year 5; 5 mod 5 globals starts the rotation at g1.
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	daily, err := suite.service.ListDaily(team.ID, user.ID, now)

	suite.Require().NoError(err)
	suite.Require().Len(daily, 4)
	assert.Equal(suite.T(), teamChallenge.ID, daily[0].Challenge.ID)
	assert.Equal(suite.T(), globals[0].ID, daily[1].Challenge.ID)
	assert.Equal(suite.T(), globals[1].ID, daily[2].Challenge.ID)
	assert.Equal(suite.T(), globals[2].ID, daily[3].Challenge.ID)

	// The next day the rotation advances by one.
	daily, err = suite.service.ListDaily(team.ID, user.ID, now.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	suite.Require().Len(daily, 4)
	assert.Equal(suite.T(), globals[1].ID, daily[1].Challenge.ID)
	assert.Equal(suite.T(), globals[3].ID, daily[3].Challenge.ID)
}

func (suite *ChallengeServiceTestSuite) TestListDaily_FlagsTodaysCompletions() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	done := suite.createTeamChallenge(team.ID, "Done one", 20)
	suite.createTeamChallenge(team.ID, "Open one", 20)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	_, err := suite.service.Complete(team.ID, done.ID, user.ID, now)
	suite.Require().NoError(err)

	daily, err := suite.service.ListDaily(team.ID, user.ID, now)
	suite.Require().NoError(err)
	suite.Require().Len(daily, 2)

	byID := map[uint64]bool{}
	for _, d := range daily {
		byID[d.Challenge.ID] = d.CompletedToday
	}
	assert.True(suite.T(), byID[done.ID])
	assert.Len(suite.T(), byID, 2)
	for id, completed := range byID {
		if id != done.ID {
			assert.False(suite.T(), completed)
		}
	}
}

func (suite *ChallengeServiceTestSuite) TestComplete_CreditsBonusXPOnly() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	member := suite.createMember(team.ID, user.ID, models.RoleAdmin)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	today := now.Format(rewards.DateLayout)

	member.XP = 100
	member.TodayXP = 30
	member.Streak = 4
	member.TasksCompleted = 7
	member.LastCompletedDate = today
	suite.db.Save(member)

	challenge := suite.createTeamChallenge(team.ID, "Pair review", 25)

	result, err := suite.service.Complete(team.ID, challenge.ID, user.ID, now)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 25, result.XPEarned)
	assert.Equal(suite.T(), 125, result.NewXP)
	assert.Equal(suite.T(), 55, result.NewTodayXP)

	reloaded := suite.reloadMember(team.ID, user.ID)
	assert.Equal(suite.T(), 125, reloaded.XP)
	assert.Equal(suite.T(), 55, reloaded.TodayXP)
	assert.Equal(suite.T(), today, reloaded.LastCompletedDate)

	// Bonus XP never advances the streak or the completion tally.
	assert.Equal(suite.T(), 4, reloaded.Streak)
	assert.Equal(suite.T(), 7, reloaded.TasksCompleted)
}

func (suite *ChallengeServiceTestSuite) TestComplete_OncePerDay() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	challenge := suite.createTeamChallenge(team.ID, "Pair review", 25)

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	_, err := suite.service.Complete(team.ID, challenge.ID, user.ID, now)
	suite.Require().NoError(err)

	_, err = suite.service.Complete(team.ID, challenge.ID, user.ID, now.Add(2*time.Hour))
	assert.ErrorIs(suite.T(), err, ErrChallengeAlreadyCompleted)

	// A new calendar day opens the challenge again.
	result, err := suite.service.Complete(team.ID, challenge.ID, user.ID, now.AddDate(0, 0, 1))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 25, result.XPEarned)
}

func (suite *ChallengeServiceTestSuite) TestComplete_OtherTeamsChallengeNotFound() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	teamA := suite.createTeam("Team A", alice.ID)
	teamB := suite.createTeam("Team B", bob.ID)
	suite.createMember(teamA.ID, alice.ID, models.RoleAdmin)
	suite.createMember(teamB.ID, bob.ID, models.RoleAdmin)

	foreign := suite.createTeamChallenge(teamB.ID, "Theirs", 20)

	_, err := suite.service.Complete(teamA.ID, foreign.ID, alice.ID, time.Now())
	assert.ErrorIs(suite.T(), err, ErrChallengeNotFound)
}

func (suite *ChallengeServiceTestSuite) TestCreateChallenge_Defaults() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	challenge, err := suite.service.CreateChallenge(CreateChallengeInput{
		TeamID:  team.ID,
		ActorID: user.ID,
		Title:   "  Morning standup  ",
		Type:    models.ChallengeType("bogus"),
	})

	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Morning standup", challenge.Title)
	assert.Equal(suite.T(), DefaultChallengeXP, challenge.XPReward)
	assert.Equal(suite.T(), models.ChallengeTypeTask, challenge.Type)
	assert.True(suite.T(), challenge.Active)
	suite.Require().NotNil(challenge.TeamID)
	assert.Equal(suite.T(), team.ID, *challenge.TeamID)
}

func (suite *ChallengeServiceTestSuite) TestCreateChallenge_AdminOnly() {
	admin := suite.createUser("alice")
	member := suite.createUser("bob")
	team := suite.createTeam("Quest Squad", admin.ID)
	suite.createMember(team.ID, admin.ID, models.RoleAdmin)
	suite.createMember(team.ID, member.ID, models.RoleMember)

	_, err := suite.service.CreateChallenge(CreateChallengeInput{
		TeamID:  team.ID,
		ActorID: member.ID,
		Title:   "Nope",
	})

	assert.ErrorIs(suite.T(), err, ErrNotTeamAdmin)
}

func (suite *ChallengeServiceTestSuite) TestCreateChallenge_TitleRequired() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	_, err := suite.service.CreateChallenge(CreateChallengeInput{
		TeamID:  team.ID,
		ActorID: user.ID,
		Title:   "   ",
	})

	assert.ErrorIs(suite.T(), err, ErrChallengeTitleRequired)
}

func (suite *ChallengeServiceTestSuite) TestUpdateChallenge_GlobalsAreOutOfReach() {
	user := suite.createUser("alice")
	team := suite.createTeam("Quest Squad", user.ID)
	suite.createMember(team.ID, user.ID, models.RoleAdmin)

	global := suite.createGlobalChallenge("shared")

	title := "Hijacked"
	_, err := suite.service.UpdateChallenge(team.ID, global.ID, user.ID, UpdateChallengeInput{Title: &title})
	assert.ErrorIs(suite.T(), err, ErrChallengeNotFound)
}

func (suite *ChallengeServiceTestSuite) TestDeleteChallenge_ScopedToTeam() {
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	teamA := suite.createTeam("Team A", alice.ID)
	teamB := suite.createTeam("Team B", bob.ID)
	suite.createMember(teamA.ID, alice.ID, models.RoleAdmin)
	suite.createMember(teamB.ID, bob.ID, models.RoleAdmin)

	foreign := suite.createTeamChallenge(teamB.ID, "Theirs", 20)

	suite.Require().NoError(suite.service.DeleteChallenge(teamA.ID, foreign.ID, alice.ID))

	var count int64
	suite.db.Model(&models.Challenge{}).Where("id = ?", foreign.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

// TestChallengeServiceTestSuite runs the test suite
func TestChallengeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChallengeServiceTestSuite))
}
