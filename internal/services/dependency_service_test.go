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
)

// DependencyServiceTestSuite defines the test suite for DependencyService
type DependencyServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *DependencyService
}

// SetupTest runs before each test
func (suite *DependencyServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.TaskDependency{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	suite.service = NewDependencyService(
		repository.NewDependencyRepository(suite.db),
		repository.NewTaskRepository(suite.db),
		repository.NewTeamRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *DependencyServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

type depFixture struct {
	user *models.User
	team *models.Team
}

func (suite *DependencyServiceTestSuite) fixture() depFixture {
	user := &models.User{Email: "alice@example.com", DisplayName: "alice", PasswordHash: "hashedpassword"}
	suite.db.Create(user)
	team := &models.Team{Name: "Team", Code: "TEAMCODE", CreatedByID: user.ID}
	suite.db.Create(team)
	suite.db.Create(&models.TeamMember{TeamID: team.ID, UserID: user.ID, Role: models.RoleAdmin, JoinedAt: time.Now()})
	return depFixture{user: user, team: team}
}

func (suite *DependencyServiceTestSuite) createTask(teamID, creatorID uint64, title string) *models.Task {
	task := &models.Task{
		TeamID:          teamID,
		Title:           title,
		Priority:        models.PriorityP2,
		Status:          models.TaskStatusTodo,
		CreatedByID:     creatorID,
		StatusUpdatedAt: time.Now(),
	}
	suite.db.Create(task)
	return task
}

func (suite *DependencyServiceTestSuite) TestAddDependency_Success() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	dep, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)

	suite.Require().NoError(err)
	assert.Equal(suite.T(), a.ID, dep.TaskID)
	assert.Equal(suite.T(), b.ID, dep.DependsOnID)

	deps, err := suite.service.GetDependencies(f.team.ID, a.ID, f.user.ID)
	suite.Require().NoError(err)
	suite.Require().Len(deps.BlockedBy, 1)
	assert.Equal(suite.T(), "B", deps.BlockedBy[0].Title)
	assert.Empty(suite.T(), deps.Blocking)

	// The reverse view shows A as blocked by B
	deps, err = suite.service.GetDependencies(f.team.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), deps.BlockedBy)
	suite.Require().Len(deps.Blocking, 1)
	assert.Equal(suite.T(), "A", deps.Blocking[0].Title)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_SelfLoop() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, a.ID, f.user.ID)

	assert.ErrorIs(suite.T(), err, ErrSelfDependency)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_Duplicate() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)

	_, err = suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	assert.ErrorIs(suite.T(), err, ErrDuplicateDependency)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_DirectCycle() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)

	_, err = suite.service.AddDependency(f.team.ID, b.ID, a.ID, f.user.ID)
	assert.ErrorIs(suite.T(), err, ErrDependencyCycle)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_TransitiveCycle() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")
	c := suite.createTask(f.team.ID, f.user.ID, "C")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)
	_, err = suite.service.AddDependency(f.team.ID, b.ID, c.ID, f.user.ID)
	suite.Require().NoError(err)

	// C -> A would close A -> B -> C -> A
	_, err = suite.service.AddDependency(f.team.ID, c.ID, a.ID, f.user.ID)
	assert.ErrorIs(suite.T(), err, ErrDependencyCycle)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_CrossTeamRejected() {
	f := suite.fixture()
	otherTeam := &models.Team{Name: "Other", Code: "OTHERCODE", CreatedByID: f.user.ID}
	suite.db.Create(otherTeam)

	a := suite.createTask(f.team.ID, f.user.ID, "A")
	foreign := suite.createTask(otherTeam.ID, f.user.ID, "Foreign")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, foreign.ID, f.user.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskNotFound)
}

func (suite *DependencyServiceTestSuite) TestAddDependency_NotMember() {
	f := suite.fixture()
	outsider := &models.User{Email: "mallory@example.com", DisplayName: "mallory", PasswordHash: "hashedpassword"}
	suite.db.Create(outsider)

	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, outsider.ID)
	assert.ErrorIs(suite.T(), err, ErrNotTeamMember)
}

func (suite *DependencyServiceTestSuite) TestRemoveDependency_Idempotent() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	dep, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)

	err = suite.service.RemoveDependency(f.team.ID, a.ID, dep.ID, f.user.ID)
	suite.Require().NoError(err)

	// Removing the same edge again succeeds
	err = suite.service.RemoveDependency(f.team.ID, a.ID, dep.ID, f.user.ID)
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.TaskDependency{}).Where("team_id = ?", f.team.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func (suite *DependencyServiceTestSuite) TestRemoveThenReAdd_Allowed() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	dep, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.RemoveDependency(f.team.ID, a.ID, dep.ID, f.user.ID))

	// The reverse edge no longer closes a cycle
	_, err = suite.service.AddDependency(f.team.ID, b.ID, a.ID, f.user.ID)
	suite.Require().NoError(err)
}

func (suite *DependencyServiceTestSuite) TestGetDependencies_ExcludesDeletedTasks() {
	f := suite.fixture()
	a := suite.createTask(f.team.ID, f.user.ID, "A")
	b := suite.createTask(f.team.ID, f.user.ID, "B")

	_, err := suite.service.AddDependency(f.team.ID, a.ID, b.ID, f.user.ID)
	suite.Require().NoError(err)

	// Soft delete B directly; its link should disappear from the listing
	suite.db.Delete(&models.Task{}, b.ID)

	deps, err := suite.service.GetDependencies(f.team.ID, a.ID, f.user.ID)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), deps.BlockedBy)
}

// TestDependencyServiceTestSuite runs the test suite
func TestDependencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DependencyServiceTestSuite))
}
