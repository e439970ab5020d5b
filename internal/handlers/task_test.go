package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/constants"
	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/events"
	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/services"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.TaskDependency{},
		&models.TaskComment{},
		&models.ActivityEntry{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	taskRepo := repository.NewTaskRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)
	userRepo := repository.NewUserRepository(suite.db)
	activityService := services.NewActivityService(repository.NewActivityRepository(suite.db), logger.NewNop())

	taskService := services.NewTaskService(taskRepo, teamRepo, userRepo, activityService, events.NopDispatcher{})
	depService := services.NewDependencyService(repository.NewDependencyRepository(suite.db), taskRepo, teamRepo)
	commentService := services.NewCommentService(repository.NewCommentRepository(suite.db), taskRepo, teamRepo, activityService)
	teamService := services.NewTeamService(teamRepo, activityService)

	// No AI service key in tests
	suite.handler = NewTaskHandler(taskService, depService, commentService, services.NewAIService(""), teamService, logger.NewNop())

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestUser(name string) *models.User {
	user := &models.User{
		Email:        name + "@example.com",
		DisplayName:  name,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTeam(name string, adminID uint64) *models.Team {
	team := &models.Team{
		Name:        name,
		Code:        name + "CODE",
		CreatedByID: adminID,
	}
	suite.db.Create(team)
	suite.db.Create(&models.TeamMember{
		TeamID:   team.ID,
		UserID:   adminID,
		Role:     models.RoleAdmin,
		JoinedAt: time.Now(),
	})
	return team
}

func (suite *TaskHandlerTestSuite) createTestTask(teamID, creatorID uint64, title string) *models.Task {
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

// createContext builds a request context with the auth and access
// middleware state already populated
func (suite *TaskHandlerTestSuite) createContext(method, url string, body []byte, userID uint64, team *models.Team, task *models.Task) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)
	if team != nil {
		c.Set(constants.ContextKeyTeam, *team)
	}
	if task != nil {
		c.Set(constants.ContextKeyTask, *task)
	}

	return c, w
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)

	body, _ := json.Marshal(map[string]interface{}{
		"title":    "New Task",
		"priority": "P1",
	})
	c, w := suite.createContext("POST", "/api/teams/1/tasks", body, user.ID, team, nil)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var resp map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "New Task", resp["title"])
	assert.Equal(suite.T(), "P1", resp["priority"])
	assert.Equal(suite.T(), "todo", resp["status"])
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MissingTitle() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)

	body, _ := json.Marshal(map[string]interface{}{"priority": "P1"})
	c, w := suite.createContext("POST", "/api/teams/1/tasks", body, user.ID, team, nil)

	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSetStatus_CompleteRewardsCaller() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	task := suite.createTestTask(team.ID, user.ID, "Ship it")

	body, _ := json.Marshal(map[string]interface{}{"status": "done"})
	c, w := suite.createContext("PATCH", "/api/teams/1/tasks/1/status", body, user.ID, team, task)

	suite.handler.SetStatus(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Contains(resp, "reward")
	reward := resp["reward"].(map[string]interface{})
	assert.Equal(suite.T(), float64(20), reward["xp_earned"])
	assert.Equal(suite.T(), float64(1), reward["streak"])

	taskResp := resp["task"].(map[string]interface{})
	assert.Equal(suite.T(), "done", taskResp["status"])
	assert.Equal(suite.T(), true, taskResp["completed"])
}

func (suite *TaskHandlerTestSuite) TestSetStatus_DoubleCompleteConflicts() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	task := suite.createTestTask(team.ID, user.ID, "Ship it")

	body, _ := json.Marshal(map[string]interface{}{"status": "done"})
	c, w := suite.createContext("PATCH", "/api/teams/1/tasks/1/status", body, user.ID, team, task)
	suite.handler.SetStatus(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createContext("PATCH", "/api/teams/1/tasks/1/status", body, user.ID, team, task)
	suite.handler.SetStatus(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSetStatus_UnknownStatus() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	task := suite.createTestTask(team.ID, user.ID, "Ship it")

	body, _ := json.Marshal(map[string]interface{}{"status": "paused"})
	c, w := suite.createContext("PATCH", "/api/teams/1/tasks/1/status", body, user.ID, team, task)

	suite.handler.SetStatus(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSetStatus_BlockedCarriesNote() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	task := suite.createTestTask(team.ID, user.ID, "Ship it")

	body, _ := json.Marshal(map[string]interface{}{
		"status":      "blocked",
		"blockerNote": "waiting on design",
	})
	c, w := suite.createContext("PATCH", "/api/teams/1/tasks/1/status", body, user.ID, team, task)

	suite.handler.SetStatus(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	taskResp := resp["task"].(map[string]interface{})
	assert.Equal(suite.T(), "blocked", taskResp["status"])
	assert.Equal(suite.T(), "waiting on design", taskResp["blocker_note"])
}

func (suite *TaskHandlerTestSuite) TestAddDependency_CycleReturns422() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	a := suite.createTestTask(team.ID, user.ID, "A")
	b := suite.createTestTask(team.ID, user.ID, "B")

	body, _ := json.Marshal(map[string]interface{}{"depends_on_id": b.ID})
	c, w := suite.createContext("POST", "/api/teams/1/tasks/1/dependencies", body, user.ID, team, a)
	suite.handler.AddDependency(c)
	suite.Require().Equal(http.StatusCreated, w.Code)

	body, _ = json.Marshal(map[string]interface{}{"depends_on_id": a.ID})
	c, w = suite.createContext("POST", "/api/teams/1/tasks/2/dependencies", body, user.ID, team, b)
	suite.handler.AddDependency(c)

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *TaskHandlerTestSuite) TestAddComment_Success() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	task := suite.createTestTask(team.ID, user.ID, "Ship it")

	body, _ := json.Marshal(map[string]interface{}{"content": "On it"})
	c, w := suite.createContext("POST", "/api/teams/1/tasks/1/comments", body, user.ID, team, task)

	suite.handler.AddComment(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var resp map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "On it", resp["content"])
}

func (suite *TaskHandlerTestSuite) TestLinkExtracted_LogsSkippedLinks() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)
	a := suite.createTestTask(team.ID, user.ID, "A")
	b := suite.createTestTask(team.ID, user.ID, "B")

	core, logs := observer.New(zapcore.WarnLevel)
	h := NewTaskHandler(
		suite.handler.taskService,
		suite.handler.depService,
		suite.handler.commentService,
		suite.handler.aiService,
		suite.handler.teamService,
		logger.FromZap(zap.New(core)),
	)

	extracted := []services.ExtractedTask{
		{Title: "A", DependsOnTitles: []string{"B"}},
		{Title: "B", DependsOnTitles: []string{"A"}},
	}
	byTitle := map[string]uint64{"a": a.ID, "b": b.ID}

	h.linkExtracted(team.ID, user.ID, extracted, byTitle)

	// A->B lands, the reverse hint closes a cycle and is skipped with a log.
	var count int64
	suite.db.Model(&models.TaskDependency{}).Where("team_id = ?", team.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
	assert.Equal(suite.T(), 1, logs.FilterMessage("skipping extracted dependency link").Len())
}

func (suite *TaskHandlerTestSuite) TestExtractTasks_Unconfigured() {
	user := suite.createTestUser("alice")
	team := suite.createTestTeam("Team", user.ID)

	body, _ := json.Marshal(map[string]interface{}{"text": "meeting notes"})
	c, w := suite.createContext("POST", "/api/teams/1/tasks/extract", body, user.ID, team, nil)

	suite.handler.ExtractTasks(c)

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_ForbiddenForPlainMember() {
	admin := suite.createTestUser("alice")
	member := suite.createTestUser("bob")
	team := suite.createTestTeam("Team", admin.ID)
	suite.db.Create(&models.TeamMember{
		TeamID:   team.ID,
		UserID:   member.ID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	})
	task := suite.createTestTask(team.ID, admin.ID, "Ship it")

	c, w := suite.createContext("DELETE", "/api/teams/1/tasks/1", nil, member.ID, team, task)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
