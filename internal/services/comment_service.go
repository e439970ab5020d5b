package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

var ErrCommentBodyRequired = errors.New("comment body is required")

// CommentService manages task comments.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	teamRepo    repository.TeamRepository
	activity    *ActivityService
}

// NewCommentService creates a new CommentService
func NewCommentService(
	commentRepo repository.CommentRepository,
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
	activity *ActivityService,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		teamRepo:    teamRepo,
		activity:    activity,
	}
}

// AddComment appends a comment to a task
func (s *CommentService) AddComment(teamID, taskID, authorID uint64, body string) (*models.TaskComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentBodyRequired
	}

	if err := s.ensureMember(teamID, authorID); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByIDInTeam(taskID, teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	comment := &models.TaskComment{
		TaskID:  taskID,
		TeamID:  teamID,
		UserID:  authorID,
		Content: body,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID:    teamID,
		UserID:    authorID,
		Action:    models.ActionCommentAdded,
		TaskID:    &task.ID,
		TaskTitle: task.Title,
	})

	return comment, nil
}

// ListComments returns a task's comments oldest-first
func (s *CommentService) ListComments(teamID, taskID, actorID uint64) ([]models.TaskComment, error) {
	if err := s.ensureMember(teamID, actorID); err != nil {
		return nil, err
	}

	if _, err := s.taskRepo.FindByIDInTeam(taskID, teamID); err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) ensureMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}
