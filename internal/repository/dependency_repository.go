package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/models"
)

var (
	// ErrDuplicateDependency is returned when the exact edge already exists.
	ErrDuplicateDependency = errors.New("dependency repository: edge already exists")
	// ErrDependencyCycle is returned when inserting the edge would close a
	// cycle in the team's dependency graph.
	ErrDependencyCycle = errors.New("dependency repository: edge would create a cycle")
)

// GormDependencyRepository is a GORM implementation of DependencyRepository
type GormDependencyRepository struct {
	db *gorm.DB
}

// NewDependencyRepository creates a new DependencyRepository
func NewDependencyRepository(db *gorm.DB) DependencyRepository {
	return &GormDependencyRepository{db: db}
}

// Create inserts an edge after checking, inside one transaction, that the
// exact edge does not already exist and that it would not close a cycle in
// the team's graph. The duplicate and cycle checks read the edge set in the
// same transaction as the insert, so they see a consistent snapshot relative
// to this insert.
func (r *GormDependencyRepository) Create(dep *models.TaskDependency) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TaskDependency{}).
			Where("task_id = ? AND depends_on_id = ?", dep.TaskID, dep.DependsOnID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateDependency
		}

		var edges []models.TaskDependency
		if err := tx.Where("team_id = ?", dep.TeamID).Find(&edges).Error; err != nil {
			return err
		}

		// The new edge is safe iff no existing path leads from DependsOnID
		// back to TaskID.
		if reachable(edges, dep.DependsOnID, dep.TaskID) {
			return ErrDependencyCycle
		}

		return tx.Create(dep).Error
	})
}

// reachable reports whether `to` can be reached from `from` by following
// "depends on" edges. Plain BFS over an adjacency list; team graphs are
// small enough that no bound beyond the visited set is needed.
func reachable(edges []models.TaskDependency, from, to uint64) bool {
	adjacency := make(map[uint64][]uint64, len(edges))
	for _, e := range edges {
		adjacency[e.TaskID] = append(adjacency[e.TaskID], e.DependsOnID)
	}

	visited := map[uint64]bool{from: true}
	queue := []uint64{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == to {
			return true
		}

		for _, next := range adjacency[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}

// Remove deletes an edge touching the given task. Removing a nonexistent
// edge is not an error.
func (r *GormDependencyRepository) Remove(teamID, depID, taskID uint64) error {
	return r.db.
		Where("id = ? AND team_id = ? AND (task_id = ? OR depends_on_id = ?)", depID, teamID, taskID, taskID).
		Delete(&models.TaskDependency{}).Error
}

// ListForTask returns the tasks blocking taskID and the tasks it blocks,
// ordered by priority then creation order
func (r *GormDependencyRepository) ListForTask(teamID, taskID uint64) (blockedBy, blocking []DependencyLink, err error) {
	const linkOrder = "CASE t.priority WHEN 'P0' THEN 0 WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END, t.created_at ASC"

	err = r.db.
		Table("task_dependencies AS d").
		Select("d.id AS dep_id, t.id AS task_id, t.title, t.status, t.priority").
		Joins("JOIN tasks t ON t.id = d.depends_on_id AND t.deleted_at IS NULL").
		Where("d.team_id = ? AND d.task_id = ?", teamID, taskID).
		Order(linkOrder).
		Scan(&blockedBy).Error
	if err != nil {
		return nil, nil, err
	}

	err = r.db.
		Table("task_dependencies AS d").
		Select("d.id AS dep_id, t.id AS task_id, t.title, t.status, t.priority").
		Joins("JOIN tasks t ON t.id = d.task_id AND t.deleted_at IS NULL").
		Where("d.team_id = ? AND d.depends_on_id = ?", teamID, taskID).
		Order(linkOrder).
		Scan(&blocking).Error
	if err != nil {
		return nil, nil, err
	}

	return blockedBy, blocking, nil
}
