package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/models"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestGormTeamRepository_CountAdmins(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTeamRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "team_members"`).
		WithArgs(uint64(7), string(models.RoleAdmin)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountAdmins(7)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTeamRepository_FindByCode(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTeamRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "code"}).
		AddRow(3, "Quest Squad", "AB12CD")
	mock.ExpectQuery(`SELECT (.+) FROM "teams" WHERE code = (.+)`).
		WillReturnRows(rows)

	team, err := repo.FindByCode("AB12CD")

	require.NoError(t, err)
	assert.Equal(t, uint64(3), team.ID)
	assert.Equal(t, "Quest Squad", team.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTeamRepository_FindMember_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTeamRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM "team_members"`).
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "user_id"}))

	_, err := repo.FindMember(3, 9)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
