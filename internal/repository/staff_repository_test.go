package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/feedback-api/internal/models"
)

func staffRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow(int64(7), "agent@example.com", "hash", "Alex Vermeer", string(models.RoleAgent), true, now, now, now)
}

func TestStaffRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, active, last_login, created_at, updated_at FROM staff WHERE email = $1 LIMIT 1")).
		WithArgs("agent@example.com").
		WillReturnRows(staffRows(time.Now()))

	staff, err := repo.FindByEmail(context.Background(), "agent@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), staff.ID)
	assert.Equal(t, models.RoleAgent, staff.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email")).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStaffRepositoryCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{StaffID: 7, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	err := repo.CreateRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryDeleteExpiredRefreshTokens(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	cutoff := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpiredRefreshTokens(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()
	repo := NewStaffRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	staffID := int64(7)
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{
		StaffID:  &staffID,
		Action:   models.AuditActionRecordClaim,
		Resource: "record",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
