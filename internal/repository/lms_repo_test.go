package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-go-api/internal/models"
)

func TestLmsRepositoryListRestrictsToActiveMemberships(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLmsRepository(db)
	enrollments := NewEnrollmentRepository(db)
	ctx := context.Background()

	student := seedUser(t, db, models.RoleStudent)
	algebra := seedLms(t, db, "MATH1")
	biology := seedLms(t, db, "BIO1")
	chemistry := seedLms(t, db, "CHEM1")

	require.NoError(t, enrollments.Create(ctx, &models.Enrollment{LmsID: algebra.ID, UserID: student.ID, Role: models.RoleStudent, Status: models.EnrollmentStatusActive}))
	require.NoError(t, enrollments.Create(ctx, &models.Enrollment{LmsID: biology.ID, UserID: student.ID, Role: models.RoleStudent, Status: models.EnrollmentStatusPendingPayment}))

	items, total, err := repo.List(ctx, LmsFilter{MemberID: &student.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, algebra.ID, items[0].ID)

	all, total, err := repo.List(ctx, LmsFilter{Page: Page{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, chemistry.ID))
	_, err = repo.GetByID(ctx, chemistry.ID)
	require.Error(t, err)
}

func TestEnrollmentRepositoryDuplicateIsRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, models.RoleStudent)
	lms := seedLms(t, db, "HIST1")

	require.NoError(t, repo.Create(ctx, &models.Enrollment{LmsID: lms.ID, UserID: user.ID, Role: models.RoleStudent, Status: models.EnrollmentStatusActive}))
	require.Error(t, repo.Create(ctx, &models.Enrollment{LmsID: lms.ID, UserID: user.ID, Role: models.RoleStudent, Status: models.EnrollmentStatusActive}))
}

func TestBillingColumnNames(t *testing.T) {
	db := setupTestDB(t)

	require.True(t, db.Migrator().HasColumn(&models.Lms{}, "enrollment_fee_idr"))
	require.True(t, db.Migrator().HasColumn(&models.Invoice{}, "amount_idr"))
	require.False(t, db.Migrator().HasColumn(&models.Lms{}, "enrollment_fee_id_r"))
}
