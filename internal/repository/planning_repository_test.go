package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

func newPlanningRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows(id string, status models.SubmissionStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "plan_id", "teacher_id", "status", "review_comments", "reviewer_id", "submitted_at", "reviewed_at"}).
		AddRow(id, "plan-1", "teacher-1", string(status), nil, nil, time.Now(), nil)
}

func TestPlanningRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()

	repo := NewPlanningRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.PlanningSubmission{PlanID: "plan-1", TeacherID: "teacher-1"}
	require.NoError(t, repo.Create(context.Background(), submission))
	require.NotEmpty(t, submission.ID)
	require.Equal(t, models.SubmissionStatusPending, submission.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plan_id, teacher_id")).
		WithArgs(submission.ID).
		WillReturnRows(submissionRows(submission.ID, models.SubmissionStatusPending))

	found, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryLatestByPlan(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()

	repo := NewPlanningRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC LIMIT 1")).
		WithArgs("plan-1").
		WillReturnRows(submissionRows("sub-2", models.SubmissionStatusChangesRequested))

	latest, err := repo.LatestByPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Equal(t, "sub-2", latest.ID)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY submitted_at DESC LIMIT 1")).
		WithArgs("plan-9").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.LatestByPlan(context.Background(), "plan-9")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryHasPending(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()

	repo := NewPlanningRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM plan_submissions")).
		WithArgs("plan-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	pending, err := repo.HasPending(context.Background(), "plan-1")
	require.NoError(t, err)
	require.True(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanningRepositoryReviewOnlyPending(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()

	repo := NewPlanningRepository(db)
	comments := "falta el objetivo de la semana 3"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Review(context.Background(), ReviewParams{
		ID:         "sub-1",
		Status:     models.SubmissionStatusChangesRequested,
		ReviewerID: "director-1",
		ReviewedAt: time.Now(),
		Comments:   &comments,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_submissions")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Review(context.Background(), ReviewParams{
		ID:         "sub-1",
		Status:     models.SubmissionStatusApproved,
		ReviewerID: "director-1",
		ReviewedAt: time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
