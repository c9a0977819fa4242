package moderation

import (
	"context"
	"testing"
	"time"

	"chatserver/internal/config"
	"chatserver/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestIsBanned_ActiveBanReturnsWarning(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	till := time.Now().UTC().Add(2 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "chat_id", "user_id", "last_connect", "cautions", "banned", "banned_till"}).
		AddRow(1, 10, 20, nil, 2, true, till)
	mock.ExpectQuery("SELECT id, chat_id, user_id").WillReturnRows(rows)

	result, err := IsBanned(context.Background(), db, 10, 20)
	require.NoError(t, err)
	require.True(t, result.Banned)
	require.Equal(t, "You are banned!", result.Warning)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsBanned_ExpiredBanIsLiftedLazily(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	till := time.Now().UTC().Add(-2 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "chat_id", "user_id", "last_connect", "cautions", "banned", "banned_till"}).
		AddRow(1, 10, 20, nil, 2, true, till)
	mock.ExpectQuery("SELECT id, chat_id, user_id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE chats_users SET banned = FALSE").WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := IsBanned(context.Background(), db, 10, 20)
	require.NoError(t, err)
	require.False(t, result.Banned)
	require.Empty(t, result.Warning)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCaution_EscalatesFromZeroToOne(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "chat_id", "user_id", "last_connect", "cautions", "banned", "banned_till"}).
		AddRow(1, 10, 20, nil, 0, false, nil)
	mock.ExpectQuery("SELECT id, chat_id, user_id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE chats_users SET cautions = \\$3").WithArgs(int64(10), int64(20), 1).WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := AddCaution(context.Background(), db, 10, 20, 4)
	require.NoError(t, err)
	require.False(t, result.AlreadyBanned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCaution_ThirdReportBans(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "chat_id", "user_id", "last_connect", "cautions", "banned", "banned_till"}).
		AddRow(1, 10, 20, nil, 2, false, nil)
	mock.ExpectQuery("SELECT id, chat_id, user_id").WillReturnRows(rows)
	mock.ExpectExec("UPDATE chats_users SET banned = TRUE").WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := AddCaution(context.Background(), db, 10, 20, 4)
	require.NoError(t, err)
	require.False(t, result.AlreadyBanned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCaution_AlreadyBannedShortCircuits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "chat_id", "user_id", "last_connect", "cautions", "banned", "banned_till"}).
		AddRow(1, 10, 20, nil, 2, true, time.Now().UTC().Add(time.Hour))
	mock.ExpectQuery("SELECT id, chat_id, user_id").WillReturnRows(rows)

	result, err := AddCaution(context.Background(), db, 10, 20, 4)
	require.NoError(t, err)
	require.True(t, result.AlreadyBanned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPublicChatRateLimit_UnderLimitIncrements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET messages_in_hour_in_public_chat = messages_in_hour_in_public_chat").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: 1, MessagesInHourInPublicChat: 5}
	cfg := config.RateLimitConfig{PublicChatMessageLimit: 20, PublicChatWindowMin: 60}

	result, err := CheckPublicChatRateLimit(context.Background(), db, user, cfg)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPublicChatRateLimit_OverLimitWithinWindowWarns(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Now().UTC()
	user := &models.User{ID: 1, MessagesInHourInPublicChat: 20, StartChattingInPublicChat: &start}
	cfg := config.RateLimitConfig{PublicChatMessageLimit: 20, PublicChatWindowMin: 60}

	result, err := CheckPublicChatRateLimit(context.Background(), db, user, cfg)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Contains(t, result.Warning, "message limit has been reached")
}

func TestCheckPublicChatRateLimit_OrganicLimitStampsWindowStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET messages_in_hour_in_public_chat = messages_in_hour_in_public_chat \\+ 1, start_chatting_in_public_chat = COALESCE").
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: 1, MessagesInHourInPublicChat: 19, StartChattingInPublicChat: nil}
	cfg := config.RateLimitConfig{PublicChatMessageLimit: 20, PublicChatWindowMin: 60}

	result, err := CheckPublicChatRateLimit(context.Background(), db, user, cfg)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPublicChatRateLimit_ExpiredWindowResets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET messages_in_hour_in_public_chat = 1").WillReturnResult(sqlmock.NewResult(0, 1))

	start := time.Now().UTC().Add(-2 * time.Hour)
	user := &models.User{ID: 1, MessagesInHourInPublicChat: 20, StartChattingInPublicChat: &start}
	cfg := config.RateLimitConfig{PublicChatMessageLimit: 20, PublicChatWindowMin: 60}

	result, err := CheckPublicChatRateLimit(context.Background(), db, user, cfg)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.NoError(t, mock.ExpectationsWereMet())
}
