package service_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/linemk/tribal-market/internal/service"
)

func newChatFixture(t *testing.T) (service.ChatService, *fakeChatRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newFakeChatRepo()
	return service.NewChatService(newTestLogger(), db, repo), repo, mock
}

func TestChatService_Conversation(t *testing.T) {
	svc, repo, mock := newChatFixture(t)
	ctx := context.Background()
	user := service.Actor{UserID: 1, Role: models.RoleViewer}
	admin := service.Actor{UserID: 9, Role: models.RoleAdmin}

	mock.ExpectBegin()
	mock.ExpectCommit()
	conv, err := svc.Start(ctx, user, "Delivery delay", "Where is my order?")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationOpen, conv.Status)
	require.Len(t, repo.messages, 1)

	mock.ExpectBegin()
	mock.ExpectCommit()
	reply, err := svc.Send(ctx, admin, conv.ID, "It ships tomorrow")
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, reply.SenderID)

	// пользователь опрашивает новые сообщения после первого
	msgs, err := svc.Messages(ctx, user, conv.ID, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "It ships tomorrow", msgs[0].Body)
	assert.True(t, repo.messages[1].IsRead)
	assert.False(t, repo.messages[0].IsRead)

	require.NoError(t, svc.Close(ctx, user, conv.ID))
	_, err = svc.Send(ctx, user, conv.ID, "thanks")
	assert.ErrorIs(t, err, service.ErrConversationClosed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChatService_Access(t *testing.T) {
	svc, repo, mock := newChatFixture(t)
	ctx := context.Background()
	repo.convs[1] = &models.ChatConversation{ID: 1, UserID: 1, Subject: "Refund", Status: models.ConversationOpen}
	repo.convs[2] = &models.ChatConversation{ID: 2, UserID: 2, Subject: "Size", Status: models.ConversationOpen}
	stranger := service.Actor{UserID: 2, Role: models.RoleViewer}

	_, err := svc.Messages(ctx, stranger, 1, 0)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.Send(ctx, stranger, 1, "hi")
	assert.ErrorIs(t, err, service.ErrForbidden)

	assert.ErrorIs(t, svc.Close(ctx, stranger, 1), service.ErrForbidden)

	_, err = svc.Messages(ctx, stranger, 42, 0)
	assert.ErrorIs(t, err, service.ErrConversationNotFound)

	own, total, err := svc.List(ctx, stranger, nil, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, int64(2), own[0].ID)

	_, total, err = svc.List(ctx, service.Actor{UserID: 9, Role: models.RoleAdmin}, nil, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}
