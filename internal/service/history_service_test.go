package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryService_NonParticipantGetsNotFound(t *testing.T) {
	env := setupEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	mallory := env.seedUser(t, "mallory")
	ctx := context.Background()

	conv, err := env.convRepo.Create(ctx, []uint{alice.ID, bob.ID})
	require.NoError(t, err)

	hist := NewHistoryService(env.convRepo, env.msgRepo, env.msgCache)

	_, _, err = hist.GetMessages(ctx, mallory.ID, conv.ID)
	require.ErrorIs(t, err, ErrConversationNotFound)

	// 会话不存在与非成员不可区分
	_, _, err = hist.GetMessages(ctx, alice.ID, 9999)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestHistoryService_EmptyConversation(t *testing.T) {
	env := setupEnv(t)
	alice := env.seedUser(t, "alice")
	ctx := context.Background()

	conv, err := env.convRepo.Create(ctx, []uint{alice.ID})
	require.NoError(t, err)

	hist := NewHistoryService(env.convRepo, env.msgRepo, env.msgCache)

	snaps, source, err := hist.GetMessages(ctx, alice.ID, conv.ID)
	require.NoError(t, err)
	require.Empty(t, snaps)
	require.Equal(t, SourceDatabase, source)
}

func TestHistoryService_DatabaseFallbackThenBackfill(t *testing.T) {
	env := setupEnv(t)
	alice := env.seedUser(t, "alice")
	ctx := context.Background()

	conv, err := env.convRepo.Create(ctx, []uint{alice.ID})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := env.msgRepo.Create(ctx, conv.ID, alice.ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	hist := NewHistoryService(env.convRepo, env.msgRepo, env.msgCache)

	// 缓存为空，首次读取走数据库，升序返回
	snaps, source, err := hist.GetMessages(ctx, alice.ID, conv.ID)
	require.NoError(t, err)
	require.Equal(t, SourceDatabase, source)
	require.Len(t, snaps, 3)
	require.Equal(t, "msg 1", snaps[0].Content)
	require.Equal(t, "msg 3", snaps[2].Content)
	require.Equal(t, "alice", snaps[0].Sender)

	// 异步回填落地后，第二次读取命中缓存
	key := fmt.Sprintf("conversation:%d:messages", conv.ID)
	require.Eventually(t, func() bool {
		return env.mr.Exists(key)
	}, 2*time.Second, 10*time.Millisecond)

	snaps2, source2, err := hist.GetMessages(ctx, alice.ID, conv.ID)
	require.NoError(t, err)
	require.Equal(t, SourceCache, source2)
	require.Len(t, snaps2, 3)
	// 两条路径返回的内容与顺序一致
	for i := range snaps {
		require.Equal(t, snaps[i].ID, snaps2[i].ID)
		require.Equal(t, snaps[i].Content, snaps2[i].Content)
		require.Equal(t, snaps[i].Sender, snaps2[i].Sender)
	}
}

func TestHistoryService_CacheHitAfterIngest(t *testing.T) {
	env := setupEnv(t)
	alice := env.seedUser(t, "alice")
	ctx := context.Background()

	conv, err := env.convRepo.Create(ctx, []uint{alice.ID})
	require.NoError(t, err)

	sess := Session{UserID: alice.ID, Username: "alice", ConversationID: conv.ID}
	require.NoError(t, env.chat.Ingest(ctx, sess, []byte(`{"message":"hello"}`)))

	hist := NewHistoryService(env.convRepo, env.msgRepo, env.msgCache)

	snaps, source, err := hist.GetMessages(ctx, alice.ID, conv.ID)
	require.NoError(t, err)
	require.Equal(t, SourceCache, source)
	require.Len(t, snaps, 1)
	require.Equal(t, "hello", snaps[0].Content)
	require.Equal(t, "alice", snaps[0].Sender)
}

func TestHistoryService_CacheOutageFallsBackToDatabase(t *testing.T) {
	env := setupEnv(t)
	alice := env.seedUser(t, "alice")
	ctx := context.Background()

	conv, err := env.convRepo.Create(ctx, []uint{alice.ID})
	require.NoError(t, err)
	_, err = env.msgRepo.Create(ctx, conv.ID, alice.ID, "hello")
	require.NoError(t, err)

	hist := NewHistoryService(env.convRepo, env.msgRepo, env.msgCache)

	env.mr.SetError("cache down")
	defer env.mr.SetError("")

	snaps, source, err := hist.GetMessages(ctx, alice.ID, conv.ID)
	require.NoError(t, err)
	require.Equal(t, SourceDatabase, source)
	require.Len(t, snaps, 1)
}
