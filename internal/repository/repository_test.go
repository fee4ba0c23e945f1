package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/chat-gateway/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库必须保持单连接，否则每个连接各自一份空库
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{}))
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, names ...string) []model.User {
	t.Helper()
	users := make([]model.User, len(names))
	for i, name := range names {
		users[i] = model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	}
	require.NoError(t, db.Create(&users).Error)
	return users
}

func TestMessageRepository_CreateAssignsMonotonicIDs(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, "alice")
	msgs := NewMessageRepository(db)
	ctx := context.Background()

	var lastID uint
	for i := 0; i < 5; i++ {
		m, err := msgs.Create(ctx, 1, users[0].ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		require.Greater(t, m.ID, lastID)
		require.False(t, m.CreatedAt.IsZero())
		lastID = m.ID
	}
}

func TestMessageRepository_ListRecentAscendingCapped(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, "alice")
	msgs := NewMessageRepository(db)
	ctx := context.Background()

	for i := 1; i <= 120; i++ {
		_, err := msgs.Create(ctx, 1, users[0].ID, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	got, err := msgs.ListRecent(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, got, 100)
	// 最近 100 条按升序返回
	require.Equal(t, "msg 21", got[0].Content)
	require.Equal(t, "msg 120", got[99].Content)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i].ID, got[i-1].ID)
	}
	// Sender 预加载可用
	require.Equal(t, "alice", got[0].Sender.Username)
}

func TestMessageRepository_ListRecentEmptyConversation(t *testing.T) {
	db := setupDB(t)
	msgs := NewMessageRepository(db)

	got, err := msgs.ListRecent(context.Background(), 99, 100)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestConversationRepository_CreateDeduplicatesParticipants(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, "alice", "bob")
	convs := NewConversationRepository(db)
	ctx := context.Background()

	conv, err := convs.Create(ctx, []uint{users[0].ID, users[1].ID, users[0].ID})
	require.NoError(t, err)
	require.Len(t, conv.Participants, 2)
}

func TestConversationRepository_IsParticipant(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, "alice", "bob", "mallory")
	convs := NewConversationRepository(db)
	ctx := context.Background()

	conv, err := convs.Create(ctx, []uint{users[0].ID, users[1].ID})
	require.NoError(t, err)

	ok, err := convs.IsParticipant(ctx, conv.ID, users[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = convs.IsParticipant(ctx, conv.ID, users[2].ID)
	require.NoError(t, err)
	require.False(t, ok)

	// 会话不存在与非成员同样返回 false
	ok, err = convs.IsParticipant(ctx, 9999, users[0].ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConversationRepository_ListByUser(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, "alice", "bob", "carol")
	convs := NewConversationRepository(db)
	ctx := context.Background()

	c1, err := convs.Create(ctx, []uint{users[0].ID, users[1].ID})
	require.NoError(t, err)
	_, err = convs.Create(ctx, []uint{users[1].ID, users[2].ID})
	require.NoError(t, err)

	got, err := convs.ListByUser(ctx, users[0].ID, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, c1.ID, got[0].ID)

	got, err = convs.ListByUser(ctx, users[1].ID, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestUserRepository_UniqueUsername(t *testing.T) {
	db := setupDB(t)
	usersRepo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, usersRepo.Create(ctx, &model.User{Username: "alice", PasswordHash: "x"}))

	taken, err := usersRepo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = usersRepo.ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	require.False(t, taken)

	u, err := usersRepo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
}

func setupBenchDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return db
}

func BenchmarkMessageWriteAndRecentRead(b *testing.B) {
	db := setupBenchDB(b)
	msgs := NewMessageRepository(db)
	ctx := context.Background()

	u := model.User{Username: "u0", PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		b.Fatalf("seed user: %v", err)
	}
	// 预热一批历史消息
	for i := 0; i < 500; i++ {
		if _, err := msgs.Create(ctx, 1, u.ID, fmt.Sprintf("warmup %d", i)); err != nil {
			b.Fatalf("seed message: %v", err)
		}
	}

	b.ResetTimer()
	b.Run("Create", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = msgs.Create(ctx, 1, u.ID, "bench message")
		}
	})
	b.Run("ListRecent", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = msgs.ListRecent(ctx, 1, 100)
		}
	})
}
