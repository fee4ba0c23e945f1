package model

import "time"

// Message 不可变消息日志，主键自增即为会话内的单调序号。
// CreatedAt 在落库时由存储赋值，是权威的排序键。
type Message struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID uint   `gorm:"index:idx_msg_conversation,priority:1;not null"`
	SenderID       uint   `gorm:"index;not null"`
	Sender         User   `gorm:"foreignKey:SenderID"`
	Content        string `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index:idx_msg_conversation,priority:2"`
}

func (Message) TableName() string { return "messages" }

// MessageSnapshot 是消息在缓存与 REST 读路径上的统一投影，
// 缓存命中与数据库回退返回完全相同的形状。
type MessageSnapshot struct {
	ID        uint      `json:"id"`
	SenderID  uint      `json:"sender_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot 用发送者用户名构造消息投影。
func (m *Message) Snapshot(senderName string) MessageSnapshot {
	return MessageSnapshot{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Sender:    senderName,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
}
