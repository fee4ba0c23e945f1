package model

import "time"

// Conversation 多人会话，成员关系走 many2many 连接表。
// 会话创建后不可变，成员只增不减。
type Conversation struct {
	ID           uint   `gorm:"primaryKey"`
	Participants []User `gorm:"many2many:conversation_participants"`
	CreatedAt    time.Time
}

func (Conversation) TableName() string { return "conversations" }
