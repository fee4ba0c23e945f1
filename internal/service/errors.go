package service

import "errors"

// 业务层错误分类，调用方（REST handler 或 WebSocket 网关）
// 据此决定关闭连接、返回状态码还是仅回报错误继续处理。
var (
	ErrInvalidFormat        = errors.New("invalid message format")
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrThrottled            = errors.New("sending messages too fast")
	ErrConversationNotFound = errors.New("conversation not found or unauthorized")
	ErrUsernameTaken        = errors.New("username taken")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
