package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/chat-gateway/config"
	"github.com/d60-Lab/chat-gateway/internal/auth"
	"github.com/d60-Lab/chat-gateway/internal/model"
	"github.com/d60-Lab/chat-gateway/internal/repository"
)

// UserService 承担身份提供方角色：注册、登录、令牌刷新。
// 消息网关只消费它签发的令牌，不做任何凭证校验。
type UserService struct {
	users repository.UserRepository
	cfg   *config.Config
}

func NewUserService(users repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{users: users, cfg: cfg}
}

type UserDTO struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func (s *UserService) Register(ctx context.Context, username, email, firstName, lastName, password string) (*UserDTO, error) {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Username: username, Email: email, FirstName: firstName, LastName: lastName, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	dto := toUserDTO(user)
	return &dto, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*UserDTO, *TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	dto := toUserDTO(user)
	return &dto, pair, nil
}

// Refresh 用刷新令牌换发新的令牌对。
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseToken(refreshToken, auth.TokenTypeRefresh, s.cfg.JWT.Secret)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(user)
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*UserDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(user)
	return &dto, nil
}

func (s *UserService) issueTokens(user *model.User) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.ID, user.Username, auth.TokenTypeAccess, s.cfg.JWT.Secret, s.cfg.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateToken(user.ID, user.Username, auth.TokenTypeRefresh, s.cfg.JWT.Secret, s.cfg.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
