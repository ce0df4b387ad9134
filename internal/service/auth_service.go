package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/model"
	"slot-swapper/backend/internal/repository"
	"slot-swapper/backend/pkg/jwt"
	"slot-swapper/backend/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
)

// AuthService 认证业务接口
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Token 加入黑名单；Redis 不可用时静默降级
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(repo *repository.Repository, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) AuthService {
	return &authService{repo: repo, jwtMgr: jwtMgr, rdb: rdb, logger: logger}
}

// ────────────────────── Signup ──────────────────────

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error) {
	// 1. 检查邮箱是否占用
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 哈希密码 (bcrypt)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return s.issueToken(user)
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.rdb == nil {
		// Redis 不可用，黑名单降级为无操作
		return nil
	}
	if err := s.rdb.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", userID), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ── 内部辅助方法 ──

func (s *authService) issueToken(user *model.User) (*dto.TokenResponse, error) {
	token, err := s.jwtMgr.GenerateToken(user.UserID, user.Name)
	if err != nil {
		s.logger.Error("生成 Token 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		Token: token,
		User:  toUserResponse(user),
	}, nil
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:    user.UserID,
		Name:  user.Name,
		Email: user.Email,
	}
}
