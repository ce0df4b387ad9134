package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"slot-swapper/backend/config"
	"slot-swapper/backend/internal/dto"
	"slot-swapper/backend/internal/repository"
	"slot-swapper/backend/pkg/jwt"
)

func setupTestAuthService() (AuthService, *mockUserRepo) {
	userRepo := newMockUserRepo()
	repo := &repository.Repository{
		User: userRepo,
		Slot: newMockSlotRepo(),
		Swap: newMockSwapRepo(),
	}
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-0123456789",
		AccessTokenTTL: time.Hour,
	})
	svc := NewAuthService(repo, jwtMgr, nil, zap.NewNop())
	return svc, userRepo
}

func TestAuthService_Signup_Login(t *testing.T) {
	svc, _ := setupTestAuthService()

	signed, err := svc.Signup(context.Background(), &dto.SignupRequest{
		Name:     "张三",
		Email:    "zhangsan@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Signup 应成功: %v", err)
	}
	if signed.Token == "" {
		t.Error("注册成功应返回 Token")
	}
	if signed.User == nil || signed.User.Email != "zhangsan@example.com" {
		t.Fatalf("注册响应用户信息不正确: %+v", signed.User)
	}

	logged, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "zhangsan@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if logged.User.ID != signed.User.ID {
		t.Errorf("登录用户应与注册用户一致，期望=%s 实际=%s", signed.User.ID, logged.User.ID)
	}
}

func TestAuthService_Signup_EmailTaken(t *testing.T) {
	svc, _ := setupTestAuthService()

	req := &dto.SignupRequest{Name: "张三", Email: "dup@example.com", Password: "password123"}
	if _, err := svc.Signup(context.Background(), req); err != nil {
		t.Fatalf("首次注册应成功: %v", err)
	}

	_, err := svc.Signup(context.Background(), &dto.SignupRequest{
		Name: "李四", Email: "dup@example.com", Password: "otherpass456",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("期望 ErrEmailTaken，实际: %v", err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := setupTestAuthService()

	if _, err := svc.Signup(context.Background(), &dto.SignupRequest{
		Name: "张三", Email: "zhangsan@example.com", Password: "password123",
	}); err != nil {
		t.Fatalf("Signup 应成功: %v", err)
	}

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "zhangsan@example.com",
		Password: "wrongpassword",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _ := setupTestAuthService()

	// 邮箱不存在与密码错误返回同一错误，避免探测注册邮箱
	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	svc, _ := setupTestAuthService()

	signed, err := svc.Signup(context.Background(), &dto.SignupRequest{
		Name: "张三", Email: "zhangsan@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("Signup 应成功: %v", err)
	}

	user, err := svc.GetCurrentUser(context.Background(), signed.User.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}
	if user.Name != "张三" {
		t.Errorf("期望用户名 张三，实际=%s", user.Name)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "nonexistent"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestAuthService_Logout_NoRedis(t *testing.T) {
	svc, _ := setupTestAuthService()

	// Redis 未配置时登出静默降级，不报错
	if err := svc.Logout(context.Background(), "some-jti", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("无 Redis 时 Logout 应静默成功: %v", err)
	}
}
