package services

import (
	"context"
	stderrors "errors"

	"github.com/tamyadav31/BOT-GPT/internal/errors"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserService 用户服务
type UserService struct {
	db *gorm.DB
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewSystemError(errors.ErrCodeInternalServer, "failed to hash password").WithCause(err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.NewBusinessError(errors.ErrCodeConflict, "email already registered")
		}
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to create user").WithCause(err)
	}

	logger.Info("User registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Authenticate 校验邮箱和密码
func (s *UserService) Authenticate(ctx context.Context, req LoginRequest) (*models.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewBusinessError(errors.ErrCodeUnauthorized, "invalid email or password")
		}
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load user").WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.NewBusinessError(errors.ErrCodeUnauthorized, "invalid email or password")
	}

	return &user, nil
}

// GetUser 按ID获取用户
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("user")
		}
		return nil, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to load user").WithCause(err)
	}
	return &user, nil
}

// ListUsers 分页列出用户
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to count users").WithCause(err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id asc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, errors.NewSystemError(errors.ErrCodeDatabaseError, "failed to list users").WithCause(err)
	}

	return users, total, nil
}
