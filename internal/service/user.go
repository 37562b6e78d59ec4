package service

import (
	"errors"

	"invoicemanager/internal/config"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("用户名或密码错误")

type UserService struct {
	repo repository.UserRepositoryInterface
}

// NewUserServiceWithRepo 使用指定的仓库实现创建 UserService（用于依赖注入和测试）
func NewUserServiceWithRepo(repo repository.UserRepositoryInterface) *UserService {
	return &UserService{
		repo: repo,
	}
}

// NewUserService 创建使用默认仓库的 UserService（便利方法）
func NewUserService() *UserService {
	return NewUserServiceWithRepo(repository.NewUserRepository())
}

func (s *UserService) Login(req *model.LoginRequest) (*model.User, string, error) {
	user, err := s.repo.GetByUsername(req.Username)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	jwtService := NewJWTService()
	token, err := jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *UserService) EnsureAdmin() error {
	cfg := config.Get()

	exists, err := s.repo.ExistsByUsername(cfg.AdminUsername)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username:     cfg.AdminUsername,
		PasswordHash: string(hashedPassword),
		IsAdmin:      true,
	}

	if err := s.repo.Create(admin); err != nil {
		return err
	}

	log.Infof("user: admin account created: %s", cfg.AdminUsername)
	return nil
}

func (s *UserService) ChangePassword(userID string, oldPassword, newPassword string) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("用户不存在")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("旧密码错误")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.repo.UpdatePassword(userID, string(hashedPassword))
}
