package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

type UpdateProfileInput struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error)
}

type userService struct {
	users     repository.UserRepository
	relations repository.RelationRepository
	cache     *cache.SubscriberCache
}

// NewUserService cache 可为 nil
func NewUserService(users repository.UserRepository, relations repository.RelationRepository, subscriberCache *cache.SubscriberCache) UserService {
	return &userService{users: users, relations: relations, cache: subscriberCache}
}

func (s *userService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.users.UpdateFullName(ctx, userID, in.FullName); err != nil {
		return nil, err
	}
	// 缓存的订阅者列表里带着姓名快照
	if s.cache != nil {
		ids, err := s.relations.SubscribedNovelIDs(ctx, userID)
		if err != nil {
			logger.Warn("list subscribed novels for cache invalidation failed", zap.Uint("user_id", userID), zap.Error(err))
		} else {
			s.cache.InvalidateMany(ctx, ids)
		}
	}
	return s.users.GetByID(ctx, userID)
}
