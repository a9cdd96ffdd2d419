package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/permission"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

type DashboardTotals struct {
	Users         int64 `json:"users"`
	Novels        int64 `json:"novels"`
	Chapters      int64 `json:"chapters"`
	Subscriptions int64 `json:"subscriptions"`
}

type DashboardStats struct {
	Totals         DashboardTotals  `json:"totals"`
	RecentUsers    []*model.User    `json:"recent_users"`
	RecentNovels   []*model.Novel   `json:"recent_novels"`
	RecentChapters []*model.Chapter `json:"recent_chapters"`
	TopNovels      []*model.Novel   `json:"top_novels"`
}

type AdminService interface {
	DashboardStats(ctx context.Context, caller Caller) (*DashboardStats, error)
	// ReconcileCounters 按实际记录修正计数列，返回修正前有偏差的小说
	ReconcileCounters(ctx context.Context, caller Caller) ([]repository.CounterDrift, error)
}

type adminService struct {
	users     repository.UserRepository
	novels    repository.NovelRepository
	chapters  repository.ChapterRepository
	relations repository.RelationRepository
}

func NewAdminService(
	users repository.UserRepository,
	novels repository.NovelRepository,
	chapters repository.ChapterRepository,
	relations repository.RelationRepository,
) AdminService {
	return &adminService{users: users, novels: novels, chapters: chapters, relations: relations}
}

func (s *adminService) DashboardStats(ctx context.Context, caller Caller) (*DashboardStats, error) {
	if !permission.CanAdminister(caller.Role) {
		return nil, apperr.Forbidden("admin role required")
	}
	var (
		out DashboardStats
		err error
	)
	if out.Totals.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if out.Totals.Novels, err = s.novels.Count(ctx); err != nil {
		return nil, err
	}
	if out.Totals.Chapters, err = s.chapters.Count(ctx); err != nil {
		return nil, err
	}
	if out.Totals.Subscriptions, err = s.relations.Count(ctx, model.RelationSubscription); err != nil {
		return nil, err
	}
	if out.RecentUsers, err = s.users.Recent(ctx, 5); err != nil {
		return nil, err
	}
	if out.RecentNovels, err = s.novels.Recent(ctx, 5); err != nil {
		return nil, err
	}
	if out.RecentChapters, err = s.chapters.Recent(ctx, 5); err != nil {
		return nil, err
	}
	if out.TopNovels, err = s.novels.TopByViews(ctx, 10); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *adminService) ReconcileCounters(ctx context.Context, caller Caller) ([]repository.CounterDrift, error) {
	if !permission.CanAdminister(caller.Role) {
		return nil, apperr.Forbidden("admin role required")
	}
	drifts, err := s.novels.ReconcileCounters(ctx)
	if err != nil {
		return nil, err
	}
	if len(drifts) > 0 {
		logger.Warn("counter drift repaired", zap.Int("novels", len(drifts)), zap.Uint("by", caller.ID))
	}
	return drifts, nil
}
