package repository

import (
	"context"
	"math/rand"
	"testing"

	"github.com/d60-Lab/novel-engine/internal/model"
)

// 随机用户对随机小说做点赞/取消，计数与明细同事务
func BenchmarkRelationToggle(b *testing.B) {
	db := setupTestDB(b)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	editor := seedUser(b, db, model.RoleEditor)
	novels := make([]*model.Novel, 20)
	for i := range novels {
		novels[i] = seedNovel(b, db, editor.ID, "bench")
	}
	users := make([]*model.User, 500)
	for i := range users {
		users[i] = seedUser(b, db, model.RoleUser)
	}

	rnd := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		u := users[rnd.Intn(len(users))].ID
		n := novels[rnd.Intn(len(novels))].PublicID
		if err := repo.Add(ctx, model.RelationLike, u, n); err != nil {
			_ = repo.Remove(ctx, model.RelationLike, u, n)
		}
	}
}

// 一本小说 N 个订阅者：全量订阅者列表 vs 扇出用的键集分页
func BenchmarkSubscriberQueries(b *testing.B) {
	db := setupTestDB(b)
	repo := NewRelationRepository(db)
	ctx := context.Background()

	const N = 2000
	editor := seedUser(b, db, model.RoleEditor)
	novel := seedNovel(b, db, editor.ID, "bench")
	for i := 0; i < N; i++ {
		u := seedUser(b, db, model.RoleUser)
		if err := repo.Add(ctx, model.RelationSubscription, u.ID, novel.PublicID); err != nil {
			b.Fatalf("subscribe: %v", err)
		}
	}

	b.ResetTimer()
	b.Run("ListSubscribers", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = repo.ListSubscribers(ctx, novel.PublicID)
		}
	})

	b.Run("ListSubscriberIDsPaged", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var after uint
			for {
				page, err := repo.ListSubscriberIDs(ctx, novel.PublicID, after, 500)
				if err != nil || len(page) == 0 {
					break
				}
				after = page[len(page)-1].ID
			}
		}
	})
}
