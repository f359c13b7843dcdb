package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/finwise/internal/model"
)

// DefaultRedisKeyPrefix はRedisセッションキーの既定プレフィックス。
const DefaultRedisKeyPrefix = "finwise:"

// redisSessionRecord はRedisに保存するセッションのJSON表現。
type redisSessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// セッションは "<prefix>session:<id>" にTTL付きで保存し、
// ユーザー単位の一括削除のため "<prefix>user_sessions:<userID>" にIDの集合を保持する。
type RedisSessionRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。prefixが空の場合は既定値を使う。
func NewRedisSessionRepo(client redis.UniversalClient, prefix string) *RedisSessionRepo {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisSessionRepo{client: client, prefix: prefix}
}

func (r *RedisSessionRepo) sessionKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisSessionRepo) userKey(userID string) string {
	return r.prefix + "user_sessions:" + userID
}

// Create はセッションを作成する。TTLは有効期限までの残り時間とする。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	b, err := json.Marshal(redisSessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt.UTC(),
		CreatedAt: session.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// 期限切れのセッションを無期限で残さない
		ttl = time.Second
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(session.ID), b, ttl)
	pipe.SAdd(ctx, r.userKey(session.UserID), session.ID)
	pipe.Expire(ctx, r.userKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	b, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var rec redisSessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !time.Now().Before(rec.ExpiresAt) {
		_ = r.client.Del(ctx, r.sessionKey(id)).Err()
		return nil, nil
	}

	return &model.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	session, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if session != nil {
		pipe.SRem(ctx, r.userKey(session.UserID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *RedisSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired はRedisのTTLで期限切れセッションが消えるため、常に0件を返す。
func (r *RedisSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
