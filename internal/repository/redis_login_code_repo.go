package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"givto/internal/models"
)

const redisPutRetries = 5

// RedisLoginCodeRepository keeps login codes in Redis. Each code lives under
// its digest with the code's own expiry, and a per-email pointer names the
// current digest so a new code can evict the previous one.
type RedisLoginCodeRepository struct {
	rdb *redis.Client
}

// NewRedisLoginCodeRepository creates a Redis-backed login code store
func NewRedisLoginCodeRepository(rdb *redis.Client) *RedisLoginCodeRepository {
	return &RedisLoginCodeRepository{rdb: rdb}
}

func loginCodeKey(codeHash string) string { return fmt.Sprintf("givto:login_code:%s", codeHash) }
func loginEmailKey(email string) string   { return fmt.Sprintf("givto:login_code:email:%s", email) }

type redisLoginCode struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Put stores the code and evicts the email's previous code in one MULTI/EXEC.
// The email pointer is WATCHed so concurrent issuers retry instead of leaving two codes behind.
func (r *RedisLoginCodeRepository) Put(ctx context.Context, code *models.LoginCode) error {
	payload, err := json.Marshal(redisLoginCode{
		Email:     code.Email,
		CodeHash:  code.CodeHash,
		Name:      code.Name,
		ExpiresAt: code.ExpiresAt.UTC(),
		CreatedAt: code.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode login code: %w", err)
	}

	emailKey := loginEmailKey(code.Email)
	txf := func(tx *redis.Tx) error {
		previous, err := tx.Get(ctx, emailKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if previous != "" {
				pipe.Del(ctx, loginCodeKey(previous))
			}
			pipe.Set(ctx, loginCodeKey(code.CodeHash), payload, 0)
			pipe.PExpireAt(ctx, loginCodeKey(code.CodeHash), code.ExpiresAt)
			pipe.Set(ctx, emailKey, code.CodeHash, 0)
			pipe.PExpireAt(ctx, emailKey, code.ExpiresAt)
			return nil
		})
		return err
	}

	for i := 0; i < redisPutRetries; i++ {
		err = r.rdb.Watch(ctx, txf, emailKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}
	return nil
}

// GetByHash retrieves a code by its digest
func (r *RedisLoginCodeRepository) GetByHash(ctx context.Context, codeHash string) (*models.LoginCode, error) {
	b, err := r.rdb.Get(ctx, loginCodeKey(codeHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login code: %w", err)
	}
	return decodeRedisLoginCode(b)
}

// Consume removes the code with GETDEL. Only one concurrent caller receives the value.
// The email pointer is left to expire; evicting a consumed digest later is harmless.
func (r *RedisLoginCodeRepository) Consume(ctx context.Context, codeHash string) (bool, error) {
	err := r.rdb.GetDel(ctx, loginCodeKey(codeHash)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume login code: %w", err)
	}
	return true, nil
}

// DeleteExpired is a no-op: Redis expires keys on its own
func (r *RedisLoginCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func decodeRedisLoginCode(b []byte) (*models.LoginCode, error) {
	var rec redisLoginCode
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode login code: %w", err)
	}
	return &models.LoginCode{
		Email:     rec.Email,
		CodeHash:  rec.CodeHash,
		Name:      rec.Name,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}
