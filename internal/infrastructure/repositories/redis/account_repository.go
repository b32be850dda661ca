package redis

import (
	"context"
	"fmt"
	"time"

	"dataplug/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

const (
	accountKeyPrefix = keyPrefix + "account:"
	accountIndexKey  = keyPrefix + "accounts:by_created"
)

type AccountRepository struct {
	client *redis.Client
}

func NewAccountRepository(client *redis.Client) *AccountRepository {
	return &AccountRepository{client: client}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	key := accountKeyPrefix + string(account.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", string(account.ID),
			"email", account.Email,
			"created_at", account.CreatedAt.UnixNano(),
		)
		pipe.ZAdd(ctx, accountIndexKey, redis.Z{
			Score:  float64(account.CreatedAt.UnixMilli()),
			Member: string(account.ID),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store account in Redis: %w", err)
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	ids, err := r.client.ZRange(ctx, accountIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read account index: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if len(ids) > 0 {
		_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HGetAll(ctx, accountKeyPrefix+id)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load accounts: %w", err)
		}
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		createdAt, err := parseInt(fields["created_at"])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, &domain.Account{
			ID:        domain.AccountID(fields["id"]),
			Email:     fields["email"],
			CreatedAt: time.Unix(0, createdAt).UTC(),
		})
	}
	return accounts, nil
}
