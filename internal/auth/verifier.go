package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidToken is returned for unknown or expired credentials.
var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves an authentication credential to a user identity.
// Session issuance lives in the external auth service; this side only
// consumes the tokens it deposits.
type Verifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

type redisVerifier struct {
	client *redis.Client
	prefix string
}

// NewRedisVerifier reads sessions the auth service stores under
// <prefix><token> → user ID.
func NewRedisVerifier(client *redis.Client, prefix string) Verifier {
	return &redisVerifier{client: client, prefix: prefix}
}

func (v *redisVerifier) Verify(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}

	val, err := v.client.Get(ctx, v.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("session lookup: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session lookup: bad user id %q", val)
	}
	return userID, nil
}

type staticVerifier struct {
	token  string
	userID int64
}

// NewStaticVerifier accepts a single fixed token. Development only.
func NewStaticVerifier(token string, userID int64) Verifier {
	return &staticVerifier{token: token, userID: userID}
}

func (v *staticVerifier) Verify(_ context.Context, token string) (int64, error) {
	if v.token == "" || token != v.token {
		return 0, ErrInvalidToken
	}
	return v.userID, nil
}
