package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Contact lookups are owned by the host application, which mirrors the
// current device token and verified email address for each user into the
// shared redis. A missing key means the user has no such contact and the
// channel is simply unavailable.
const (
	deviceTokenKeyPrefix  = "notify:contact:device:"
	emailAddressKeyPrefix = "notify:contact:email:"
)

type redisContacts struct {
	client redis.Cmdable
}

func newRedisContacts(client redis.Cmdable) *redisContacts {
	return &redisContacts{client: client}
}

func (c *redisContacts) DeviceToken(ctx context.Context, userID string) (string, error) {
	return c.lookup(ctx, deviceTokenKeyPrefix+userID)
}

func (c *redisContacts) EmailAddress(ctx context.Context, userID string) (string, error) {
	return c.lookup(ctx, emailAddressKeyPrefix+userID)
}

func (c *redisContacts) lookup(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("contact lookup %s: %w", key, err)
	}
	return val, nil
}
