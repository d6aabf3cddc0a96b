package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"mat-kinh-affiliate/internal/domain"
)

func TestIssuanceKey(t *testing.T) {
	t.Parallel()

	got := IssuanceKey("c-1", "0900000002")
	if got != "issuance:c-1:0900000002" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestTryLock_TransportFailureIsNotContention(t *testing.T) {
	t.Parallel()

	// Nothing listens here, so every SetNX attempt fails at the transport
	// level. That must surface as the redis error, not as contention.
	cli := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer cli.Close()
	locker := &RedisLocker{cli: cli}

	_, err := locker.TryLock(context.Background(), IssuanceKey("c-1", "0900000002"), time.Second)
	if err == nil {
		t.Fatal("expected an error from an unreachable redis")
	}
	if errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("transport failure must not be reported as lock contention: %v", err)
	}
}
