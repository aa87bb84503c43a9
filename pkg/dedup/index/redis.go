package index

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Redis connection defaults.
const (
	DefaultRedisHost = "127.0.0.1"

	redisConnectTimeout = time.Second
	redisMaxIdle        = 3
	redisIdleTimeout    = 240 * time.Second
)

// ErrRedisUnreachable is returned by [NewRedis] when the store cannot be
// reached at construction time. Shim init treats this as fatal.
var ErrRedisUnreachable = errors.New("index: redis unreachable")

// RedisOptions configures a [Redis] index.
type RedisOptions struct {
	// Host is a hostname or, when Port is empty, a UNIX-socket path.
	// Empty means DefaultRedisHost.
	Host string

	// Port is the TCP port. Empty selects a UNIX-socket connection to
	// Host.
	Port string
}

// Redis is an [Index] backed by an external redis store. Each
// fingerprint maps to a hash holding the path and offset fields, so a
// Set replaces both atomically and a Get is a single round-trip.
type Redis struct {
	pool *redis.Pool
}

// NewRedis connects to the store described by opts and returns the
// index. The initial connectivity probe uses a short timeout; an
// unreachable store fails construction rather than degrading silently.
func NewRedis(opts RedisOptions) (*Redis, error) {
	host := opts.Host
	if host == "" {
		host = DefaultRedisHost
	}

	dial := func() (redis.Conn, error) {
		if opts.Port == "" {
			return redis.Dial("unix", host,
				redis.DialConnectTimeout(redisConnectTimeout))
		}

		return redis.Dial("tcp", net.JoinHostPort(host, opts.Port),
			redis.DialConnectTimeout(redisConnectTimeout))
	}

	pool := &redis.Pool{
		MaxIdle:     redisMaxIdle,
		IdleTimeout: redisIdleTimeout,
		Dial:        dial,
	}

	conn := pool.Get()
	defer func() { _ = conn.Close() }()

	if _, err := conn.Do("PING"); err != nil {
		_ = pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrRedisUnreachable, err)
	}

	return &Redis{pool: pool}, nil
}

// Get retrieves the entry for fp from the redis hash, if present.
func (r *Redis) Get(fp uint32) (Entry, bool, error) {
	conn := r.pool.Get()
	defer func() { _ = conn.Close() }()

	reply, err := redis.Values(conn.Do("HMGET", blockHashKey(fp), "path", "offset"))
	if err != nil {
		return Entry{}, false, err
	}

	if len(reply) < 2 || reply[0] == nil || reply[1] == nil {
		return Entry{}, false, nil
	}

	var e Entry
	if _, err := redis.Scan(reply, &e.Path, &e.Offset); err != nil {
		return Entry{}, false, err
	}

	return e, true, nil
}

// Set stores entry for fp using a redis hash. A hash is used so the two
// location fields replace together and unrelated fields can ride along
// later.
func (r *Redis) Set(fp uint32, entry Entry) error {
	conn := r.pool.Get()
	defer func() { _ = conn.Close() }()

	_, err := conn.Do("HMSET", blockHashKey(fp), "path", entry.Path, "offset", entry.Offset)

	return err
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}

// blockHashKey returns the redis key for a fingerprint's location hash.
func blockHashKey(fp uint32) string {
	return fmt.Sprintf("wdd::block::%d", fp)
}
