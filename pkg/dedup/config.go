package dedup

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"writededuper/internal/wddlog"
	"writededuper/pkg/dedup/index"
)

// Environment variables recognized by [OptionsFromEnv].
const (
	// EnvRedisHost selects the external redis index and names its host,
	// or its UNIX-socket path when EnvRedisPort is unset.
	EnvRedisHost = "LIBWRITEDEDUPER_REDIS_HOST"

	// EnvRedisPort selects the external redis index over TCP.
	EnvRedisPort = "LIBWRITEDEDUPER_REDIS_PORT"

	// EnvBloom fronts the index with a bloom filter when truthy.
	EnvBloom = "LIBWRITEDEDUPER_BLOOM"

	// EnvVerbose raises diagnostics to debug level when truthy.
	EnvVerbose = "LIBWRITEDEDUPER_VERBOSE"
)

// Options configures a [Shim]. The zero value selects the in-process
// index, the real system-call layer and warn-level stderr diagnostics.
type Options struct {
	// Index is the fingerprint index. Nil selects [index.NewMemory].
	Index index.Index

	// Logger receives diagnostics. Nil selects the default stderr
	// logger.
	Logger *logrus.Logger
}

// OptionsFromEnv derives Options from environment variables.
//
// Setting either redis variable selects the external index: with a port
// the host (default 127.0.0.1) is a TCP endpoint, without one the host
// value is a UNIX-socket path. An unreachable store is an error; shim
// init treats it as fatal. With neither variable set the index lives in
// process and dies with it.
func OptionsFromEnv(env map[string]string) (Options, error) {
	opts := Options{
		Logger: wddlog.New(truthy(env[EnvVerbose])),
	}

	host, hostSet := env[EnvRedisHost]
	port, portSet := env[EnvRedisPort]

	if hostSet || portSet {
		idx, err := index.NewRedis(index.RedisOptions{Host: host, Port: port})
		if err != nil {
			return Options{}, err
		}

		opts.Index = idx
	} else {
		opts.Index = index.NewMemory()
	}

	if truthy(env[EnvBloom]) {
		opts.Index = index.NewBloomed(opts.Index)
	}

	return opts, nil
}

// truthy reports whether an environment value enables a boolean option.
// Empty and any value strconv.ParseBool reads as false ("0", "f",
// "false", ...) disable; anything else enables.
func truthy(v string) bool {
	if v == "" {
		return false
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}

	return b
}
