package config

import "time"

type Config struct {
	Service  *ServiceConfig
	Redis    *RedisConfig
	Postgres *PostgresConfig
	Tracer   *TracerConfig
	Session  *SessionConfig
	Worker   *WorkerConfig
	Logger   *LoggerConfig
	Secret   string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type TracerConfig struct {
	Address string
}

// SessionConfig tunes the per-connection room protocol handler.
type SessionConfig struct {
	HistoryLimit     int
	HandshakeTimeout time.Duration
	PresenceTTL      time.Duration
	TypingTTL        time.Duration
}

type WorkerConfig struct {
	NotifyGroup string
}

type LoggerConfig struct {
	Level  string
	Format string
}
