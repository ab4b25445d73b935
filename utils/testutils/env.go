package testutils

import "github.com/kelseyhightower/envconfig"

// PostgresConfig is filled from POSTGRES_URL.
type PostgresConfig struct {
	URL string `envconfig:"URL"`
}

// GetPostgresURL returns the test database URL, or "" when unset.
func GetPostgresURL() string {
	var conf PostgresConfig
	_ = envconfig.Process("POSTGRES", &conf)
	return conf.URL
}

// KafkaConfig is filled from KAFKA_BROKER.
type KafkaConfig struct {
	Broker string `envconfig:"BROKER"`
}

// GetKafkaBroker returns the test broker address, or "" when unset.
func GetKafkaBroker() string {
	var conf KafkaConfig
	_ = envconfig.Process("KAFKA", &conf)
	return conf.Broker
}

// RedisConfig is filled from REDIS_ADDR.
type RedisConfig struct {
	Addr string `envconfig:"ADDR"`
}

// GetRedisAddr returns the test Redis address, or "" when unset.
func GetRedisAddr() string {
	var conf RedisConfig
	_ = envconfig.Process("REDIS", &conf)
	return conf.Addr
}
