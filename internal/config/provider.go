package config

import "time"

// Provider exposes configuration to packages that should not depend on the
// concrete Config layout.
type Provider interface {
	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration
	GetSessionSecret() string
	GetJWTSecret() string
}

var _ Provider = (*Config)(nil)

func (c *Config) GetDBURL() string { return c.DBURL }
func (c *Config) GetDBNs() string { return c.DBNs }
func (c *Config) GetDBDb() string { return c.DBDb }
func (c *Config) GetDBUser() string { return c.DBUser }
func (c *Config) GetDBPass() string { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }
func (c *Config) GetSessionSecret() string { return c.SessionSecret }
func (c *Config) GetJWTSecret() string { return c.JWTSecret }
