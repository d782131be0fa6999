package pg

import (
	"database/sql"
	"fmt"
	"strings"
)

type Config struct {
	User     string `env:"USER"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	Password string `env:"PASSWORD"`
	Database string `env:"DBNAME"`
	SSLMode  string `env:"SSLMODE"`
}

// DSN renders a libpq keyword/value string. Empty fields are left out so libpq
// defaults apply; sslmode falls back to disable.
func (c Config) DSN() string {
	parts := make([]string, 0, 6)
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", key, quote(value)))
		}
	}
	add("host", c.Host)
	add("user", c.User)
	add("password", c.Password)
	add("dbname", c.Database)
	add("port", c.Port)

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	add("sslmode", sslMode)
	return strings.Join(parts, " ")
}

func quote(value string) string {
	if !strings.ContainsAny(value, ` '\`) {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}

func openSQL(config Config) (*sql.DB, error) {
	return sql.Open("postgres", config.DSN())
}
