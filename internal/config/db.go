package config

import "fmt"

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifeTime int // minutes
}

// LoadDBConfig reads the database configuration from env. The default is a
// local sqlite file so the tool runs with zero setup; postgres is opted into
// with DB_DRIVER=postgres.
func LoadDBConfig() (*DBConfig, error) {
	cfg := &DBConfig{
		Driver:          GetEnv("DB_DRIVER", DBDriverSQLite),
		Host:            GetEnv("DB_HOST", "localhost"),
		User:            GetEnv("DB_USER", "proppilot"),
		Password:        GetEnv("DB_PASSWORD", "proppilot"),
		Name:            GetEnv("DB_NAME", "proppilot"),
		SSLMode:         GetEnv("DB_SSLMODE", "disable"),
		TimeZone:        GetEnv("DB_TIMEZONE", "UTC"),
		SQLitePath:      GetEnv("DB_PATH", "proppilot.db"),
		Port:            GetEnvInt("DB_PORT", 5432),
		MaxOpenConns:    GetEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifeTime: GetEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30),
	}

	switch cfg.Driver {
	case DBDriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("invalid DB config: DB_PATH must not be empty for sqlite")
		}
	case DBDriverPostgres:
		if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
			return nil, fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	default:
		return nil, fmt.Errorf("invalid DB config: unknown driver %q", cfg.Driver)
	}

	return cfg, nil
}
