package db

import (
	"fmt"

	"github.com/kasuganosora/arena/config"
	dbmysql "github.com/kasuganosora/arena/db/mysql"
	dbsqlite "github.com/kasuganosora/arena/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	ModeMemory = "memory"
	ModeNone   = "none"
)

// Open returns a *gorm.DB for the configured database mode. ModeNone
// returns a nil DB and no error.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeNone:
		return nil, nil
	case ModeMemory:
		return dbsqlite.OpenMemory()
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
