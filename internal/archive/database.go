// Package archive keeps the SQL history of published quizzes and campaign job runs.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq" // PostgreSQL driver
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
)

// Database owns the archive connection.
type Database struct {
	sqlDB  *sql.DB
	gormDB *gorm.DB
	driver string
}

// Open connects to the archive database selected by cfg.Driver and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Database, error) {
	gormCfg := &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)}

	var (
		gormDB *gorm.DB
		err    error
	)
	switch cfg.Driver {
	case "postgres":
		gormDB, err = openPostgres(cfg, gormCfg)
	case "sqlite":
		gormDB, err = openSQLite(cfg.SQLitePath, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, constants.DatabaseConfig.PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	logger.Info("ARCHIVE_CONNECTED",
		slog.String("driver", cfg.Driver),
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
	)
	return &Database{sqlDB: sqlDB, gormDB: gormDB, driver: cfg.Driver}, nil
}

func openPostgres(cfg config.DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(constants.DatabaseConfig.MaxOpenConns)
	db.SetMaxIdleConns(constants.DatabaseConfig.MaxIdleConns)
	db.SetConnMaxLifetime(constants.DatabaseConfig.ConnMaxLifetime)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), gormCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}
	return gormDB, nil
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
	}
	gormDB, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	return gormDB, nil
}

// Gorm returns the GORM handle.
func (d *Database) Gorm() *gorm.DB { return d.gormDB }

// Driver returns "postgres" or "sqlite".
func (d *Database) Driver() string { return d.driver }

// Ping checks the connection.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", d.driver, err)
	}
	return nil
}

// Close closes the connection.
func (d *Database) Close() error {
	if d.sqlDB == nil {
		return nil
	}
	if err := d.sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", d.driver, err)
	}
	return nil
}
