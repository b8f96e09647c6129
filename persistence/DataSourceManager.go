package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/lib/pq"
	otgorm "github.com/smacker/opentracing-gorm"
)

var ActiveDataSourceManager *DataSourceManager

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "postgres"
	}
	args := os.Getenv("DATABASE_URL")
	if args == "" {
		return nil, errors.New("environment variable DATABASE_URL is required")
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

type DataSourceManager struct {
	gormDB *gorm.DB

	DatabaseConfig *DatabaseConfig
}

func (m *DataSourceManager) Start() error {
	db, err := connect(m.DatabaseConfig)
	if err != nil {
		return err
	}
	m.gormDB = db
	otgorm.AddGormCallbacks(m.gormDB)
	if os.Getenv("GIN_MODE") != "release" {
		m.gormDB.LogMode(true)
	}
	return nil
}

func (m *DataSourceManager) Stop() {
	if m.gormDB != nil {
		if err := m.gormDB.Close(); err != nil {
			log.Printf("failed to close DB: %v", err)
		}
		m.gormDB = nil
	}
}

func (m *DataSourceManager) GormDB(ctx context.Context) *gorm.DB {
	if m.gormDB == nil {
		return nil
	}
	return otgorm.SetSpanToGorm(ctx, m.gormDB.New())
}

func connect(config *DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(config.DriverType, config.DriverArgs)
	if err != nil {
		return nil, err
	}
	err = db.DB().Ping()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// PreparePostgresDatabase creates the database named in driverArgs if it does
// not exist yet, going through the server's maintenance database.
func PreparePostgresDatabase(driverArgs string) error {
	databaseName, adminArgs, err := splitDatabaseURL(driverArgs)
	if err != nil {
		return err
	}

	conn, err := sql.Open("postgres", adminArgs)
	if err != nil {
		return err
	}
	defer conn.Close()

	var count int
	if err := conn.QueryRow("SELECT count(*) FROM pg_database WHERE datname = $1", databaseName).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := conn.Exec(fmt.Sprintf(`CREATE DATABASE %q`, databaseName)); err != nil {
			return err
		}
	}
	return nil
}

func DropPostgresDatabase(driverArgs string) error {
	databaseName, adminArgs, err := splitDatabaseURL(driverArgs)
	if err != nil {
		return err
	}

	conn, err := sql.Open("postgres", adminArgs)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Exec(fmt.Sprintf(`DROP DATABASE IF EXISTS %q`, databaseName))
	return err
}

func splitDatabaseURL(driverArgs string) (databaseName string, adminArgs string, err error) {
	u, err := url.Parse(driverArgs)
	if err != nil {
		return "", "", err
	}
	databaseName = strings.TrimPrefix(u.Path, "/")
	if databaseName == "" {
		return "", "", errors.New("database name is missing in connection url")
	}
	admin := *u
	admin.Path = "/postgres"
	return databaseName, admin.String(), nil
}
