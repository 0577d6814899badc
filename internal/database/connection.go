package database

import (
	"fmt"
	"log"

	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func open(cfg *config.Config, user, password, database string, connLimit int) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			user,
			password,
			cfg.DBHost,
			cfg.DBPort,
			database,
		)
		dialector = mysql.Open(dsn)

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			user,
			password,
			database,
			cfg.DBPort,
		)
		dialector = postgres.Open(dsn)

	case "sqlite":
		// For SQLite, the database setting is the file path
		dialector = sqlite.Open(database)

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			user,
			password,
			cfg.DBHost,
			cfg.DBPort,
			database,
		)
		dialector = sqlserver.Open(dsn)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Unique-violation detection relies on gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(connLimit)
	sqlDB.SetMaxIdleConns(connLimit / 2)

	return db, nil
}

// Connect establishes the relational-store connection pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := open(cfg, cfg.DBUser, cfg.DBPassword, cfg.DBDatabase, cfg.DBConnectionLimit)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to %s relational store: %s", cfg.DBType, cfg.DBDatabase)
	return db, nil
}

// ConnectDocuments establishes the document-store connection pool. It may
// point at the same server as the relational pool but is always a separate
// handle; no query joins across the two.
func ConnectDocuments(cfg *config.Config) (*gorm.DB, error) {
	db, err := open(cfg, cfg.DocDBUser, cfg.DocDBPassword, cfg.DocDBDatabase, cfg.DocDBConnectionLimit)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to %s document store: %s", cfg.DBType, cfg.DocDBDatabase)
	return db, nil
}

// AutoMigrate runs automatic migrations for the relational models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Library{},
		&models.LibraryMembership{},
		&models.Paper{},
		&models.Author{},
		&models.AuthorPaper{},
		&models.LibraryPaper{},
	)
}

// AutoMigrateDocuments runs automatic migrations for the document models
func AutoMigrateDocuments(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PaperContent{},
		&models.LibraryPaperNote{},
	)
}

// Close closes a database connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
