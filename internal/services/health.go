package services

import (
	"fmt"
	"log"

	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status        string            `json:"status"`
	Database      string            `json:"database"`
	DocumentStore string            `json:"document_store"`
	Authorizer    string            `json:"authorizer"`
	Details       map[string]string `json:"details,omitempty"`
	ErrorMessage  string            `json:"error,omitempty"`
}

func pingPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// HealthCheck pings both store pools and the Authorizer service.
func HealthCheck(cfg *config.Config, db, docDB *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	if err := pingPool(db); err != nil {
		result.Status = "unhealthy"
		result.Database = "unreachable"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Relational store ping failed: %v", err)
		log.Printf("Health check failed - relational store: %v", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if err := pingPool(docDB); err != nil {
		result.Status = "unhealthy"
		result.DocumentStore = "unreachable"
		result.Details["document_store_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Document store ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; document store ping failed: %v", err)
		}
		log.Printf("Health check failed - document store: %v", err)
	} else {
		result.DocumentStore = "ok"
		result.Details["document_store_name"] = cfg.DocDBDatabase
	}

	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Status = "unhealthy"
		result.Authorizer = "unreachable"
		result.Details["authorizer_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Authorizer ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; authorizer ping failed: %v", err)
		}
		log.Printf("Health check failed - authorizer ping: %v", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
