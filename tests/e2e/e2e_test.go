package e2e_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/papershelf/papershelf/tests/helpers"
)

// TestE2EWithFullStack boots the whole fleet (MariaDB, Authorizer, the API
// container) and exercises the outer surfaces.
func TestE2EWithFullStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	ctx := context.Background()

	tc, err := helpers.CreateAllTestContainers(t)
	if err != nil {
		t.Fatalf("Failed to start test containers: %v", err)
	}
	defer tc.Terminate(t)

	apiHost, _ := tc.APIContainer.Host(ctx)
	apiPort, _ := tc.APIContainer.MappedPort(ctx, "3000")
	baseURL := fmt.Sprintf("http://%s:%s", apiHost, apiPort.Port())

	// Let migrations and the auth stack settle
	time.Sleep(5 * time.Second)

	t.Run("HealthCheck", func(t *testing.T) {
		testHealthEndpoint(t, baseURL)
	})

	t.Run("PrometheusMetrics", func(t *testing.T) {
		testPrometheusMetrics(t, baseURL)
	})

	t.Run("SwaggerUI", func(t *testing.T) {
		testSwaggerUI(t, baseURL)
	})

	t.Run("UnauthenticatedAccess", func(t *testing.T) {
		testUnauthenticatedAccess(t, baseURL)
	})
}

func testHealthEndpoint(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, http.StatusOK)

	var result map[string]interface{}
	helpers.ParseJSON(t, resp, &result)
	if result["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", result["status"])
	}
	if result["document_store"] != "ok" {
		t.Errorf("Expected document store ok, got %v", result["document_store"])
	}
}

func testPrometheusMetrics(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("Metrics request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	defer resp.Body.Close()

	if !strings.Contains(string(body), "http_requests_total") {
		t.Error("Expected http_requests_total metric in output")
	}
}

func testSwaggerUI(t *testing.T, baseURL string) {
	resp, err := http.Get(baseURL + "/swagger/index.html")
	if err != nil {
		t.Fatalf("Swagger request failed: %v", err)
	}
	helpers.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func testUnauthenticatedAccess(t *testing.T, baseURL string) {
	// Every /api route requires a session cookie
	for _, path := range []string{"/api/libraries", "/api/user/profile", "/api/user/papers"} {
		resp, err := http.Get(baseURL + path)
		if err != nil {
			t.Fatalf("Request to %s failed: %v", path, err)
		}
		helpers.AssertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	}
}
