package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points at a running API instance. Override with LAUNCHCONTROL_API_URL.
var BaseURL = "http://localhost:8080"

func TestMain(m *testing.M) {
	if url := os.Getenv("LAUNCHCONTROL_API_URL"); url != "" {
		BaseURL = url
	}

	// Give the service a moment to come up
	time.Sleep(2 * time.Second)

	code := m.Run()

	cleanup()

	os.Exit(code)
}

func cleanup() {
	// Test launches are left in place; they carry throwaway escrow wallets
	// and a cancelled status after the cancel test cases run.
}

// requireServer skips the test when no API instance is reachable, so the
// package stays runnable in plain unit-test environments.
func requireServer(t *testing.T) {
	t.Helper()

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(BaseURL + "/health")
	if err != nil {
		t.Skipf("API not reachable at %s: %v", BaseURL, err)
	}
	resp.Body.Close()
}
