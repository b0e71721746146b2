package bigquery

import (
	"context"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{LedgerEventsTable: " ledger_events "})
	if len(tables) != 1 || tables[0] != "ledger_events" {
		t.Fatalf("expected [ledger_events], got %v", tables)
	}

	if tables := configuredTables(config.BigQueryConfig{LedgerEventsTable: "  "}); len(tables) != 0 {
		t.Fatalf("expected blank table to be skipped, got %v", tables)
	}
}

func TestInsertRowsRequiresClient(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "ledger_events", []any{1}); err != errClientNotInitialized {
		t.Fatalf("expected errClientNotInitialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close should be a no-op: %v", err)
	}
}

func TestClientOptionsPrioritizesJSON(t *testing.T) {
	gcp := config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	}

	opts := clientOptions(gcp)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
}

func TestClientOptionsWithFile(t *testing.T) {
	gcp := config.GCPConfig{
		ApplicationCredentials: "/tmp/creds",
	}

	opts := clientOptions(gcp)
	if len(opts) != 1 {
		t.Fatalf("expected 1 option when using credentials file, got %d", len(opts))
	}
}

func TestClientOptionsEmpty(t *testing.T) {
	gcp := config.GCPConfig{}

	opts := clientOptions(gcp)
	if len(opts) != 0 {
		t.Fatalf("expected 0 options when no credentials provided, got %d", len(opts))
	}
}
