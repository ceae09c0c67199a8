package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/motorlote/motorlote-backend/pkg/migrate"
)

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestReservationsMigrationEnforcesSingleActiveHold(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_reservations_and_sales.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no reservations migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX ux_reservations_vehicle_active",
		"ON reservations (vehicle_id) WHERE status = 'active'",
		"CREATE UNIQUE INDEX ux_sales_vehicle_active",
		"ON sales (vehicle_id) WHERE status = 'active'",
		"CHECK (deposit_amount > 0)",
		"CHECK (final_price > 0)",
		"DROP TABLE IF EXISTS reservations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSeedMigrationCoversAllStages(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_seed_lookups.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no seed migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, stage := range []string{"prospecto", "taller", "publicado", "bloqueado", "vendido"} {
		if !strings.Contains(content, "'"+stage+"'") {
			t.Errorf("missing seed for stage %q", stage)
		}
	}
}
