package messaging

import (
	"testing"

	"github.com/gravitypharm/gravistock/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T, station string) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.StationRequest{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return New(db, station)
}

func TestRequestLifecycle(t *testing.T) {
	svc := testService(t, "robot-1")

	req, err := svc.Send("450123", "DOLIPRANE 1000MG CPR 8", 3, "shelf empty", true)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if req.Status != models.RequestPending {
		t.Errorf("New request should be pending, got %s", req.Status)
	}
	if req.TargetRole != models.TargetHub {
		t.Errorf("Requests address the hub, got %s", req.TargetRole)
	}

	pending, err := svc.PendingForHub()
	if err != nil {
		t.Fatalf("PendingForHub failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending request, got %d", len(pending))
	}

	if err := svc.Respond(req.ID, true); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	got, _ := svc.Get(req.ID)
	if got.Status != models.RequestConfirmed {
		t.Errorf("Expected confirmed, got %s", got.Status)
	}

	responses, err := svc.ResponsesFor("robot-1")
	if err != nil {
		t.Fatalf("ResponsesFor failed: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("Expected 1 response, got %d", len(responses))
	}

	if err := svc.Acknowledge(req.ID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	got, _ = svc.Get(req.ID)
	if got.Status != models.RequestClosed {
		t.Errorf("Expected closed, got %s", got.Status)
	}
}

func TestTransitionsAreNoOpsOutsideTheirSource(t *testing.T) {
	svc := testService(t, "robot-1")

	req, _ := svc.Send("450123", "DOLIPRANE 1000MG CPR 8", 1, "", false)

	// acknowledging a pending request changes nothing
	if err := svc.Acknowledge(req.ID); err != nil {
		t.Fatalf("Acknowledge should be a silent no-op: %v", err)
	}
	got, _ := svc.Get(req.ID)
	if got.Status != models.RequestPending {
		t.Errorf("Expected still pending, got %s", got.Status)
	}

	// the first answer wins, a second one is ignored
	if err := svc.Respond(req.ID, false); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if err := svc.Respond(req.ID, true); err != nil {
		t.Fatalf("Second respond should be a silent no-op: %v", err)
	}
	got, _ = svc.Get(req.ID)
	if got.Status != models.RequestRejected {
		t.Errorf("Expected rejected to stick, got %s", got.Status)
	}

	// closed is terminal
	if err := svc.Acknowledge(req.ID); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if err := svc.Respond(req.ID, true); err != nil {
		t.Fatalf("Respond on closed should be a no-op: %v", err)
	}
	got, _ = svc.Get(req.ID)
	if got.Status != models.RequestClosed {
		t.Errorf("Expected closed, got %s", got.Status)
	}
}

func TestPendingOrdersUrgentFirst(t *testing.T) {
	svc := testService(t, "robot-1")

	svc.Send("111111", "CALM PRODUCT", 1, "", false)
	svc.Send("222222", "URGENT PRODUCT", 1, "", true)

	pending, err := svc.PendingForHub()
	if err != nil {
		t.Fatalf("PendingForHub failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending requests, got %d", len(pending))
	}
	if !pending[0].Urgent {
		t.Error("Urgent requests should come first")
	}
}

func TestPollerSurfacesEachStatusOnce(t *testing.T) {
	svc := testService(t, "hub")

	var surfaced []string
	p := NewPoller(svc, 0, true, func(req models.StationRequest) {
		surfaced = append(surfaced, req.ID+":"+string(req.Status))
	})

	req, _ := svc.Send("450123", "DOLIPRANE 1000MG CPR 8", 1, "", false)

	p.poll()
	p.poll() // identical state, must not resurface
	if len(surfaced) != 1 {
		t.Fatalf("Expected 1 surfaced item after two polls, got %d", len(surfaced))
	}

	// the answer is a new status and surfaces again on the sender's poller
	if err := svc.Respond(req.ID, true); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	sender := NewPoller(svc, 0, false, func(req models.StationRequest) {
		surfaced = append(surfaced, req.ID+":"+string(req.Status))
	})
	sender.poll()
	sender.poll()
	if len(surfaced) != 2 {
		t.Fatalf("Expected 2 surfaced items, got %d", len(surfaced))
	}
	if surfaced[1] != req.ID+":confirmed" {
		t.Errorf("Unexpected surfaced item %q", surfaced[1])
	}
}
