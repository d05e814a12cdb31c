package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
	"github.com/shopspring/decimal"
)

func setupIntegrationDB(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "tickets_test")

	config.ConnectDatabaseWithRetry()
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return context.Background()
}

func TestFindOrCreateEventIdempotentForSameExternalId(t *testing.T) {
	ctx := setupIntegrationDB(t)

	tmId := "TM-REG-1"
	date := time.Date(2026, 9, 12, 20, 0, 0, 0, time.UTC)
	input := models.EventMatchInput{
		TmEventId: &tmId,
		EventName: "Regression Act - Night One",
		EventDate: &date,
	}

	first, err := models.FindOrCreateEvent(ctx, input, true)
	if err != nil {
		t.Fatalf("FindOrCreateEvent (first): %v", err)
	}
	if !first.Found || first.MatchType != models.MatchTypeCreated {
		t.Fatalf("first call expected a created event, got %+v", first)
	}

	second, err := models.FindOrCreateEvent(ctx, input, true)
	if err != nil {
		t.Fatalf("FindOrCreateEvent (second): %v", err)
	}
	if !second.Found || second.Event.ID != first.Event.ID {
		t.Fatalf("second call expected the same event %d, got %+v", first.Event.ID, second)
	}
	if second.MatchType != models.MatchTypeTmEventId {
		t.Fatalf("second call expected a tm id match, got %s", second.MatchType)
	}

	var count int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Event{}).
		Where("tm_event_id = ?", tmId).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one event for %s, got %d", tmId, count)
	}
}

func TestFindOrCreateEventRefusesWithoutDurableId(t *testing.T) {
	ctx := setupIntegrationDB(t)

	result, err := models.FindOrCreateEvent(ctx, models.EventMatchInput{
		EventName: "Completely Unknown Act",
	}, true)
	if err != nil {
		t.Fatalf("FindOrCreateEvent: %v", err)
	}
	if result.Found || result.Event != nil || result.MatchType != models.MatchTypeNone {
		t.Fatalf("expected a declined resolution, got %+v", result)
	}

	var count int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Event{}).
		Where("event_name = ?", "Completely Unknown Act").Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("no event row should have been minted, found %d", count)
	}
}

func TestLinkTicketsToListingRecallCountsAlreadyClaimed(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()

	tmId := "TM-REG-2"
	event, err := models.CreateEvent(ctx, &models.NewEvent{TmEventId: &tmId, EventName: "Linker Regression Act"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	po := "PO-REG-2"
	purchase := models.Purchase{
		TotalPrice:        decimal.NewFromInt(400),
		Quantity:          4,
		Section:           "112",
		RowName:           "F",
		SeatRange:         "1-4",
		DashboardPoNumber: &po,
		EventId:           &event.ID,
	}
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	created, skipped, err := models.CreateTicketsFromPurchase(ctx, purchase.ID, event.ID, "112", "F", "1-4", purchase.CostPerTicket())
	if err != nil {
		t.Fatalf("CreateTicketsFromPurchase: %v", err)
	}
	if created != 4 || skipped != 0 {
		t.Fatalf("expected 4 tickets created, got created=%d skipped=%d", created, skipped)
	}

	listing := models.Listing{TicketGroupId: 8101, Section: "112", RowName: "F", SeatStart: 1, SeatEnd: 4, EventId: &event.ID, PurchaseId: &purchase.ID}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}

	linked, already, err := models.LinkTicketsToListing(ctx, listing.ID, event.ID, "112", "F", 1, 4)
	if err != nil {
		t.Fatalf("LinkTicketsToListing (first): %v", err)
	}
	if linked != 4 || already != 0 {
		t.Fatalf("first link expected linked=4, got linked=%d already=%d", linked, already)
	}

	linked, already, err = models.LinkTicketsToListing(ctx, listing.ID, event.ID, "112", "F", 1, 4)
	if err != nil {
		t.Fatalf("LinkTicketsToListing (second): %v", err)
	}
	if linked != 0 || already != 4 {
		t.Fatalf("re-link expected already=4, got linked=%d already=%d", linked, already)
	}

	var listed int64
	if err := db.WithContext(ctx).Model(&models.Ticket{}).
		Where("listing_id = ? AND status = ?", listing.ID, models.TicketStatusListed).
		Count(&listed).Error; err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	if listed != 4 {
		t.Fatalf("expected 4 LISTED tickets, got %d", listed)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("tickets-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=tickets_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
