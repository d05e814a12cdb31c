package possync

import (
	"context"
	"encoding/json"
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

// A listing whose first snapshot only carries the purchase order, and whose
// later snapshot only carries the production id, must still end up with its
// tickets LISTED once both halves of the linkage have been seen.
func TestListingResyncLinksTicketsAfterEventResolves(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()

	prod := "PROD-REG-9"
	event, err := models.CreateEvent(ctx, &models.NewEvent{PosProductionId: &prod, EventName: "Relink Regression Act"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	po := "PO-REG-9"
	purchase := models.Purchase{
		TotalPrice:        decimal.NewFromInt(400),
		Quantity:          4,
		Section:           "112",
		RowName:           "F",
		SeatRange:         "1-4",
		DashboardPoNumber: &po,
	}
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	// First pass: PO is present but nothing identifies the event.
	pass1 := listingSnapshot{
		TicketGroupId: json.Number("9101"),
		Section:       "112",
		Row:           "F",
		SeatStart:     json.Number("1"),
		SeatEnd:       json.Number("4"),
		Qty:           json.Number("4"),
		ExtPONumber:   po,
	}
	if _, err := processListingRecord(ctx, pass1, map[string]*models.Purchase{po: &purchase}); err != nil {
		t.Fatalf("processListingRecord (pass 1): %v", err)
	}

	listing, err := models.GetListingByTicketGroupId(ctx, 9101)
	if err != nil {
		t.Fatalf("GetListingByTicketGroupId: %v", err)
	}
	if listing == nil || listing.PurchaseId == nil || *listing.PurchaseId != purchase.ID {
		t.Fatalf("pass 1 should have attached the purchase, got %+v", listing)
	}
	if listing.EventId != nil {
		t.Fatalf("pass 1 had no event identity, got event %v", *listing.EventId)
	}

	// Second pass: production id arrives, PO column is gone from the feed.
	pass2 := listingSnapshot{
		TicketGroupId:   json.Number("9101"),
		Section:         "112",
		Row:             "F",
		SeatStart:       json.Number("1"),
		SeatEnd:         json.Number("4"),
		Qty:             json.Number("4"),
		EventName:       "Relink Regression Act",
		PosProductionId: prod,
	}
	if _, err := processListingRecord(ctx, pass2, map[string]*models.Purchase{}); err != nil {
		t.Fatalf("processListingRecord (pass 2): %v", err)
	}

	listing, err = models.GetListingByTicketGroupId(ctx, 9101)
	if err != nil {
		t.Fatalf("GetListingByTicketGroupId: %v", err)
	}
	if listing.EventId == nil || *listing.EventId != event.ID {
		t.Fatalf("pass 2 should have resolved event %d, got %+v", event.ID, listing.EventId)
	}
	if listing.PurchaseId == nil || *listing.PurchaseId != purchase.ID {
		t.Fatalf("pass 2 must not drop the purchase resolved earlier, got %+v", listing.PurchaseId)
	}

	var listed int64
	if err := db.WithContext(ctx).Model(&models.Ticket{}).
		Where("listing_id = ? AND status = ?", listing.ID, models.TicketStatusListed).
		Count(&listed).Error; err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	if listed != 4 {
		t.Fatalf("expected 4 LISTED tickets after pass 2, got %d", listed)
	}
}

// Sales routinely arrive before their listing. The end-of-batch relink pass
// must attach the listing, and backfill event and purchase, once it lands.
func TestSaleBeforeListingIsRelinked(t *testing.T) {
	ctx := setupIntegrationDB(t)
	db := config.GetDB()

	sale := saleSnapshot{
		TicketGroupId: json.Number("9202"),
		OrderId:       "ORD-9202",
		Qty:           json.Number("2"),
		Section:       "220",
		Row:           "C",
		Seats:         "5-6",
		Status:        "COMPLETED",
	}
	if _, err := processSaleRecord(ctx, sale); err != nil {
		t.Fatalf("processSaleRecord: %v", err)
	}

	stored, err := models.GetSaleByGroupAndOrder(ctx, 9202, "ORD-9202")
	if err != nil {
		t.Fatalf("GetSaleByGroupAndOrder: %v", err)
	}
	if stored == nil || stored.ListingId != nil {
		t.Fatalf("sale should exist unattached before its listing syncs, got %+v", stored)
	}

	tmId := "TM-REG-3"
	event, err := models.CreateEvent(ctx, &models.NewEvent{TmEventId: &tmId, EventName: "Ordering Regression Act"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	purchase := models.Purchase{
		TotalPrice: decimal.NewFromInt(300),
		Quantity:   6,
		Section:    "220",
		RowName:    "C",
		SeatRange:  "1-6",
		EventId:    &event.ID,
	}
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	listing := models.Listing{TicketGroupId: 9202, Section: "220", RowName: "C", SeatStart: 1, SeatEnd: 6, EventId: &event.ID, PurchaseId: &purchase.ID}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}

	relinked, err := relinkSales(ctx)
	if err != nil {
		t.Fatalf("relinkSales: %v", err)
	}
	if relinked != 1 {
		t.Fatalf("expected 1 relinked sale, got %d", relinked)
	}

	stored, err = models.GetSaleByGroupAndOrder(ctx, 9202, "ORD-9202")
	if err != nil {
		t.Fatalf("GetSaleByGroupAndOrder: %v", err)
	}
	if stored.ListingId == nil || *stored.ListingId != listing.ID {
		t.Fatalf("sale should now reference listing %d, got %+v", listing.ID, stored.ListingId)
	}
	if stored.EventId == nil || *stored.EventId != event.ID {
		t.Fatalf("relink should backfill event %d, got %+v", event.ID, stored.EventId)
	}
	if stored.PurchaseId == nil || *stored.PurchaseId != purchase.ID {
		t.Fatalf("relink should backfill purchase %d, got %+v", purchase.ID, stored.PurchaseId)
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
