package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmgarment/stitchbooks_backend/config"
	"github.com/mmgarment/stitchbooks_backend/models"
	"github.com/mmgarment/stitchbooks_backend/utils"
	"github.com/mmgarment/stitchbooks_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Full-stack regression: every stock mutation must keep the denormalized
// quantities, the ledger and the outbox in lockstep, and quantities must
// never go negative.
func TestStockLedgerLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stitchbooks_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	// Model hooks write ChangeHistory records and require user context.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:  "Ledger Co",
		Email: "owner@ledger.test",
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	fabric, err := models.CreateFabric(ctx, &models.NewFabric{
		Name:            "Silk",
		TotalLength:     decimal.NewFromInt(100),
		Unit:            models.LengthUnitMeters,
		CostPerMeter:    decimal.NewFromInt(100),
		LengthPerOutfit: decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("CreateFabric: %v", err)
	}
	outfit, err := models.CreateOutfit(ctx, &models.NewOutfit{
		Name:           "Summer Dress",
		SellingPrice:   decimal.NewFromInt(15000),
		StitchingCost:  decimal.NewFromInt(500),
		ParentFabricId: &fabric.ID,
	})
	if err != nil {
		t.Fatalf("CreateOutfit: %v", err)
	}

	fabricLength := func() decimal.Decimal {
		item, err := models.GetInventoryItem(ctx, fabric.ID)
		if err != nil {
			t.Fatalf("GetInventoryItem fabric: %v", err)
		}
		return item.CurrentLength
	}
	sizeQty := func(size models.SizeLabel) int {
		item, err := models.GetInventoryItem(ctx, outfit.ID)
		if err != nil {
			t.Fatalf("GetInventoryItem outfit: %v", err)
		}
		return item.SizeQty(size)
	}
	ledgerCount := func() int64 {
		var n int64
		if err := db.Model(&models.StockHistoryEntry{}).Where("business_id = ?", businessID).Count(&n).Error; err != nil {
			t.Fatalf("count ledger: %v", err)
		}
		return n
	}
	outboxCount := func() int64 {
		var n int64
		if err := db.Model(&models.StockEventRecord{}).Where("business_id = ?", businessID).Count(&n).Error; err != nil {
			t.Fatalf("count outbox: %v", err)
		}
		return n
	}

	// 1) Production batch: fabric leaves stock immediately.
	batch, err := models.CreateProductionBatch(ctx, &models.NewProductionBatch{
		FabricId:           fabric.ID,
		OutfitId:           outfit.ID,
		FabricUsed:         decimal.NewFromInt(20),
		FabricPerPiece:     decimal.NewFromInt(2),
		SizeBreakdown:      map[models.SizeLabel]int{models.SizeM: 6, models.SizeL: 4},
		StitchingCostTotal: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("CreateProductionBatch: %v", err)
	}
	if !fabricLength().Equal(decimal.NewFromInt(80)) {
		t.Fatalf("fabric after batch cut = %s, want 80", fabricLength())
	}
	if batch.EstimatedPieces != 10 || batch.TotalPieces != 10 {
		t.Fatalf("batch pieces = %d estimated / %d total, want 10/10", batch.EstimatedPieces, batch.TotalPieces)
	}
	if !batch.FabricCostPerPiece.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("fabric cost/pc = %s, want 200", batch.FabricCostPerPiece)
	}
	if !batch.StitchingCostPerPiece.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("stitching cost/pc = %s, want 500", batch.StitchingCostPerPiece)
	}
	if !batch.TotalCostPerPiece.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("total cost/pc = %s, want 700", batch.TotalCostPerPiece)
	}

	// 2) Completing with a short count must fail and move nothing.
	_, err = models.ReceiveProductionBatch(ctx, batch.ID, &models.ReceiveProductionBatchInput{
		ReceivedBreakdown: map[models.SizeLabel]int{models.SizeM: 6, models.SizeL: 3},
		Status:            models.BatchStatusCompleted,
	})
	if !errors.Is(err, utils.ErrorQuantityMismatch) {
		t.Fatalf("short receive err = %v, want quantity mismatch", err)
	}
	if sizeQty(models.SizeM) != 0 || sizeQty(models.SizeL) != 0 {
		t.Fatalf("short receive moved stock: M=%d L=%d", sizeQty(models.SizeM), sizeQty(models.SizeL))
	}

	// 3) Matching receive credits the size buckets.
	received, err := models.ReceiveProductionBatch(ctx, batch.ID, &models.ReceiveProductionBatchInput{
		ReceivedBreakdown: map[models.SizeLabel]int{models.SizeM: 6, models.SizeL: 4},
		Status:            models.BatchStatusCompleted,
	})
	if err != nil {
		t.Fatalf("ReceiveProductionBatch: %v", err)
	}
	if received.Status != models.BatchStatusCompleted || received.CreditedAt == nil {
		t.Fatalf("batch not completed: status=%s creditedAt=%v", received.Status, received.CreditedAt)
	}
	if sizeQty(models.SizeM) != 6 || sizeQty(models.SizeL) != 4 {
		t.Fatalf("after receive: M=%d L=%d, want 6/4", sizeQty(models.SizeM), sizeQty(models.SizeL))
	}
	outfitAfter, err := models.GetInventoryItem(ctx, outfit.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem outfit: %v", err)
	}
	if !outfitAfter.ProductionCostPerPiece.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("outfit production cost/pc = %s, want 700", outfitAfter.ProductionCostPerPiece)
	}

	// 4) Crediting is single-shot: a second receive must be rejected.
	_, err = models.ReceiveProductionBatch(ctx, batch.ID, &models.ReceiveProductionBatchInput{
		ReceivedBreakdown: map[models.SizeLabel]int{models.SizeM: 6, models.SizeL: 4},
		Status:            models.BatchStatusCompleted,
	})
	if err == nil {
		t.Fatalf("second receive succeeded; batch credited stock twice")
	}
	if sizeQty(models.SizeM) != 6 || sizeQty(models.SizeL) != 4 {
		t.Fatalf("double credit: M=%d L=%d, want 6/4", sizeQty(models.SizeM), sizeQty(models.SizeL))
	}

	// 5) Stock order deducts at creation, not at shipping.
	stockOrder, err := models.CreateStockOrder(ctx, &models.NewStockOrder{
		OrderNumber:  "SO-001",
		CustomerName: "Daw Mya",
		OutfitName:   "Summer Dress",
		Size:         models.SizeM,
		Quantity:     2,
		OrderTotal:   decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("CreateStockOrder: %v", err)
	}
	if stockOrder.Status != models.OrderStatusReadyToShip {
		t.Fatalf("stock order status = %s", stockOrder.Status)
	}
	if sizeQty(models.SizeM) != 4 {
		t.Fatalf("after stock order: M=%d, want 4", sizeQty(models.SizeM))
	}

	// 6) Ordering more than on hand must fail atomically.
	ledgerBefore := ledgerCount()
	_, err = models.CreateStockOrder(ctx, &models.NewStockOrder{
		OrderNumber:  "SO-002",
		CustomerName: "Daw Mya",
		OutfitName:   "Summer Dress",
		Size:         models.SizeM,
		Quantity:     100,
	})
	if !errors.Is(err, utils.ErrorInsufficientStock) {
		t.Fatalf("oversell err = %v, want insufficient stock", err)
	}
	if sizeQty(models.SizeM) != 4 {
		t.Fatalf("oversell changed stock: M=%d, want 4", sizeQty(models.SizeM))
	}
	if ledgerCount() != ledgerBefore {
		t.Fatalf("oversell wrote ledger rows")
	}

	// 7) Cancelling a from-stock order does NOT restock; the pieces left
	// the shelf when the order was placed.
	cancelled, err := models.CancelOrder(ctx, stockOrder.ID)
	if err != nil {
		t.Fatalf("CancelOrder stock: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Fatalf("cancelled status = %s", cancelled.Status)
	}
	if sizeQty(models.SizeM) != 4 {
		t.Fatalf("from-stock cancel restocked: M=%d, want 4", sizeQty(models.SizeM))
	}

	// 8) Tailoring order: cut fabric now, credit received pieces later,
	// cancellation returns the cut.
	tailoring, err := models.CreateTailoringOrder(ctx, &models.NewTailoringOrder{
		OrderNumber:  "TO-001",
		CustomerName: "Ko Aung",
		OutfitName:   "Summer Dress",
		FabricId:     &fabric.ID,
		CutAmount:    decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("CreateTailoringOrder: %v", err)
	}
	if tailoring.Status != models.OrderStatusSentToTailor {
		t.Fatalf("tailoring status = %s", tailoring.Status)
	}
	if !fabricLength().Equal(decimal.NewFromInt(75)) {
		t.Fatalf("fabric after tailoring cut = %s, want 75", fabricLength())
	}
	// derived fabric cost: 5m x 100
	if !tailoring.FabricCost.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("derived fabric cost = %s, want 500", tailoring.FabricCost)
	}

	receivedOrder, err := models.ReceiveOrder(ctx, tailoring.ID, map[models.SizeLabel]int{models.SizeM: 2})
	if err != nil {
		t.Fatalf("ReceiveOrder: %v", err)
	}
	if receivedOrder.Status != models.OrderStatusReceivedFromTailor {
		t.Fatalf("received status = %s", receivedOrder.Status)
	}
	if sizeQty(models.SizeM) != 6 {
		t.Fatalf("after order receive: M=%d, want 6", sizeQty(models.SizeM))
	}

	shipped, err := models.ShipOrder(ctx, tailoring.ID, &models.ShipOrderInput{
		FinalSellingPrice: decimal.NewFromInt(15000),
		ShippingCost:      decimal.NewFromInt(2000),
	})
	if err != nil {
		t.Fatalf("ShipOrder: %v", err)
	}
	if shipped.Status != models.OrderStatusShipped {
		t.Fatalf("shipped status = %s", shipped.Status)
	}

	// Shipping is terminal: no further transitions.
	if _, err := models.CancelOrder(ctx, tailoring.ID); err == nil {
		t.Fatalf("cancel after ship succeeded")
	}

	// Cancel a second tailoring order to verify the cut comes back.
	tailoring2, err := models.CreateTailoringOrder(ctx, &models.NewTailoringOrder{
		OrderNumber:  "TO-002",
		CustomerName: "Ko Aung",
		FabricId:     &fabric.ID,
		CutAmount:    decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateTailoringOrder 2: %v", err)
	}
	if !fabricLength().Equal(decimal.NewFromInt(65)) {
		t.Fatalf("fabric after second cut = %s, want 65", fabricLength())
	}
	if _, err := models.CancelOrder(ctx, tailoring2.ID); err != nil {
		t.Fatalf("CancelOrder tailoring: %v", err)
	}
	if !fabricLength().Equal(decimal.NewFromInt(75)) {
		t.Fatalf("fabric after cancel return = %s, want 75", fabricLength())
	}

	// 9) Every ledger entry carries exactly one outbox event.
	if ledgerCount() != outboxCount() {
		t.Fatalf("ledger/outbox out of lockstep: %d ledger rows, %d outbox rows", ledgerCount(), outboxCount())
	}

	// 10) Replaying the ledger must reproduce the denormalized state.
	logger := logrus.New()
	err = db.Transaction(func(tx *gorm.DB) error {
		return workflow.RebuildStockForBusiness(tx, logger, businessID)
	})
	if err != nil {
		t.Fatalf("RebuildStockForBusiness: %v", err)
	}
	if !fabricLength().Equal(decimal.NewFromInt(75)) {
		t.Fatalf("rebuild changed fabric: %s, want 75", fabricLength())
	}
	if sizeQty(models.SizeM) != 6 || sizeQty(models.SizeL) != 4 {
		t.Fatalf("rebuild changed sizes: M=%d L=%d, want 6/4", sizeQty(models.SizeM), sizeQty(models.SizeL))
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stitchbooks-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stitchbooks-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stitchbooks_test",
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
	// Example: "127.0.0.1:49154\n"
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
