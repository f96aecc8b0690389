package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/bootstrap"
	"treasury-backend/internal/datasets"
	"treasury-backend/internal/queue"
	"treasury-backend/internal/shared/storage/object/local"
	"treasury-backend/internal/workorders"
)

func TestParseMessageEmptyBody(t *testing.T) {
	_, meta, err := ParseMessage("   ")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if meta.BodyLen != 3 {
		t.Fatalf("expected body length 3, got %d", meta.BodyLen)
	}
}

func TestParseMessageGarbage(t *testing.T) {
	_, meta, err := ParseMessage("{not json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodySHA == "" {
		t.Fatal("expected body hash for diagnostics")
	}
}

func TestParseMessageMissingWorkOrderID(t *testing.T) {
	body, err := queue.EncodeMessage(queue.Message{TenantID: "tenant-a", RequestID: "req-1", Version: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, _, err = ParseMessage(string(body))
	var missingErr ErrMissingWorkOrderID
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected ErrMissingWorkOrderID, got %v", err)
	}
	if missingErr.RequestID != "req-1" {
		t.Fatalf("expected request id to survive parsing, got %q", missingErr.RequestID)
	}
}

func TestParseMessageValid(t *testing.T) {
	body, err := queue.EncodeMessage(queue.Message{WorkOrderID: "wo-1", TenantID: "tenant-a", RequestID: "req-1", Version: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	msg, meta, err := ParseMessage(string(body))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.WorkOrderID != "wo-1" || msg.TenantID != "tenant-a" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodyLen != len(body) {
		t.Fatalf("expected body length %d, got %d", len(body), meta.BodyLen)
	}
}

func TestHandleMessageRequiresService(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
		t.Fatal("expected error for missing app")
	}
	if err := HandleMessage(context.Background(), &bootstrap.App{}, "{}"); err == nil {
		t.Fatal("expected error for missing work order service")
	}
}

const bankCSV = `Date,Description,Debit,Credit,Balance
2025-03-31,Customer remittance,,245678.90,1245678.90
`

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	dsSvc := &datasets.Service{
		Store: local.New(t.TempDir()),
		Repo:  datasets.NewMemoryRepo(),
	}
	svc := &workorders.Service{
		Repo:     workorders.NewMemoryRepo(),
		Datasets: dsSvc,
		Artifacts: &artifacts.Store{
			Objects: local.New(t.TempDir()),
			Repo:    artifacts.NewMemoryRepo(),
			Prefix:  "artifacts",
		},
		MinCashBalance: decimal.NewFromInt(500000),
		ForecastWeeks:  13,
	}
	return &bootstrap.App{DatasetsService: dsSvc, WorkOrdersService: svc}
}

func seedClaimedOrder(t *testing.T, app *bootstrap.App, tenantID string) workorders.WorkOrder {
	t.Helper()
	ctx := context.Background()

	ds, err := app.DatasetsService.Upload(ctx, tenantID, "bank.csv", []byte(bankCSV), datasets.TemplateBankStatement)
	if err != nil {
		t.Fatalf("upload bank statement: %v", err)
	}
	wo, err := app.WorkOrdersService.Create(ctx, tenantID, "13-week cash forecast", []string{ds.ID})
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	claimed, err := app.WorkOrdersService.Repo.BeginExecution(ctx, tenantID, wo.ID)
	if err != nil {
		t.Fatalf("claim work order: %v", err)
	}
	return claimed
}

func encodeBody(t *testing.T, wo workorders.WorkOrder) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		WorkOrderID: wo.ID,
		TenantID:    wo.TenantID,
		RequestID:   "req-worker",
		Version:     1,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestHandleMessageDrivesClaimedOrder(t *testing.T) {
	app := newTestApp(t)
	wo := seedClaimedOrder(t, app, "tenant-a")

	if err := HandleMessage(context.Background(), app, encodeBody(t, wo)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	done, err := app.WorkOrdersService.Get(context.Background(), "tenant-a", wo.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if done.Status != workorders.StatusCompleted {
		t.Fatalf("expected completed order, got %s (%s)", done.Status, done.ErrorMessage)
	}
}

func TestHandleMessageUnknownOrder(t *testing.T) {
	app := newTestApp(t)

	body := encodeBody(t, workorders.WorkOrder{ID: "missing", TenantID: "tenant-a"})
	err := HandleMessage(context.Background(), app, body)

	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !errors.Is(procErr.Err, workorders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound inside ErrProcess, got %v", procErr.Err)
	}
	if procErr.WorkOrderID != "missing" || procErr.TenantID != "tenant-a" {
		t.Fatalf("unexpected identifiers: %+v", procErr)
	}
}

func TestHandleMessageUnclaimedOrder(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	wo, err := app.WorkOrdersService.Create(ctx, "tenant-a", "cash forecast", nil)
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}

	err = HandleMessage(ctx, app, encodeBody(t, wo))
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !errors.Is(procErr.Err, workorders.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState inside ErrProcess, got %v", procErr.Err)
	}
}
