package workorders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/datasets"
	"treasury-backend/internal/forecast"
	"treasury-backend/internal/shared/storage/object/local"
)

const bankCSV = `Date,Description,Debit,Credit,Balance
2025-03-28,Customer remittance,,245678.90,1120678.40
2025-03-31,Sweep to operating,125000.50,250001.00,1245678.90
`

const negativeBankCSV = `Date,Description,Debit,Credit,Balance
2025-03-31,Overdraft,500.00,,-100.00
`

const arCSV = `Invoice_Number,Customer_Name,Invoice_Date,Due_Date,Amount,Days_Outstanding,Status
INV-001,Acme,2025-03-01,2025-04-05,280000.00,30,open
`

const apCSV = `Invoice_Number,Vendor_Name,Invoice_Date,Due_Date,Amount,Days_Until_Due,Payment_Terms
AP-100,Staples,2025-03-10,2025-04-10,185000.00,10,Net 30
`

func newTestService(t *testing.T) (*Service, *datasets.Service) {
	t.Helper()

	dsSvc := &datasets.Service{
		Store: local.New(t.TempDir()),
		Repo:  datasets.NewMemoryRepo(),
	}
	artStore := &artifacts.Store{
		Objects: local.New(t.TempDir()),
		Repo:    artifacts.NewMemoryRepo(),
		Prefix:  "artifacts",
	}
	svc := &Service{
		Repo:           NewMemoryRepo(),
		Datasets:       dsSvc,
		Artifacts:      artStore,
		MinCashBalance: decimal.NewFromInt(500000),
		ForecastWeeks:  13,
	}
	return svc, dsSvc
}

func uploadDataset(t *testing.T, dsSvc *datasets.Service, tenantID, fileName, content string, tt datasets.TemplateType) datasets.Dataset {
	t.Helper()
	ds, err := dsSvc.Upload(context.Background(), tenantID, fileName, []byte(content), tt)
	if err != nil {
		t.Fatalf("upload %s: %v", fileName, err)
	}
	return ds
}

func seedFullOrder(t *testing.T, svc *Service, dsSvc *datasets.Service, tenantID string) WorkOrder {
	t.Helper()
	bank := uploadDataset(t, dsSvc, tenantID, "bank.csv", bankCSV, datasets.TemplateBankStatement)
	ar := uploadDataset(t, dsSvc, tenantID, "ar.csv", arCSV, datasets.TemplateAROpenItems)
	ap := uploadDataset(t, dsSvc, tenantID, "ap.csv", apCSV, datasets.TemplateAPOpenItems)

	wo, err := svc.Create(context.Background(), tenantID, "13-week cash forecast", []string{bank.ID, ar.ID, ap.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return wo
}

func TestCreateRequiresObjective(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "tenant-a", "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExecuteCompletesWorkOrder(t *testing.T) {
	svc, dsSvc := newTestService(t)
	wo := seedFullOrder(t, svc, dsSvc, "tenant-a")
	ctx := context.Background()

	done, err := svc.Execute(ctx, "tenant-a", wo.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s (error: %s)", done.Status, done.ErrorMessage)
	}
	if done.ProgressPercentage != 100 {
		t.Fatalf("progress = %d", done.ProgressPercentage)
	}
	if done.CompletedAt == nil || done.ExecutionTimeSecs == nil {
		t.Fatal("completion timestamps not set")
	}
	if done.CurrentAgent != "" {
		t.Fatalf("current agent should be cleared, got %q", done.CurrentAgent)
	}

	out, ok := done.AgentOutputs[forecast.AgentName]
	if !ok {
		t.Fatalf("missing %s output", forecast.AgentName)
	}
	if out.ExecutionTime < 0 {
		t.Fatalf("negative agent execution time %f", out.ExecutionTime)
	}

	if len(done.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact summary, got %d", len(done.Artifacts))
	}
	summary := done.Artifacts[0]
	if summary.ArtifactID == "" || summary.Error != "" {
		t.Fatalf("unexpected artifact summary %+v", summary)
	}
	if summary.ArtifactType != "excel" {
		t.Fatalf("artifact type = %q, want excel", summary.ArtifactType)
	}
	if !strings.HasPrefix(summary.FileName, "Cash_Ladder_") || !strings.HasSuffix(summary.FileName, ".xlsx") {
		t.Fatalf("unexpected artifact file name %s", summary.FileName)
	}

	// Stored workbook passes integrity verification.
	a, data, err := svc.Artifacts.Get(ctx, "tenant-a", summary.ArtifactID)
	if err != nil {
		t.Fatalf("artifact Get: %v", err)
	}
	if a.SizeBytes != int64(len(data)) || len(data) == 0 {
		t.Fatalf("artifact size mismatch: %d vs %d", a.SizeBytes, len(data))
	}

	for _, c := range done.GuardrailChecks {
		if c.Blocking && c.Status != "passed" {
			t.Fatalf("blocking check %s failed: %s", c.CheckName, c.Reason)
		}
	}

	wantEvents := []string{
		"work_order_created",
		"execution_started",
		"guardrails_evaluated",
		"datasets_loaded",
		"forecast_computed",
		"artifact_stored",
		"execution_completed",
	}
	if len(done.ExecutionLog) != len(wantEvents) {
		t.Fatalf("expected %d log events, got %d: %+v", len(wantEvents), len(done.ExecutionLog), done.ExecutionLog)
	}
	for i, want := range wantEvents {
		if done.ExecutionLog[i].Event != want {
			t.Fatalf("log[%d] = %s, want %s", i, done.ExecutionLog[i].Event, want)
		}
	}
}

func TestExecuteBlockedByGuardrails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wo, err := svc.Create(ctx, "tenant-a", "forecast with nothing to forecast", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := svc.Execute(ctx, "tenant-a", wo.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Status != StatusFailed {
		t.Fatalf("status = %s", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "guardrails") {
		t.Fatalf("error message %q should mention guardrails", done.ErrorMessage)
	}
	if len(done.AgentOutputs) != 0 {
		t.Fatal("agent must not run when blocked by guardrails")
	}
	if len(done.GuardrailChecks) == 0 {
		t.Fatal("guardrail checks should be recorded")
	}

	var sawBankCheck bool
	for _, c := range done.GuardrailChecks {
		if c.CheckName == "bank_statement_present" {
			sawBankCheck = true
			if c.Status != "failed" || !c.Blocking {
				t.Fatalf("unexpected bank statement check %+v", c)
			}
		}
	}
	if !sawBankCheck {
		t.Fatal("bank_statement_present check missing")
	}
}

func TestExecuteAgentFailureMarksFailed(t *testing.T) {
	svc, dsSvc := newTestService(t)
	ctx := context.Background()

	bank := uploadDataset(t, dsSvc, "tenant-a", "bank.csv", negativeBankCSV, datasets.TemplateBankStatement)
	wo, err := svc.Create(ctx, "tenant-a", "forecast from overdrawn account", []string{bank.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := svc.Execute(ctx, "tenant-a", wo.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if done.Status != StatusFailed {
		t.Fatalf("status = %s", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "negative") {
		t.Fatalf("unexpected error message %q", done.ErrorMessage)
	}

	var sawAgentFailed bool
	for _, e := range done.ExecutionLog {
		if e.Event == "agent_failed" && e.Agent == forecast.AgentName {
			sawAgentFailed = true
		}
	}
	if !sawAgentFailed {
		t.Fatal("agent_failed log event missing")
	}
}

func TestExecuteOnlyClaimsPendingOrders(t *testing.T) {
	svc, dsSvc := newTestService(t)
	wo := seedFullOrder(t, svc, dsSvc, "tenant-a")
	ctx := context.Background()

	if _, err := svc.Execute(ctx, "tenant-a", wo.ID); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, err := svc.Execute(ctx, "tenant-a", wo.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Execute should return ErrInvalidState, got %v", err)
	}
	if _, err := svc.Execute(ctx, "tenant-a", "no-such-order"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentExecuteSingleWinner(t *testing.T) {
	svc, dsSvc := newTestService(t)
	wo := seedFullOrder(t, svc, dsSvc, "tenant-a")

	const callers = 16
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Execute(context.Background(), "tenant-a", wo.ID)
		}(i)
	}
	wg.Wait()

	var winners, losers int
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrInvalidState):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != callers-1 {
		t.Fatalf("winners = %d, losers = %d", winners, losers)
	}

	done, err := svc.Get(context.Background(), "tenant-a", wo.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s (error: %s)", done.Status, done.ErrorMessage)
	}
	if len(done.Artifacts) != 1 {
		t.Fatalf("expected exactly one artifact, got %d", len(done.Artifacts))
	}
}

// recordingRepo captures every persisted progress value.
type recordingRepo struct {
	Repo
	mu         sync.Mutex
	progresses []int
}

func (r *recordingRepo) Update(ctx context.Context, wo WorkOrder) error {
	r.mu.Lock()
	r.progresses = append(r.progresses, wo.ProgressPercentage)
	r.mu.Unlock()
	return r.Repo.Update(ctx, wo)
}

func TestProgressCheckpointsAreMonotonic(t *testing.T) {
	svc, dsSvc := newTestService(t)
	recorder := &recordingRepo{Repo: svc.Repo}
	svc.Repo = recorder

	wo := seedFullOrder(t, svc, dsSvc, "tenant-a")
	if _, err := svc.Execute(context.Background(), "tenant-a", wo.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	recorder.mu.Lock()
	progresses := append([]int{}, recorder.progresses...)
	recorder.mu.Unlock()

	want := []int{10, 30, 70, 90, 100}
	if len(progresses) != len(want) {
		t.Fatalf("expected %d checkpoints, got %v", len(want), progresses)
	}
	for i := range want {
		if progresses[i] != want[i] {
			t.Fatalf("checkpoint %d = %d, want %d", i, progresses[i], want[i])
		}
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	svc, dsSvc := newTestService(t)
	ctx := context.Background()

	completed := seedFullOrder(t, svc, dsSvc, "tenant-a")
	if _, err := svc.Execute(ctx, "tenant-a", completed.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	failed, err := svc.Create(ctx, "tenant-a", "doomed order", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Execute(ctx, "tenant-a", failed.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := svc.Create(ctx, "tenant-a", "still pending", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	counts, err := svc.Stats(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if counts.Pending != 1 || counts.Completed != 1 || counts.Failed != 1 || counts.Processing != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestWorkOrdersAreTenantScoped(t *testing.T) {
	svc, dsSvc := newTestService(t)
	wo := seedFullOrder(t, svc, dsSvc, "tenant-a")

	if _, err := svc.Get(context.Background(), "tenant-b", wo.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
	if _, err := svc.Execute(context.Background(), "tenant-b", wo.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on cross-tenant execute, got %v", err)
	}
}
