package insights

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskjournal/internal/config"
	"riskjournal/internal/models"
)

func testEngine() (*Engine, *stubRepo) {
	repo := newStubRepo()
	eng := &Engine{
		Config: config.InsightsConfig{
			WindowDays:         90,
			DriftProximityDays: 30,
			ScanLimit:          1000,
		},
		Repo: repo,
	}
	return eng, repo
}

func addRisk(t *testing.T, repo *stubRepo, createdAt time.Time, doc map[string]any) *models.Entry {
	t.Helper()
	entry := &models.Entry{EntryType: models.EntryTypeRisk, Notes: "logged", CreatedAt: createdAt}
	if err := entry.SetMetadata(doc); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if err := repo.InsertEntry(context.Background(), entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return entry
}

func daysAgo(n int) time.Time {
	return time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour)
}

func TestDetectMisalignment_RateOverEveryScannedEntry(t *testing.T) {
	eng, repo := testEngine()
	addRisk(t, repo, daysAgo(40), map[string]any{
		"cost": 10, "aligned_with_self": true,
	})
	second := addRisk(t, repo, daysAgo(30), map[string]any{
		"cost":              20,
		"aligned_with_self": false,
		"ownership":         "influenced",
		"voices_present":    []any{"mentor"},
		"motivation_type":   "expectation",
	})
	third := addRisk(t, repo, daysAgo(20), map[string]any{
		"cost": 30, "aligned_with_self": false,
	})
	addRisk(t, repo, daysAgo(10), map[string]any{
		"cost": 40,
	})

	rep, err := eng.DetectMisalignment(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.WindowDays != 90 {
		t.Fatalf("window=%d want 90", rep.WindowDays)
	}
	if rep.EntriesScanned != 4 || rep.AlignedCount != 1 || rep.MisalignedCount != 2 {
		t.Fatalf("scanned=%d aligned=%d misaligned=%d", rep.EntriesScanned, rep.AlignedCount, rep.MisalignedCount)
	}
	if rep.MisalignmentRate != 0.5 {
		t.Fatalf("rate=%v want 0.5 over all scanned entries", rep.MisalignmentRate)
	}
	if rep.Ownership["influenced"] != 1 || rep.Ownership["unknown"] != 1 {
		t.Fatalf("ownership=%v", rep.Ownership)
	}
	if rep.Voices["mentor"] != 1 {
		t.Fatalf("voices=%v", rep.Voices)
	}
	if rep.Motivation["expectation"] != 1 || rep.Motivation["unknown"] != 1 {
		t.Fatalf("motivation=%v", rep.Motivation)
	}
	if len(rep.Misaligned) != 2 {
		t.Fatalf("sample=%d want 2", len(rep.Misaligned))
	}
	// Newest first, matching the scan order.
	if rep.Misaligned[0].EntryID != third.ID || rep.Misaligned[1].EntryID != second.ID {
		t.Fatalf("sample order=%d,%d", rep.Misaligned[0].EntryID, rep.Misaligned[1].EntryID)
	}
	if rep.Misaligned[1].Cost.Cmp(decimal.NewFromInt(20)) != 0 {
		t.Fatalf("cost=%s want 20", rep.Misaligned[1].Cost.String())
	}
}

func TestDetectMisalignment_WindowExcludesOldEntries(t *testing.T) {
	eng, repo := testEngine()
	addRisk(t, repo, daysAgo(120), map[string]any{
		"cost": 10, "aligned_with_self": false,
	})
	addRisk(t, repo, daysAgo(5), map[string]any{
		"cost": 10, "aligned_with_self": false,
	})
	rep, err := eng.DetectMisalignment(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.EntriesScanned != 1 || rep.MisalignedCount != 1 {
		t.Fatalf("scanned=%d misaligned=%d want old entry excluded", rep.EntriesScanned, rep.MisalignedCount)
	}
	if rep.MisalignmentRate != 1 {
		t.Fatalf("rate=%v want 1", rep.MisalignmentRate)
	}
}

func TestDetectMisalignment_EmptyWindow(t *testing.T) {
	eng, _ := testEngine()
	rep, err := eng.DetectMisalignment(context.Background(), 30)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.EntriesScanned != 0 || rep.MisalignmentRate != 0 {
		t.Fatalf("rep=%+v want zeroes", rep)
	}
	if rep.Misaligned == nil || rep.Ownership == nil {
		t.Fatalf("empty report fields must not be nil")
	}
}

func TestDetectDrift_LinkMatchesAtAnyDistance(t *testing.T) {
	eng, repo := testEngine()
	mis := addRisk(t, repo, daysAgo(50), map[string]any{
		"cost":              100,
		"aligned_with_self": false,
		"related_trades":    []any{42.0},
	})
	corr := addRisk(t, repo, daysAgo(10), map[string]any{
		"cost":              50,
		"aligned_with_self": true,
		"related_trades":    []any{42.0},
	})

	rep, err := eng.DetectDrift(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.MisalignedCount != 1 || rep.CorrectionsCount != 1 {
		t.Fatalf("misaligned=%d corrections=%d", rep.MisalignedCount, rep.CorrectionsCount)
	}
	c := rep.Corrections[0]
	if c.MisalignedID != mis.ID || c.CorrectedBy != corr.ID {
		t.Fatalf("correction=%+v", c)
	}
	if c.MatchedOn != "link" {
		t.Fatalf("matched_on=%q want link", c.MatchedOn)
	}
	if c.Days != 40 {
		t.Fatalf("days=%d want 40, beyond category proximity", c.Days)
	}
	if rep.AvgDaysToCorrect != 40 {
		t.Fatalf("avg=%v want 40", rep.AvgDaysToCorrect)
	}
}

func TestDetectDrift_CategoryNeedsProximity(t *testing.T) {
	eng, repo := testEngine()
	near := addRisk(t, repo, daysAgo(40), map[string]any{
		"cost": 10, "aligned_with_self": false, "risk_category": "trading",
	})
	nearCorr := addRisk(t, repo, daysAgo(35), map[string]any{
		"cost": 10, "aligned_with_self": true, "risk_category": "trading",
	})
	addRisk(t, repo, daysAgo(80), map[string]any{
		"cost": 10, "aligned_with_self": false, "risk_category": "crypto",
	})
	addRisk(t, repo, daysAgo(45), map[string]any{
		"cost": 10, "aligned_with_self": true, "risk_category": "crypto",
	})

	rep, err := eng.DetectDrift(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.MisalignedCount != 2 {
		t.Fatalf("misaligned=%d want 2", rep.MisalignedCount)
	}
	if rep.CorrectionsCount != 1 {
		t.Fatalf("corrections=%d want only the pair inside proximity", rep.CorrectionsCount)
	}
	c := rep.Corrections[0]
	if c.MisalignedID != near.ID || c.CorrectedBy != nearCorr.ID {
		t.Fatalf("correction=%+v", c)
	}
	if c.MatchedOn != "category" || c.Category != "trading" {
		t.Fatalf("matched_on=%q category=%q", c.MatchedOn, c.Category)
	}
	if c.Days != 5 {
		t.Fatalf("days=%d want 5", c.Days)
	}
}

func TestDetectDrift_CorrectorConsumedOnce(t *testing.T) {
	eng, repo := testEngine()
	first := addRisk(t, repo, daysAgo(30), map[string]any{
		"cost": 10, "aligned_with_self": false, "risk_category": "nft",
	})
	addRisk(t, repo, daysAgo(25), map[string]any{
		"cost": 10, "aligned_with_self": false, "risk_category": "nft",
	})
	corr := addRisk(t, repo, daysAgo(20), map[string]any{
		"cost": 10, "aligned_with_self": true, "risk_category": "nft",
	})

	rep, err := eng.DetectDrift(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.MisalignedCount != 2 || rep.CorrectionsCount != 1 {
		t.Fatalf("misaligned=%d corrections=%d want one consumed corrector", rep.MisalignedCount, rep.CorrectionsCount)
	}
	c := rep.Corrections[0]
	if c.MisalignedID != first.ID || c.CorrectedBy != corr.ID {
		t.Fatalf("correction=%+v want earliest misaligned entry paired", c)
	}
	if c.Days != 10 {
		t.Fatalf("days=%d want 10", c.Days)
	}
}

func TestOwnershipCorrelation_GroupsClosedRisks(t *testing.T) {
	eng, repo := testEngine()
	addRisk(t, repo, daysAgo(40), map[string]any{
		"cost": 100, "status": "CLOSED", "realized_value": 150, "ownership": "mine",
	})
	addRisk(t, repo, daysAgo(30), map[string]any{
		"cost": 100, "status": "CLOSED", "realized_value": 50, "ownership": "mine",
	})
	addRisk(t, repo, daysAgo(20), map[string]any{
		"cost": 200, "status": "CLOSED", "realized_value": 100, "ownership": "influenced",
	})
	addRisk(t, repo, daysAgo(15), map[string]any{
		"cost": 50, "status": "CLOSED", "realized_value": 60,
	})
	addRisk(t, repo, daysAgo(10), map[string]any{
		"cost": 10, "ownership": "mine",
	})

	rep, err := eng.OwnershipCorrelation(context.Background(), 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rep.ClosedCount != 4 {
		t.Fatalf("closed=%d want 4, open entries skipped", rep.ClosedCount)
	}
	mine, ok := rep.Groups["mine"]
	if !ok || mine.Count != 2 {
		t.Fatalf("groups=%v want mine with 2", rep.Groups)
	}
	if !mine.AvgOutcome.IsZero() {
		t.Fatalf("mine avg outcome=%s want 0", mine.AvgOutcome.String())
	}
	if mine.AvgROIPct != 0 {
		t.Fatalf("mine avg roi=%v want 0", mine.AvgROIPct)
	}
	infl := rep.Groups["influenced"]
	if infl.Count != 1 || infl.AvgOutcome.Cmp(decimal.NewFromInt(-100)) != 0 {
		t.Fatalf("influenced=%+v", infl)
	}
	if infl.AvgROIPct != -50 {
		t.Fatalf("influenced roi=%v want -50", infl.AvgROIPct)
	}
	if _, ok := rep.Groups[""]; ok {
		t.Fatalf("ownerless closed risks must not form a group")
	}
}
