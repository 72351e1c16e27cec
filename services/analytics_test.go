package services

import (
	"testing"
	"time"

	"revenue-share-system/models"

	"github.com/shopspring/decimal"
)

// totalRevenue sums share amounts across a snapshot's role rollup.
func totalRevenue(snapshot models.AnalyticsSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, r := range snapshot.RevenueByRole {
		total = total.Add(r.TotalAmount)
	}
	return total
}

func entry(recipient string, role models.RecipientRole, contentType, amount string) models.LedgerEntry {
	return models.LedgerEntry{
		RecipientID: recipient,
		Role:        role,
		ContentType: contentType,
		ShareAmount: decimal.RequireFromString(amount),
	}
}

func TestAggregateEntriesRevenueConsistency(t *testing.T) {
	t.Parallel()

	entries := []models.LedgerEntry{
		entry("u1", models.RoleOwner, "course", "100.00"),
		entry("u2", models.RoleAdmin, "course", "200.00"),
		entry("u3", models.RoleEditor, "webinar", "700.00"),
		entry("u3", models.RoleEditor, "course", "50.00"),
	}

	snapshot := aggregateEntries(entries)

	// Sum across roles must equal the sum of every share amount.
	rawTotal := decimal.Zero
	for _, e := range entries {
		rawTotal = rawTotal.Add(e.ShareAmount)
	}
	if got := totalRevenue(snapshot); !got.Equal(rawTotal) {
		t.Fatalf("revenue by role sums to %s, raw ledger sums to %s", got, rawTotal)
	}

	// Content rollup covers the same money.
	contentTotal := decimal.Zero
	for _, cr := range snapshot.RevenueByContent {
		contentTotal = contentTotal.Add(cr.TotalAmount)
	}
	if !contentTotal.Equal(rawTotal) {
		t.Fatalf("revenue by content sums to %s, raw ledger sums to %s", contentTotal, rawTotal)
	}

	if len(snapshot.RevenueByContent) != 2 {
		t.Errorf("expected 2 content types, got %d", len(snapshot.RevenueByContent))
	}
}

func TestAggregateEntriesTopEarnerOrdering(t *testing.T) {
	t.Parallel()

	entries := []models.LedgerEntry{
		entry("u-b", models.RoleEditor, "course", "300.00"),
		entry("u-c", models.RoleEditor, "course", "500.00"),
		entry("u-a", models.RoleAdmin, "course", "300.00"),
	}

	snapshot := aggregateEntries(entries)
	if len(snapshot.TopEarners) != 3 {
		t.Fatalf("expected 3 earners, got %d", len(snapshot.TopEarners))
	}

	// Ranked by amount descending; the 300/300 tie breaks on the
	// lexicographically smaller recipient id.
	if snapshot.TopEarners[0].RecipientID != "u-c" {
		t.Errorf("expected u-c first, got %s", snapshot.TopEarners[0].RecipientID)
	}
	if snapshot.TopEarners[1].RecipientID != "u-a" {
		t.Errorf("expected tie to break to u-a, got %s", snapshot.TopEarners[1].RecipientID)
	}
	if snapshot.TopEarners[2].RecipientID != "u-b" {
		t.Errorf("expected u-b last, got %s", snapshot.TopEarners[2].RecipientID)
	}
}

func TestAggregateEntriesTopEarnersCapped(t *testing.T) {
	t.Parallel()

	var entries []models.LedgerEntry
	for i := 0; i < topEarnersLimit+5; i++ {
		entries = append(entries, entry(string(rune('a'+i)), models.RoleEditor, "course", "10.00"))
	}

	snapshot := aggregateEntries(entries)
	if len(snapshot.TopEarners) != topEarnersLimit {
		t.Fatalf("expected top earners capped at %d, got %d", topEarnersLimit, len(snapshot.TopEarners))
	}
}

func TestRangeBounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		timeRange models.TimeRange
		wantStart time.Time
	}{
		{models.TimeRangeWeek, now.AddDate(0, 0, -7)},
		{models.TimeRangeMonth, now.AddDate(0, -1, 0)},
		{models.TimeRangeQuarter, now.AddDate(0, -3, 0)},
		{models.TimeRangeYear, now.AddDate(-1, 0, 0)},
	}
	for _, tc := range cases {
		start, end, ok := rangeBounds(tc.timeRange, now)
		if !ok {
			t.Errorf("%s: expected valid range", tc.timeRange)
			continue
		}
		if !start.Equal(tc.wantStart) || !end.Equal(now) {
			t.Errorf("%s: got [%s, %s], want [%s, %s]", tc.timeRange, start, end, tc.wantStart, now)
		}
	}

	if _, _, ok := rangeBounds("decade", now); ok {
		t.Error("expected unknown range to be rejected")
	}
}

func TestSnapshotCacheWindow(t *testing.T) {
	t.Parallel()

	s := &AnalyticsService{cache: make(map[string]cachedSnapshot)}

	snapshot := models.AnalyticsSnapshot{GeneratedAt: time.Now()}
	s.storeSnapshot("week", snapshot)

	if _, hit := s.cachedFor("week"); !hit {
		t.Fatal("expected fresh snapshot to hit the cache")
	}
	if _, hit := s.cachedFor("month"); hit {
		t.Fatal("expected miss for a range never stored")
	}

	// Age the entry past the TTL
	s.mu.Lock()
	s.cache["week"] = cachedSnapshot{snapshot: snapshot, fetchedAt: time.Now().Add(-2 * snapshotTTL)}
	s.mu.Unlock()

	if _, hit := s.cachedFor("week"); hit {
		t.Fatal("expected stale snapshot to miss the cache")
	}
}
