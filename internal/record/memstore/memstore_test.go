package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/argus/internal/explain"
	"github.com/linnemanlabs/argus/internal/record"
)

func rec(id string) *record.Record {
	return &record.Record{
		ID:        id,
		Timestamp: time.Now(),
		Rule:      "Terminal shell in container",
		Priority:  "warning",
		Output:    "a shell was spawned",
		Status:    record.StatusUnread,
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Insert(ctx, rec("a-1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := s.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected record to be found")
	}
	if got.Rule != "Terminal shell in container" {
		t.Errorf("rule = %q", got.Rule)
	}
	if got.Status != record.StatusUnread {
		t.Errorf("status = %q, want unread", got.Status)
	}
}

func TestStore_InsertDuplicateID(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if err := s.Insert(ctx, rec("a-1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, rec("a-1")); !errors.Is(err, record.ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Insert(ctx, rec("a-1"))

	got, _, _ := s.Get(ctx, "a-1")
	got.Rule = "mutated"

	again, _, _ := s.Get(ctx, "a-1")
	if again.Rule == "mutated" {
		t.Error("Get must return a copy")
	}
}

func TestStore_SetExplanation(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Insert(ctx, rec("a-1"))

	ex := &explain.Explanation{SecurityImpact: "bad", Provider: "openai"}
	if err := s.SetExplanation(ctx, "a-1", ex, true); err != nil {
		t.Fatalf("SetExplanation: %v", err)
	}

	got, _, _ := s.Get(ctx, "a-1")
	if got.Explanation == nil || got.Explanation.SecurityImpact != "bad" {
		t.Errorf("explanation = %+v", got.Explanation)
	}
	if !got.Processed {
		t.Error("expected processed=true")
	}

	if err := s.SetExplanation(ctx, "missing", ex, true); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Insert(ctx, rec("a-1"))

	if err := s.UpdateStatus(ctx, "a-1", record.StatusRead); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _, _ := s.Get(ctx, "a-1")
	if got.Status != record.StatusRead {
		t.Errorf("status = %q, want read", got.Status)
	}
}

func TestStore_BulkUpdateStatus(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Insert(ctx, rec("a-1"))
	_ = s.Insert(ctx, rec("a-2"))

	n, err := s.BulkUpdateStatus(ctx, []string{"a-1", "a-2", "missing"}, record.StatusDismissed)
	if err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}
	if n != 2 {
		t.Errorf("matched = %d, want 2", n)
	}
}

func TestStore_ListFilters(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	r1 := rec("a-1")
	r2 := rec("a-2")
	r2.Priority = "critical"
	r3 := rec("a-3")
	r3.Rule = "Other rule"
	for _, r := range []*record.Record{r1, r2, r3} {
		_ = s.Insert(ctx, r)
	}
	_ = s.UpdateStatus(ctx, "a-3", record.StatusRead)

	byPriority, _ := s.List(ctx, record.Filter{Priority: "critical"})
	if len(byPriority) != 1 || byPriority[0].ID != "a-2" {
		t.Errorf("priority filter = %+v", byPriority)
	}

	byStatus, _ := s.List(ctx, record.Filter{Status: record.StatusUnread})
	if len(byStatus) != 2 {
		t.Errorf("status filter count = %d, want 2", len(byStatus))
	}

	byRule, _ := s.List(ctx, record.Filter{Rule: "Other rule"})
	if len(byRule) != 1 || byRule[0].ID != "a-3" {
		t.Errorf("rule filter = %+v", byRule)
	}

	limited, _ := s.List(ctx, record.Filter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit = %d results, want 2", len(limited))
	}
	// newest first
	if limited[0].ID != "a-3" {
		t.Errorf("first = %q, want newest a-3", limited[0].ID)
	}
}

func TestStore_CountByStatus(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.Insert(ctx, rec("a-1"))
	_ = s.Insert(ctx, rec("a-2"))
	_ = s.UpdateStatus(ctx, "a-2", record.StatusRead)

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[record.StatusUnread] != 1 || counts[record.StatusRead] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	old := rec("a-old")
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	_ = s.Insert(ctx, old)
	_ = s.Insert(ctx, rec("a-new"))

	st, err := s.Stats(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 1 {
		t.Errorf("total = %d, want 1 (old record excluded)", st.Total)
	}
	if st.ByPriority["warning"] != 1 {
		t.Errorf("by_priority = %v", st.ByPriority)
	}

	all, _ := s.Stats(ctx, time.Time{})
	if all.Total != 2 {
		t.Errorf("total = %d, want 2 with zero since", all.Total)
	}
}

func TestStore_ConcurrentInsert(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Insert(ctx, rec(fmt.Sprintf("a-%d", i)))
		}(i)
	}
	wg.Wait()

	if got := len(s.IDs()); got != 16 {
		t.Errorf("records = %d, want 16", got)
	}
}
