package annotate

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		stored    Status
		createdAt time.Time
		want      Status
	}{
		{name: "fresh in progress", stored: StatusInProgress, createdAt: now.Add(-time.Minute), want: StatusInProgress},
		{name: "stale in progress reads as timeout", stored: StatusInProgress, createdAt: now.Add(-11 * time.Minute), want: StatusTimeout},
		{name: "stale not started reads as timeout", stored: StatusNotStarted, createdAt: now.Add(-11 * time.Minute), want: StatusTimeout},
		{name: "stale completed stays completed", stored: StatusCompleted, createdAt: now.Add(-time.Hour), want: StatusCompleted},
		{name: "stale failed stays failed", stored: StatusFailed, createdAt: now.Add(-time.Hour), want: StatusFailed},
		{name: "stale empty stays empty", stored: StatusEmpty, createdAt: now.Add(-time.Hour), want: StatusEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveStatus(tt.stored, tt.createdAt, now, 0)
			if got != tt.want {
				t.Errorf("EffectiveStatus(%s) = %s, want %s", tt.stored, got, tt.want)
			}
		})
	}
}

func TestLateTerminalWriteWins(t *testing.T) {
	now := time.Now()
	createdAt := now.Add(-time.Hour)

	// the reader reports timeout while the row is still in progress
	if got := EffectiveStatus(StatusInProgress, createdAt, now, 0); got != StatusTimeout {
		t.Fatalf("stale row reads as %s, want %s", got, StatusTimeout)
	}

	// once the worker lands its terminal write, readers see it unchanged
	if got := EffectiveStatus(StatusCompleted, createdAt, now, 0); got != StatusCompleted {
		t.Errorf("late completion reads as %s, want %s", got, StatusCompleted)
	}
}

func TestComputeProgress(t *testing.T) {
	now := time.Now()
	rows := []StatusRow{
		{Type: TypeBlocks, Status: StatusCompleted, CreatedAt: now, IsInsight: false},
		{Type: TypeHeadings, Status: StatusCompleted, CreatedAt: now, IsInsight: true},
		{Type: TypeSummary, Status: StatusInProgress, CreatedAt: now.Add(-time.Minute), IsInsight: true},
		{Type: TypeTimeline, Status: StatusInProgress, CreatedAt: now.Add(-time.Hour), IsInsight: true},
		{Type: TypeNER, Status: StatusEmpty, CreatedAt: now, IsInsight: true},
	}

	p := ComputeProgress(rows, now, 0)
	if p.Total != 5 || p.Completed != 4 {
		t.Errorf("progress = %d/%d, want 4/5", p.Completed, p.Total)
	}
	if p.InsightTotal != 4 || p.InsightComplete != 3 {
		t.Errorf("insight progress = %d/%d, want 3/4", p.InsightComplete, p.InsightTotal)
	}
	if p.Ratio() != 0.8 {
		t.Errorf("ratio = %v, want 0.8", p.Ratio())
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		t    Type
		want Category
	}{
		{TypeLegalInfo, CategoryBusiness},
		{TypeFinancialInfo, CategoryBusiness},
		{TypeHeadings, CategoryEssential},
		{TypeNER, CategoryEssential},
		{TypeBlocks, CategoryBasic},
		{TypeChat, CategoryBasic},
	}
	for _, tt := range tests {
		if got := CategoryOf(tt.t); got != tt.want {
			t.Errorf("CategoryOf(%s) = %s, want %s", tt.t, got, tt.want)
		}
	}
}
