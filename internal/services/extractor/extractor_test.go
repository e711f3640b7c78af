package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/msgvault/internal/common"
	"github.com/ternarybob/msgvault/internal/models"
)

func newTestExtractor() *Extractor {
	cfg := common.NewDefaultConfig().Scraper
	cfg.Timeouts.BetweenConvs = time.Millisecond
	return New(&cfg, &models.ScrapeJob{Tenant: "alice"}, arbor.NewLogger())
}

func TestProcessAllContinuesPastFailures(t *testing.T) {
	ext := newTestExtractor()

	var visited []int
	ext.step = func(ctx context.Context, interceptor *Interceptor, index int) error {
		visited = append(visited, index)
		if index == 1 {
			return errors.New("stuck conversation")
		}
		return nil
	}

	result := &models.RunResult{Total: 3}
	if err := ext.processAll(context.Background(), newBareInterceptor(), result); err != nil {
		t.Fatal(err)
	}
	if len(visited) != 3 {
		t.Fatalf("expected every row visited, got %v", visited)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestProcessAllStopsOnCancel(t *testing.T) {
	ext := newTestExtractor()
	ext.step = func(context.Context, *Interceptor, int) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := &models.RunResult{Total: 3}
	if err := ext.processAll(ctx, newBareInterceptor(), result); err == nil {
		t.Fatal("expected context error")
	}
	if result.Succeeded != 0 {
		t.Fatalf("no row should run after cancellation, got %+v", result)
	}
}
