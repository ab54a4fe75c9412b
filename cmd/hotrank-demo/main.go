// Command hotrank-demo exercises the engine against a local Redis: it
// populates the weekly tier, publishes a few interaction events, and reads
// the ranked summaries back.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goboard/hotrank"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	engine, err := hotrank.New(ctx, &redis.Options{Addr: "localhost:6379"},
		hotrank.WithLogger(logger),
		hotrank.WithSampleRate(0.5),
	)
	if err != nil {
		log.Fatalf("create engine: %v", err)
	}
	defer func() { _ = engine.Close() }()

	ids := []int64{101, 102, 103}
	if err := engine.WriteRankedIDs(ctx, hotrank.Weekly, ids); err != nil {
		log.Fatalf("write ranked ids: %v", err)
	}

	summaries := make([]hotrank.Summary, 0, len(ids))
	for i, id := range ids {
		summaries = append(summaries, hotrank.Summary{
			ID:        id,
			Title:     fmt.Sprintf("Post #%d", id),
			Author:    "demo",
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
	if err := engine.WriteSummaries(ctx, hotrank.Weekly, summaries); err != nil {
		log.Fatalf("write summaries: %v", err)
	}

	engine.Publish(hotrank.CommentAdded{ID: 101})
	engine.Publish(hotrank.ReactionToggled{ID: 102, Added: true})
	engine.Publish(hotrank.Viewed{ID: 103})

	got, err := engine.GetRankedSummaries(ctx, hotrank.Weekly, 0, 10)
	if err != nil {
		log.Fatalf("read summaries: %v", err)
	}
	for rank, sum := range got {
		fmt.Printf("%d. %s (by %s)\n", rank+1, sum.Title, sum.Author)
	}

	fmt.Printf("pending fallback scores: %d\n", engine.FallbackPending())
}
