package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

// BulkClassifier labels a batch of tickets on a bounded worker pool.
type BulkClassifier struct {
	classifier ports.TicketClassifier
	workers    int
}

func NewBulkClassifier(classifier ports.TicketClassifier, workers int) *BulkClassifier {
	if workers < 1 {
		workers = 1
	}
	return &BulkClassifier{classifier: classifier, workers: workers}
}

// ClassifyAll returns one entry per input ticket in input order. Tickets not
// yet started when ctx is cancelled are skipped and ctx.Err() is returned.
func (b *BulkClassifier) ClassifyAll(ctx context.Context, tickets []domain.Ticket) ([]domain.ClassifiedTicket, error) {
	out := make([]domain.ClassifiedTicket, len(tickets))
	if len(tickets) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range tickets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			t := tickets[i]
			out[i] = domain.ClassifiedTicket{
				Ticket:         t,
				Classification: b.classifier.Classify(ctx, t.Subject, t.Body),
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, submitErr
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Info("bulk_classification_completed", "tickets", len(tickets), "workers", b.workers)
	return out, nil
}

// Summarize counts labels across tickets. Each list is ordered by count
// descending, then label.
func Summarize(tickets []domain.ClassifiedTicket) domain.ClassificationSummary {
	topics := map[string]int{}
	sentiments := map[string]int{}
	priorities := map[string]int{}
	summary := domain.ClassificationSummary{Total: len(tickets)}

	for _, t := range tickets {
		if t.Classification.Fallback {
			summary.Fallbacks++
		}
		for _, topic := range t.Classification.Topics {
			topics[string(topic)]++
		}
		if t.Classification.Sentiment != "" {
			sentiments[string(t.Classification.Sentiment)]++
		}
		if t.Classification.Priority != "" {
			priorities[string(t.Classification.Priority)]++
		}
	}

	summary.Topics = sortedCounts(topics)
	summary.Sentiments = sortedCounts(sentiments)
	summary.Priorities = sortedCounts(priorities)
	return summary
}

func sortedCounts(counts map[string]int) []domain.LabelCount {
	out := make([]domain.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, domain.LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
