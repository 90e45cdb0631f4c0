package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/rawhit/packages/target"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of sends in flight when none is set.
const DefaultConcurrency = 4

// Sender is the part of a target the runner needs. *target.HTTPTarget
// implements it.
type Sender interface {
	Send(ctx context.Context, value string) (*target.Exchange, error)
}

// Item is the outcome of one prompt. Exactly one of Exchange and Err is set.
type Item struct {
	Index    int
	Prompt   string
	Exchange *target.Exchange
	Err      error
	Duration time.Duration
}

// Summary is what Run returns: every item in input order and totals.
type Summary struct {
	Items     []Item
	Total     int
	Succeeded int
	Failed    int
	// Missed counts replies that came back but yielded nothing to extract.
	Missed   int
	Latency  Latency
	Duration time.Duration
}

type Runner struct {
	sender      Sender
	concurrency int
	logger      *slog.Logger
}

type Option func(*Runner)

func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(s Sender, opts ...Option) *Runner {
	r := &Runner{
		sender:      s,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "batch")
	return r
}

// Run sends every prompt. A failed send is recorded on its item and does not
// stop the others. Cancelling ctx stops prompts that have not started yet;
// they are recorded with the context error, which Run also returns.
func (r *Runner) Run(ctx context.Context, prompts []string) (*Summary, error) {
	start := time.Now()
	items := make([]Item, len(prompts))
	rec := newRecorder()

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, prompt := range prompts {
		items[i] = Item{Index: i, Prompt: prompt}

		if err := ctx.Err(); err != nil {
			items[i].Err = err
			continue
		}

		i, prompt := i, prompt
		g.Go(func() error {
			item := &items[i]
			if err := ctx.Err(); err != nil {
				item.Err = err
				return nil
			}

			began := time.Now()
			ex, err := r.sender.Send(ctx, prompt)
			item.Duration = time.Since(began)
			if err != nil {
				item.Err = err
				r.logger.Warn("prompt failed", "index", i, "error", err)
				return nil
			}
			item.Exchange = ex
			rec.record(item.Duration)
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{
		Items:    items,
		Total:    len(items),
		Latency:  rec.latency(),
		Duration: time.Since(start),
	}
	for _, item := range items {
		switch {
		case item.Err != nil:
			summary.Failed++
		case !item.Exchange.Result.Found:
			summary.Succeeded++
			summary.Missed++
		default:
			summary.Succeeded++
		}
	}

	return summary, ctx.Err()
}
