// Package checkout runs the simulated payment flow that gates a booking.
// Nothing here talks to a payment provider; the pipeline is a scripted,
// cancellable sequence of timed steps that reports progress.
package checkout

import (
	"context"
	"time"
)

type Step struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// DefaultSteps is the five-stage flow shown to the patient, in order.
func DefaultSteps() []Step {
	return []Step{
		{Name: "Verifying payment details", Duration: 1500 * time.Millisecond},
		{Name: "Checking doctor availability", Duration: 1200 * time.Millisecond},
		{Name: "Securing appointment", Duration: 1000 * time.Millisecond},
		{Name: "Processing payment", Duration: 2000 * time.Millisecond},
		{Name: "Confirming booking", Duration: 800 * time.Millisecond},
	}
}

// Progress is one report from a running pipeline. Percent never decreases
// within a run and reaches 100 only on the final report.
type Progress struct {
	Step    int     `json:"step"`
	Steps   int     `json:"steps"`
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Done    bool    `json:"done"`
}

const defaultTick = 100 * time.Millisecond

type Pipeline struct {
	steps []Step
	tick  time.Duration
}

// NewPipeline scales every step duration by scale. A scale of 0 makes the
// pipeline complete immediately, which the CLI and tests rely on.
func NewPipeline(scale float64, steps ...Step) *Pipeline {
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	if scale < 0 {
		scale = 0
	}
	scaled := make([]Step, len(steps))
	for i, s := range steps {
		scaled[i] = Step{Name: s.Name, Duration: time.Duration(float64(s.Duration) * scale)}
	}
	tick := time.Duration(float64(defaultTick) * scale)
	if tick <= 0 {
		tick = time.Millisecond
	}
	return &Pipeline{steps: scaled, tick: tick}
}

func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

func (p *Pipeline) Total() time.Duration {
	var total time.Duration
	for _, s := range p.steps {
		total += s.Duration
	}
	return total
}

// Run walks the steps in order, reporting at each step boundary and on every
// tick in between. Cancelling ctx stops the run and returns ctx.Err(); the
// final Done report is only sent when every step finished.
func (p *Pipeline) Run(ctx context.Context, onProgress func(Progress)) error {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	if len(p.steps) == 0 {
		return ctx.Err()
	}
	total := p.Total()
	last := 0.0
	emit := func(i int, pct float64, done bool) {
		if pct < last {
			pct = last
		}
		if !done && pct >= 100 {
			pct = 99.9
		}
		last = pct
		onProgress(Progress{Step: i + 1, Steps: len(p.steps), Name: p.steps[i].Name, Percent: pct, Done: done})
	}

	var elapsed time.Duration
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(i, percent(elapsed, total), false)
		if err := p.wait(ctx, step.Duration, func(in time.Duration) {
			emit(i, percent(elapsed+in, total), false)
		}); err != nil {
			return err
		}
		elapsed += step.Duration
	}
	emit(len(p.steps)-1, 100, true)
	return nil
}

func (p *Pipeline) wait(ctx context.Context, d time.Duration, onTick func(time.Duration)) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			in := time.Since(start)
			if in > d {
				in = d
			}
			onTick(in)
		}
	}
}

func percent(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(elapsed) / float64(total) * 100
}
