package session

import (
	"context"
	"errors"
	"sort"

	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/modal"
	log "github.com/sirupsen/logrus"
)

// GlobalFit is the rational fraction fit of one channel.
type GlobalFit struct {
	Channel int
	// Result is the best effort fit, also set alongside a Convergence Err
	Result *modal.RFPResult
	Err    error
}

// FitGlobal fits the whole FRF of every target channel with numerator and
// denominator order 2K, K being the number of peaks with a complete summary.
// The denominator is seeded from those summaries. Per channel failures are
// returned on the rows; cancellation discards every row.
func (m *Manager) FitGlobal(ctx context.Context) ([]GlobalFit, error) {
	const op = "session.FitGlobal"

	m.mu.Lock()
	var seeds []modal.Parameters
	for _, p := range m.peaks {
		if p.Complete() {
			seeds = append(seeds, p.Parameters())
		}
	}
	targets := m.set.Targets(m.opts.Targets...)
	type job struct {
		ch int
		w  []float64
		h  []complex128
	}
	jobs := make([]job, 0, len(targets))
	var out []GlobalFit
	for _, t := range targets {
		w, h, err := m.slice(t)
		if err != nil {
			out = append(out, GlobalFit{Channel: t, Err: err})
			continue
		}
		jobs = append(jobs, job{ch: t, w: w, h: h})
	}
	rfp := m.opts.RFP
	m.mu.Unlock()

	if len(seeds) == 0 {
		return nil, failure.New(failure.DomainReject, op, "no fitted peaks to seed from")
	}
	order := 2 * len(seeds)
	rfp.InitialP = nil
	rfp.InitialQ = modal.ModalDenominator(seeds)

	for _, j := range jobs {
		ch := j.ch
		opts := rfp
		opts.Progress = func(iter int, residual float64) {
			m.emit(Event{Type: FitProgress, PeakID: NoPeak, Channel: ch, Iteration: iter, Residual: residual})
		}
		res, err := modal.FitRFP(ctx, j.w, j.h, order, order, opts)
		if errors.Is(err, failure.ErrCancelled) {
			return nil, err
		}
		if err != nil {
			log.WithFields(log.Fields{
				"channel": ch,
				"order":   order,
			}).Warnf("Global fit: %v", err)
		}
		out = append(out, GlobalFit{Channel: ch, Result: res, Err: err})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Channel < out[b].Channel })
	return out, nil
}
