package session

import (
	"errors"
	"math"
	"sync"

	"github.com/samjwillis97/GoModal/pkg/channel"
	"github.com/samjwillis97/GoModal/pkg/failure"
	"github.com/samjwillis97/GoModal/pkg/modal"
	log "github.com/sirupsen/logrus"
)

// Source names the datasets read from each channel.
type Source struct {
	Freq string
	FRF  string
}

// Options configure a Manager.
type Options struct {
	Source Source
	// Targets restricts the channels fitted, none means all
	Targets []int
	TEMA    modal.TEMAOptions
	RFP     modal.RFPOptions
}

// DefaultOptions reads datasets w and H from every channel.
func DefaultOptions() Options {
	return Options{
		Source: Source{Freq: "w", FRF: "H"},
		TEMA:   modal.DefaultTEMAOptions(),
		RFP:    modal.DefaultRFPOptions(),
	}
}

// Manager owns the ordered list of peaks picked on a channel set.
//
// The channel set is only read. Listeners are called after the state change
// is complete and may call back into the Manager.
type Manager struct {
	mu   sync.Mutex
	set  *channel.Set
	opts Options

	peaks   []*Peak
	nextID  int
	current int

	listeners    map[int]Listener
	nextListener int
}

// NewManager returns an empty Manager over set.
func NewManager(set *channel.Set, opts Options) *Manager {
	def := DefaultOptions()
	if opts.Source.Freq == "" {
		opts.Source.Freq = def.Source.Freq
	}
	if opts.Source.FRF == "" {
		opts.Source.FRF = def.Source.FRF
	}
	return &Manager{
		set:       set,
		opts:      opts,
		current:   NoPeak,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l and returns a function removing it.
func (m *Manager) Subscribe(l Listener) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	m.mu.Lock()
	ls := make([]Listener, 0, len(m.listeners))
	for i := 0; i < m.nextListener; i++ {
		if l, ok := m.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	m.mu.Unlock()
	for _, e := range events {
		for _, l := range ls {
			l(e)
		}
	}
}

func (m *Manager) find(id int) (int, *Peak, error) {
	for i, p := range m.peaks {
		if p.ID == id {
			return i, p, nil
		}
	}
	return -1, nil, failure.New(failure.DomainReject, "session", "no peak %d", id)
}

// slice reads the signal slice of channel index ch.
func (m *Manager) slice(ch int) ([]float64, []complex128, error) {
	const op = "session.slice"
	c, ok := m.set.Channel(ch)
	if !ok {
		return nil, nil, failure.New(failure.InputShape, op, "no channel %d", ch)
	}
	w, ok := c.Float64s(m.opts.Source.Freq)
	if !ok {
		return nil, nil, failure.New(failure.InputShape, op, "channel %d has no real dataset %q", ch, m.opts.Source.Freq)
	}
	h, ok := c.Complex128s(m.opts.Source.FRF)
	if !ok {
		return nil, nil, failure.New(failure.InputShape, op, "channel %d has no complex dataset %q", ch, m.opts.Source.FRF)
	}
	return w, h, nil
}

// fit runs the circle fit and TEMA extraction on the peak window of one
// channel, writing every cell not overridden by hand.
func (m *Manager) fit(p *Peak, row *ChannelFit) {
	auto := func(params modal.Parameters) {
		values := [NumParams]float64{params.Freq, params.Damping, params.Magnitude, params.Phase}
		for _, param := range Params {
			if row.Cells[param].Origin == Manual {
				continue
			}
			if math.IsNaN(values[param]) {
				row.Cells[param] = Cell{}
				continue
			}
			row.Cells[param] = Cell{Value: values[param], Origin: Auto}
		}
	}
	empty := modal.Parameters{Freq: math.NaN(), Damping: math.NaN(), Magnitude: math.NaN(), Phase: math.NaN()}

	res, err := m.extract(p, row)
	row.Err = err
	if err != nil {
		log.WithFields(log.Fields{
			"peak":    p.ID,
			"channel": row.Index,
		}).Warnf("Peak fit failed: %v", err)
		auto(empty)
		return
	}
	row.PeakIndex = res.PeakIndex
	auto(res.Parameters)
}

func (m *Manager) extract(p *Peak, row *ChannelFit) (*modal.TEMAResult, error) {
	w, h, err := m.slice(row.Index)
	if err != nil {
		return nil, err
	}
	if err := modal.ValidateSlice("session.fit", w, h, modal.MinSliceLen); err != nil {
		return nil, err
	}
	ws, hs := modal.Bracket(w, h, p.Lo, p.Hi)
	if len(ws) == 0 {
		return nil, failure.New(failure.DomainReject, "session.fit", "empty bracket [%g, %g]", p.Lo, p.Hi)
	}
	circle, err := modal.FitCircle(hs)
	row.Circle = circle
	if err != nil {
		return nil, err
	}
	return modal.ExtractTEMA(ws, hs, circle, m.opts.TEMA)
}

// AddPeak creates a peak over [lo, hi], fits every target channel and selects
// it. Channel failures are kept on the rows and leave their cells empty.
func (m *Manager) AddPeak(lo, hi float64) (int, error) {
	const op = "session.AddPeak"
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return NoPeak, failure.New(failure.InputShape, op, "window [%g, %g]", lo, hi)
	}

	m.mu.Lock()
	targets := m.set.Targets(m.opts.Targets...)
	if len(targets) == 0 {
		m.mu.Unlock()
		return NoPeak, failure.New(failure.InputShape, op, "no channels to fit")
	}
	p := &Peak{ID: m.nextID, Lo: lo, Hi: hi, Channels: make([]ChannelFit, len(targets))}
	m.nextID++
	for i, t := range targets {
		p.Channels[i].Index = t
		m.fit(p, &p.Channels[i])
	}
	p.summarise()
	m.peaks = append(m.peaks, p)
	m.current = p.ID
	m.mu.Unlock()

	log.Debugf("Added peak %d over [%g, %g] on %d channels", p.ID, lo, hi, len(targets))
	m.emit(Event{Type: PeakChanged, PeakID: p.ID}, Event{Type: SelectionChanged, PeakID: p.ID})
	return p.ID, nil
}

// DeletePeak removes the peak id.
func (m *Manager) DeletePeak(id int) error {
	if n := m.DeletePeaks(id); n == 0 {
		return failure.New(failure.DomainReject, "session.DeletePeak", "no peak %d", id)
	}
	return nil
}

// DeletePeaks removes every listed peak and returns how many were removed.
// Unknown ids are ignored.
func (m *Manager) DeletePeaks(ids ...int) int {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	m.mu.Lock()
	kept := m.peaks[:0]
	var events []Event
	removed := 0
	for _, p := range m.peaks {
		if drop[p.ID] {
			removed++
			events = append(events, Event{Type: PeakChanged, PeakID: p.ID, Removed: true})
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(m.peaks); i++ {
		m.peaks[i] = nil
	}
	m.peaks = kept
	if drop[m.current] {
		m.current = NoPeak
		events = append(events, Event{Type: SelectionChanged, PeakID: NoPeak})
	}
	m.mu.Unlock()

	m.emit(events...)
	return removed
}

// SetManual overrides one cell and marks it manual.
func (m *Manager) SetManual(id, ch int, param Param, value float64) error {
	if err := param.validate(value); err != nil {
		return err
	}
	m.mu.Lock()
	_, p, err := m.find(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	row, ok := p.Channel(ch)
	if !ok {
		m.mu.Unlock()
		return failure.New(failure.DomainReject, "session.SetManual", "peak %d has no channel %d", id, ch)
	}
	row.Cells[param] = Cell{Value: value, Origin: Manual}
	p.summarise()
	m.mu.Unlock()

	m.emit(Event{Type: PeakChanged, PeakID: id})
	return nil
}

// ResetCell drops a manual override and refits that channel.
func (m *Manager) ResetCell(id, ch int, param Param) error {
	if param < 0 || int(param) >= NumParams {
		return failure.New(failure.UnknownKey, "session.ResetCell", "%s", param)
	}
	m.mu.Lock()
	_, p, err := m.find(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	row, ok := p.Channel(ch)
	if !ok {
		m.mu.Unlock()
		return failure.New(failure.DomainReject, "session.ResetCell", "peak %d has no channel %d", id, ch)
	}
	row.Cells[param] = Cell{}
	m.fit(p, row)
	p.summarise()
	m.mu.Unlock()

	m.emit(Event{Type: PeakChanged, PeakID: id})
	return nil
}

// Recompute refits the cells of peak id still marked auto.
func (m *Manager) Recompute(id int) error {
	m.mu.Lock()
	_, p, err := m.find(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	for i := range p.Channels {
		m.fit(p, &p.Channels[i])
	}
	p.summarise()
	m.mu.Unlock()

	m.emit(Event{Type: PeakChanged, PeakID: id})
	return nil
}

// Select makes id the current peak; NoPeak clears the selection.
func (m *Manager) Select(id int) error {
	m.mu.Lock()
	if id != NoPeak {
		if _, _, err := m.find(id); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	changed := m.current != id
	m.current = id
	m.mu.Unlock()

	if changed {
		m.emit(Event{Type: SelectionChanged, PeakID: id})
	}
	return nil
}

// CurrentPeakID returns the selected peak or NoPeak.
func (m *Manager) CurrentPeakID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Peak returns a copy of peak id.
func (m *Manager) Peak(id int) (Peak, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, p, err := m.find(id)
	if err != nil {
		return Peak{}, false
	}
	return p.clone(), true
}

// Peaks returns copies of every peak in creation order.
func (m *Manager) Peaks() []Peak {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Peak, len(m.peaks))
	for i, p := range m.peaks {
		out[i] = p.clone()
	}
	return out
}

// Errors joins the fit failures of every row of peak id.
func (m *Manager) Errors(id int) error {
	p, ok := m.Peak(id)
	if !ok {
		return nil
	}
	var errs []error
	for _, row := range p.Channels {
		if row.Err != nil {
			errs = append(errs, row.Err)
		}
	}
	return errors.Join(errs...)
}
