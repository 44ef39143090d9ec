package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/store"
)

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// DefaultInterval is used when no poll interval is configured.
const DefaultInterval = 3 * time.Second

// HistoryLimit is how many pipelines per blueprint the cache keeps.
const HistoryLimit = 50

// PipelineSource lists the pipelines of a blueprint.
type PipelineSource interface {
	ListBlueprintPipelines(ctx context.Context, blueprintID int) (*model.PipelineList, error)
}

// PipelinesMsg is a tea.Msg sent after every poll of a blueprint.
type PipelinesMsg struct {
	BlueprintID int
	Pipelines   []model.Pipeline

	// Finished holds pipelines that reached a terminal status since the
	// previous poll.
	Finished []model.Pipeline

	// Done is set once every pipeline is terminal and polling has stopped.
	Done bool

	// Stale marks Pipelines as last known runs read from the local cache
	// because the backend could not be reached.
	Stale bool

	Error     error
	AuthError bool
}

// watch is the polling loop of one blueprint.
type watch struct {
	trigger chan struct{}
	stop    chan struct{}
}

// PipelinePoller refreshes the pipelines of watched blueprints until all of
// them are terminal. Each watch polls immediately, then on every tick.
// Failed polls are reported and retried only on the next tick.
type PipelinePoller struct {
	source   PipelineSource
	store    store.Store
	interval time.Duration
	log      zerolog.Logger

	mu       gosync.Mutex
	watches  map[int]*watch
	resultCh chan PipelinesMsg
}

// New creates a poller. st may be nil, in which case nothing is cached.
func New(src PipelineSource, st store.Store, interval time.Duration, log zerolog.Logger) *PipelinePoller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &PipelinePoller{
		source:   src,
		store:    st,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
		watches:  make(map[int]*watch),
		resultCh: make(chan PipelinesMsg, 16),
	}
}

// Watch starts polling a blueprint. A blueprint that is already watched is
// polled again right away. Results arrive through WaitForNextResult.
func (p *PipelinePoller) Watch(blueprintID int) {
	p.mu.Lock()
	if w, ok := p.watches[blueprintID]; ok {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
		p.mu.Unlock()
		return
	}
	w := &watch{
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	p.watches[blueprintID] = w
	p.mu.Unlock()

	p.log.Debug().Int("blueprint", blueprintID).Msg("watch started")
	go p.run(blueprintID, w)
}

// SetSource points the poller at another backend. Polls already in flight
// finish against the previous one.
func (p *PipelinePoller) SetSource(src PipelineSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
}

// WatchCount returns how many blueprints are being polled.
func (p *PipelinePoller) WatchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

// Watching reports whether a blueprint is currently polled.
func (p *PipelinePoller) Watching(blueprintID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[blueprintID]
	return ok
}

// Unwatch stops polling a blueprint.
func (p *PipelinePoller) Unwatch(blueprintID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.watches[blueprintID]; ok {
		close(w.stop)
		delete(p.watches, blueprintID)
	}
}

// Stop halts every polling goroutine.
func (p *PipelinePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, w := range p.watches {
		close(w.stop)
		delete(p.watches, id)
	}
}

// run is the polling loop of one blueprint.
func (p *PipelinePoller) run(blueprintID int, w *watch) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		msg := p.Poll(ctx, blueprintID)
		cancel()

		select {
		case <-w.stop:
			return
		default:
		}

		if msg.Done {
			// A Watch that arrived during the poll keeps the loop alive.
			msg.Done = p.finish(blueprintID, w)
			p.sendResult(msg)
			if msg.Done {
				return
			}
			continue
		}
		p.sendResult(msg)

		select {
		case <-w.stop:
			return
		case <-ticker.C:
		case <-w.trigger:
		}
	}
}

// finish drops the watch unless it was already replaced. It reports false,
// keeping the watch, when a trigger is pending.
func (p *PipelinePoller) finish(blueprintID int, w *watch) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-w.trigger:
		return false
	default:
	}
	if cur, ok := p.watches[blueprintID]; ok && cur == w {
		delete(p.watches, blueprintID)
	}
	p.log.Debug().Int("blueprint", blueprintID).Msg("all pipelines finished, watch stopped")
	return true
}

// Poll fetches the pipelines of one blueprint once, caches them, and records
// a notification for every pipeline that finished since the last poll.
func (p *PipelinePoller) Poll(ctx context.Context, blueprintID int) PipelinesMsg {
	msg := PipelinesMsg{BlueprintID: blueprintID}

	p.mu.Lock()
	src := p.source
	p.mu.Unlock()

	list, err := src.ListBlueprintPipelines(ctx, blueprintID)
	if err != nil {
		p.log.Warn().Err(err).Int("blueprint", blueprintID).Msg("polling pipelines failed")
		msg.Error = err
		msg.AuthError = devlake.IsAuthError(err)
		if p.store != nil && !msg.AuthError {
			msg.Pipelines, msg.Stale = p.cachedPipelines(ctx, blueprintID)
		}
		return msg
	}
	msg.Pipelines = list.Pipelines
	msg.Done = model.AllTerminal(list.Pipelines)

	if p.store == nil {
		return msg
	}

	previous := p.cachedStatuses(ctx, blueprintID)
	for _, pl := range list.Pipelines {
		prev, seen := previous[pl.ID]
		if seen && !prev.IsTerminal() && pl.Status.IsTerminal() {
			msg.Finished = append(msg.Finished, pl)
		}
	}

	if err := p.store.UpsertPipelines(ctx, list.Pipelines); err != nil {
		p.log.Error().Err(err).Int("blueprint", blueprintID).Msg("caching pipelines failed")
		return msg
	}
	if err := p.store.PrunePipelines(ctx, blueprintID, HistoryLimit); err != nil {
		p.log.Error().Err(err).Int("blueprint", blueprintID).Msg("pruning pipeline cache failed")
	}

	for _, pl := range msg.Finished {
		n := model.Notification{
			BlueprintID: blueprintID,
			PipelineID:  pl.ID,
			Status:      pl.Status,
			Message:     fmt.Sprintf("Pipeline #%d of blueprint #%d: %s", pl.ID, blueprintID, pl.Status.Label()),
			CreatedAt:   time.Now(),
		}
		if err := p.store.CreateNotification(ctx, n); err != nil {
			p.log.Error().Err(err).Int("pipeline", pl.ID).Msg("recording notification failed")
		}
	}

	return msg
}

// cachedPipelines returns the last known runs of a blueprint, newest first.
func (p *PipelinePoller) cachedPipelines(ctx context.Context, blueprintID int) ([]model.Pipeline, bool) {
	cached, err := p.store.GetPipelines(ctx, store.PipelineFilter{
		BlueprintID: &blueprintID,
		Limit:       HistoryLimit,
	})
	if err != nil || len(cached) == 0 {
		return nil, false
	}
	return cached, true
}

func (p *PipelinePoller) cachedStatuses(ctx context.Context, blueprintID int) map[int]model.PipelineStatus {
	cached, err := p.store.GetPipelines(ctx, store.PipelineFilter{BlueprintID: &blueprintID})
	if err != nil {
		p.log.Error().Err(err).Int("blueprint", blueprintID).Msg("reading pipeline cache failed")
		return nil
	}
	out := make(map[int]model.PipelineStatus, len(cached))
	for _, c := range cached {
		out[c.ID] = c.Status
	}
	return out
}

// sendResult sends a PipelinesMsg on the result channel without blocking.
func (p *PipelinePoller) sendResult(msg PipelinesMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// It should be called again after every PipelinesMsg to keep listening.
func (p *PipelinePoller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// Results exposes the result channel to non-interactive callers.
func (p *PipelinePoller) Results() <-chan PipelinesMsg {
	return p.resultCh
}
