package pipeline

import (
	"context"
	"fmt"
	"time"

	"junction-worker-go/internal/models"
)

type commandResult struct {
	changed  bool
	autoMode bool
	err      error
}

// command is a mutation requested from outside the loop.
type command struct {
	apply func() commandResult
	reply chan commandResult
}

// ToggleAutoMode flips the controller's auto-release mode from another
// goroutine and returns the new mode.
func (p *Pipeline) ToggleAutoMode(ctx context.Context) (bool, error) {
	res, err := p.submit(ctx, func() commandResult {
		return commandResult{changed: true, autoMode: p.controller.ToggleAutoMode()}
	})
	return res.autoMode, err
}

// SetSignalState manually switches a signal from another goroutine. It reports
// whether the state changed.
func (p *Pipeline) SetSignalState(ctx context.Context, id string, state models.SignalState) (bool, error) {
	res, err := p.submit(ctx, func() commandResult {
		changed, err := p.controller.SetState(id, state, p.advance(time.Time{}))
		return commandResult{changed: changed, autoMode: p.controller.AutoMode(), err: err}
	})
	if err != nil {
		return false, err
	}
	return res.changed, res.err
}

func (p *Pipeline) submit(ctx context.Context, apply func() commandResult) (commandResult, error) {
	cmd := command{apply: apply, reply: make(chan commandResult, 1)}

	select {
	case p.commands <- cmd:
	case <-ctx.Done():
		return commandResult{}, fmt.Errorf("pipeline busy: %w", ctx.Err())
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-ctx.Done():
		return commandResult{}, fmt.Errorf("waiting for pipeline: %w", ctx.Err())
	}
}

func (p *Pipeline) execute(cmd command) {
	res := cmd.apply()
	for _, ev := range p.controller.DrainEvents() {
		ev.SessionID = p.sessionID
		p.pending.Events = append(p.pending.Events, ev)
	}
	p.publish(p.loopTime)
	cmd.reply <- res
}
