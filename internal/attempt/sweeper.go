package attempt

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically runs Engine.Reconcile so expiries survive restarts and
// replicas that never armed a timer.
type Sweeper struct {
	engine  *Engine
	cron    *cron.Cron
	timeout time.Duration
}

func NewSweeper(engine *Engine, schedule string) (*Sweeper, error) {
	if schedule == "" {
		schedule = "@every 30s"
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s := &Sweeper{engine: engine, cron: c, timeout: 25 * time.Second}
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	submitted, armed, err := s.engine.Reconcile(ctx)
	if err != nil {
		log.Printf("[AttemptSweeper] %v", err)
		return
	}
	if submitted > 0 || armed > 0 {
		log.Printf("[AttemptSweeper] submitted=%d armed=%d", submitted, armed)
	}
}

// Start reconciles once immediately and then on schedule.
func (s *Sweeper) Start() {
	s.run()
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
