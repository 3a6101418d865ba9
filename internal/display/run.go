package display

import (
	"context"
	"time"

	"kitchen-display/internal/common/config"
	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/common/mq"
	"kitchen-display/internal/display/escalate"
	"kitchen-display/internal/display/remote"
	"kitchen-display/internal/display/view"
	"kitchen-display/internal/domain"
)

// Run starts one display instance: subscribe to the snapshot fanout, load
// ground truth over HTTP, then feed everything into the session loop until
// the process is told to stop.
func Run(ctx context.Context, cfg config.App, role string) error {
	lg := logger.New(role + "-display")

	mqc, err := mq.Dial(cfg.Rabbit.Host, cfg.Rabbit.Port, cfg.Rabbit.User, cfg.Rabbit.Pass)
	if err != nil {
		return err
	}
	defer mqc.Close()

	queue, err := mqc.DeclareDisplayQueue("")
	if err != nil {
		return err
	}
	deliveries, err := mqc.Consume(queue, role+"-display", 32)
	if err != nil {
		return err
	}

	views := view.KitchenViews()
	if role == "waiter" {
		views = view.WaiterViews()
	}

	sess := NewSession(Config{
		TickInterval: time.Duration(cfg.Display.TickSeconds) * time.Second,
		Thresholds: escalate.Thresholds{
			Warning: time.Duration(cfg.Display.WarningSeconds) * time.Second,
			Overdue: time.Duration(cfg.Display.OverdueSeconds) * time.Second,
		},
		Views: views,
		OnChange: func(ps []Projection) {
			fields := map[string]any{}
			for _, p := range ps {
				fields[string(p.View)] = len(p.Orders)
			}
			lg.Debug("queues_updated", fields)
		},
		Alert: func(o domain.Order) {
			lg.Info("alert_sound_played", map[string]any{"order_id": o.ID, "table": o.TableRef})
		},
	}, remote.NewClient(cfg.Display.OrderAPIURL), lg)

	sess.Start(ctx)
	defer sess.Close()

	lg.Info("display_started", map[string]any{"role": role, "queue": queue})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			// Malformed payloads are dropped inside the synchronizer;
			// acking regardless keeps the display queue from wedging.
			sess.Enqueue(d.Body)
			_ = d.Ack(false)
		}
	}
}
