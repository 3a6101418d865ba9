package orderapi

import (
	"context"
	"strconv"

	"kitchen-display/internal/common/config"
	"kitchen-display/internal/common/db"
	"kitchen-display/internal/common/httpx"
	"kitchen-display/internal/common/logger"
	"kitchen-display/internal/common/mq"
	"kitchen-display/internal/orderapi/handler"
	"kitchen-display/internal/orderapi/repository"
	"kitchen-display/internal/orderapi/service"
)

// Run wires the order API: Postgres for state, RabbitMQ for fanning
// snapshots out to the displays, plain HTTP on top.
func Run(ctx context.Context, cfg config.App, port int) error {
	lg := logger.New("order-service")

	conn, err := db.Connect(ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Pass, cfg.Database.Name)
	if err != nil {
		return err
	}
	defer conn.Close()

	mqc, err := mq.Dial(cfg.Rabbit.Host, cfg.Rabbit.Port, cfg.Rabbit.User, cfg.Rabbit.Pass)
	if err != nil {
		return err
	}
	defer mqc.Close()
	if err := mqc.DeclareOrdersExchange(); err != nil {
		return err
	}

	repo := repository.NewOrdersRepository(conn)
	svc := service.New(repo, mqc, lg)
	mux := handler.Router(handler.New(svc))

	lg.Info("service_started", map[string]any{"port": port})
	srv := httpx.New(":"+strconv.Itoa(port), mux)
	return srv.Run(ctx)
}
