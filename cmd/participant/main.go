package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoxuxiansheng/redis_lock"

	"golang_saga/client"
	"golang_saga/example"
	"golang_saga/log"
)

type options struct {
	id            string
	listen        string
	coordinator   string
	redisAddress  string
	redisPassword string
	mysqlDSN      string
	logLevel      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "participant",
		Short:         "Run a demo participant that confirms or aborts saga transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(log.Config{Level: o.logLevel, Encoding: "console"}); err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			return run(cmd.Context(), o)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.id, "id", "componentA", "service name registered at the coordinator")
	flags.StringVar(&o.listen, "listen", "0.0.0.0:9001", "address to listen on")
	flags.StringVar(&o.coordinator, "coordinator", "http://127.0.0.1:8080", "coordinator base url")
	flags.StringVar(&o.redisAddress, "redis", "", "keep state in redis at host:port instead of memory")
	flags.StringVar(&o.redisPassword, "redis-password", "", "redis password")
	flags.StringVar(&o.mysqlDSN, "mysql-dsn", "", "keep state in mysql, e.g. user:pass@tcp(127.0.0.1:3306)/saga?parseTime=true")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level")
	return cmd
}

// newStore 按参数选择状态存储, 默认内存
func newStore(ctx context.Context, o *options) (example.StateStore, error) {
	switch {
	case o.redisAddress != "" && o.mysqlDSN != "":
		return nil, errors.New("--redis and --mysql-dsn are mutually exclusive")
	case o.redisAddress != "":
		return example.NewRedisStateStore(o.id, redis_lock.NewClient("tcp", o.redisAddress, o.redisPassword)), nil
	case o.mysqlDSN != "":
		db, err := example.NewDB(o.mysqlDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		store := example.NewGormStateStore(o.id, db)
		if err = store.AutoMigrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return example.NewMemoryStateStore(), nil
}

func run(ctx context.Context, o *options) error {
	store, err := newStore(ctx, o)
	if err != nil {
		return err
	}
	p := example.NewParticipant(o.id, store, client.NewClient(o.coordinator))
	defer p.Close()

	srv := &http.Server{Addr: o.listen, Handler: p}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("participant %s listening at %s", o.id, o.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
