package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang_saga/component"
	"golang_saga/config"
	"golang_saga/log"
	"golang_saga/metrics"
	"golang_saga/server"
	"golang_saga/txmanager"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "coordinator",
		Short:         "Run the saga transaction coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			if err = log.Init(c.Log); err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			return serve(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	cobra.CheckErr(config.BindFlags(v, cmd.Flags()))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the coordinator version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "coordinator %s\n", version)
			return err
		},
	}
}

// newTXManager 读取参与方列表并完成注册, 列表有误时直接返回错误
func newTXManager(c *config.Config, m *metrics.Metrics) (*txmanager.TXManager, error) {
	services, err := config.LoadServices(c.ServicesFile)
	if err != nil {
		return nil, err
	}

	store := txmanager.NewMemoryTXStore(txmanager.WithFullScan(c.Transaction.FullSweep))
	txManager := txmanager.NewTXManager(store,
		txmanager.WithTimeout(c.Transaction.Timeout),
		txmanager.WithDeadTimeout(c.Transaction.DeadTimeout),
		txmanager.WithMonitorTick(c.Transaction.SweepInterval),
		txmanager.WithPolling(c.Transaction.PollInterval, c.Transaction.PollAttempts),
		txmanager.WithMetrics(m),
	)
	for _, svc := range services {
		participant := component.NewHTTPParticipant(svc.Name, svc.Address,
			component.WithDeliverTimeout(c.Dispatch.Timeout),
			component.WithRetries(c.Dispatch.Retries, c.Dispatch.RetryInterval),
		)
		if err = txManager.Register(participant); err != nil {
			txManager.Stop()
			return nil, err
		}
		log.Infof("registered service %s at %s", svc.Name, participant.Address())
	}
	return txManager, nil
}

// shutdownTimeout 留足进行中 confirm 的最长等待时间
func shutdownTimeout(c *config.Config) time.Duration {
	return c.Transaction.PollInterval*time.Duration(c.Transaction.PollAttempts) + 5*time.Second
}

func serve(ctx context.Context, c *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	txManager, err := newTXManager(c, metrics.New(reg))
	if err != nil {
		return err
	}
	defer txManager.Stop()

	srv := server.New(txManager, server.Options{
		Version:         version,
		Gatherer:        reg,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: shutdownTimeout(c),
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(c.Listen)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Infof("shutting down")
	if err = srv.Close(); err != nil {
		return err
	}
	return <-errCh
}
