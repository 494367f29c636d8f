package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"main/internal/cache"
	"main/internal/channel"
	"main/internal/model"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/session"
	"main/internal/transport"
	"main/pkg/conn"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	if err := run(); err != nil {
		log.Printf("stream: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.json", "config file path")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Profiler.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading/stream",
			ServerAddress:   cfg.Profiler.ServerAddress,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	store := session.NewStore()
	store.Set(cfg.Credentials)

	ch, err := channel.New(channel.Option{
		Dialer: &transport.WebSocketDialer{
			Endpoint: cfg.Endpoint,
		},
		Credentials:       store,
		Retry:             cfg.Retry,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ConnectTimeout:    cfg.ConnectTimeout,
	})
	if err != nil {
		return err
	}

	// Credential changes are edge-triggered connect signals.
	cancelWatch := store.Watch(func(creds session.Credentials) {
		if creds.Valid() {
			ch.Reconnect()
		} else {
			ch.Disconnect()
		}
	})
	defer cancelWatch()

	unsubscribeStatus := ch.Subscribe(model.EventConnectionStatus, logStatus)
	defer unsubscribeStatus()

	var wg sync.WaitGroup

	if cfg.Recorder.Enabled {
		db, err := conn.OpenPostgres(cfg.Recorder.Postgres)
		if err != nil {
			return err
		}
		defer func() {
			_ = conn.ClosePostgres(db)
		}()

		rec, err := recorder.New(db, cfg.Recorder.QueueSize)
		if err != nil {
			return err
		}
		defer rec.Attach(ch)()
		defer rec.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Run(ctx)
		}()
	}

	if cfg.Cache.Enabled {
		prices, err := cache.NewPriceCache(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer func() {
			_ = prices.Close()
		}()
		defer prices.Attach(ch)()
		wg.Add(1)
		go func() {
			defer wg.Done()
			prices.Run(ctx)
		}()
	}

	ch.Connect()

	select {
	case <-sys.Shutdown():
	case <-ctx.Done():
	}

	ch.Disconnect()
	stop()
	wg.Wait()
	return nil
}

func logStatus(ev model.Envelope) {
	var status model.ConnectionStatus
	if err := ev.Decode(&status); err != nil {
		return
	}
	logs.Infof("connection status: %s (attempt %d/%d)", status.Status, status.Attempt, status.MaxRetries)
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
