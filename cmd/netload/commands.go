package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/container-resource-predictor/netload/internal/api"
	"github.com/container-resource-predictor/netload/internal/config"
	"github.com/container-resource-predictor/netload/internal/httpclient"
	"github.com/container-resource-predictor/netload/internal/loadtest"
	"github.com/container-resource-predictor/netload/internal/monitor"
	"github.com/container-resource-predictor/netload/internal/service"
	"github.com/container-resource-predictor/netload/internal/storage"
	"github.com/container-resource-predictor/netload/pkg/common"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "netload",
		Short:         "HTTP load tester and network latency anomaly monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (default $CONFIG_FILE)")

	root.AddCommand(
		newServeCmd(&configPath),
		newLoadTestCmd(&configPath),
		newMeasureCmd(&configPath),
	)
	return root
}

// buildService assembles the components from cfg. reg may be nil.
func buildService(cfg config.Config, reg prometheus.Registerer) *service.Service {
	client := httpclient.New(httpclient.Options{
		Timeout:      cfg.RequestTimeout,
		MaxIdleConns: cfg.MaxIdleConns,
	})

	monitorMetrics := monitor.NewMetrics(reg)
	mon, err := monitor.New(cfg.Monitor.WindowSize, cfg.Monitor.AnomalyThreshold, monitorMetrics)
	if err != nil {
		// config.Load validated these settings already.
		log.Fatalf("[netload] Invalid monitor settings: %v", err)
	}
	sampler := monitor.NewSampler(client, monitor.WithProbes(cfg.Monitor.ProbeCount, cfg.Monitor.ProbeInterval))

	return service.New(service.Deps{
		Engine:    loadtest.NewEngine(client, loadtest.NewMetrics(reg)),
		History:   storage.NewRunHistory(cfg.LoadTest.HistorySize),
		Sampler:   sampler,
		Monitor:   mon,
		Scheduler: monitor.NewScheduler(sampler, mon, monitorMetrics),
	})
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			server := common.NewServer("netload", cfg.Port)
			svc := buildService(cfg, server.Registry())
			defer svc.Close()

			if cfg.Monitor.TargetURL != "" {
				if err := svc.StartNetworkMonitoring(cfg.MonitoringSession()); err != nil {
					return fmt.Errorf("start monitoring: %w", err)
				}
			} else {
				log.Println("[netload] Background sampling disabled; use POST /api/v1/monitoring/start to begin")
			}

			api.NewHandler(svc).RegisterRoutes(server.Router())
			server.RunWithGracefulShutdown()
			return nil
		},
	}
}

func newLoadTestCmd(configPath *string) *cobra.Command {
	var ltc loadtest.Config

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a single load test and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc := buildService(cfg, nil)
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := svc.RunLoadTest(ctx, ltc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&ltc.URL, "url", "u", "", "target URL")
	cmd.Flags().StringVarP(&ltc.Method, "method", "m", "GET", "HTTP method (GET or POST)")
	cmd.Flags().IntVarP(&ltc.Concurrency, "concurrency", "n", 10, "maximum requests in flight")
	cmd.Flags().IntVarP(&ltc.TotalRequests, "requests", "r", 100, "total number of requests")
	cmd.MarkFlagRequired("url")
	return cmd
}

func newMeasureCmd(configPath *string) *cobra.Command {
	var (
		target string
		score  bool
	)

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure latency and packet loss for a URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			svc := buildService(cfg, nil)
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sample, err := svc.MeasureNetworkMetrics(ctx, target)
			if err != nil {
				return err
			}
			if !score {
				return printJSON(cmd.OutOrStdout(), sample)
			}
			result, err := svc.UpdateMetrics(sample)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&target, "url", "u", "", "target URL")
	cmd.Flags().BoolVar(&score, "score", false, "score the sample against an empty window and print the detection result")
	cmd.MarkFlagRequired("url")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
