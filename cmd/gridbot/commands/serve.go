package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridbot.ai/internal/metrics"
	"gridbot.ai/internal/persistence/snapshot"
	"gridbot.ai/internal/printer"
	"gridbot.ai/internal/sim/tuning"
	"gridbot.ai/internal/sim/world"
	"gridbot.ai/internal/transport/observer"
	"gridbot.ai/internal/transport/ws"
)

var (
	serveAddr     string
	serveInterval time.Duration
	serveStrict   bool

	checkpointPath  string
	checkpointEvery time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a generated world over websocket",
	Long: `Generates a world from the tuning file and serves it to remote agents on
` + ws.Path + `. Local observers can watch it on ` + observer.WSPath + ` and
Prometheus can scrape /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveInterval, "tick-interval", 100*time.Millisecond, "world clock period (energy regeneration)")
	serveCmd.Flags().BoolVar(&serveStrict, "strict", false, "validate inbound messages against the protocol schemas")
	serveCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "world checkpoint file, restored at start when present and written on shutdown")
	serveCmd.Flags().DurationVar(&checkpointEvery, "checkpoint-every", 0, "also write the checkpoint periodically (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	tu, err := loadTuning(cmd)
	if err != nil {
		return err
	}
	w, err := openWorld(tu)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)

	wsSrv := ws.NewServer(w, logger.Named("ws"))
	wsSrv.Strict = serveStrict
	wsSrv.OnRequest = m.ObserveRequest
	obs := observer.NewServer(w, logger.Named("observer"))

	mux := http.NewServeMux()
	mux.HandleFunc(ws.Path, wsSrv.Handler())
	mux.HandleFunc(observer.BootstrapPath, obs.BootstrapHandler())
	mux.HandleFunc(observer.WSPath, obs.WSHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		t := time.NewTicker(serveInterval)
		defer t.Stop()
		var save <-chan time.Time
		if checkpointPath != "" && checkpointEvery > 0 {
			st := time.NewTicker(checkpointEvery)
			defer st.Stop()
			save = st.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.Advance()
			case <-save:
				if err := saveCheckpoint(w); err != nil {
					logger.Warn("checkpoint failed", zap.Error(err))
				}
			}
		}
	}()

	srv := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	printer.Step("serving %dx%d world (seed %d) on %s%s\n", w.Rows(), w.Cols(), tu.Seed, serveAddr, ws.Path)
	logger.Info("listening", zap.String("addr", serveAddr), zap.Bool("strict", serveStrict))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return printer.Error("Server failed", err.Error(), []string{"Pick another --addr"})
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if checkpointPath != "" {
		if err := saveCheckpoint(w); err != nil {
			return printer.Error("Cannot write checkpoint", err.Error(), nil)
		}
		printer.Info("checkpoint written to %s\n", checkpointPath)
	}
	printer.Success("stopped at world tick %d\n", w.Tick())
	return nil
}

// openWorld restores the checkpoint when one exists and generates a fresh
// world from tuning otherwise.
func openWorld(tu tuning.Tuning) (*world.World, error) {
	if checkpointPath != "" {
		if _, err := os.Stat(checkpointPath); err == nil {
			snap, err := snapshot.ReadSnapshot(checkpointPath)
			if err != nil {
				return nil, printer.Error("Cannot read checkpoint", err.Error(), []string{"Remove " + checkpointPath + " to start a fresh world"})
			}
			w, err := world.Restore(snap)
			if err != nil {
				return nil, printer.Error("Cannot restore checkpoint", err.Error(), nil)
			}
			printer.Info("restored world at tick %d from %s\n", w.Tick(), checkpointPath)
			return w, nil
		}
	}
	w, err := world.New(tu.WorldConfig())
	if err != nil {
		return nil, printer.Error("Cannot build world", err.Error(), nil)
	}
	return w, nil
}

func saveCheckpoint(w *world.World) error {
	return snapshot.WriteSnapshot(checkpointPath, w.Checkpoint())
}
