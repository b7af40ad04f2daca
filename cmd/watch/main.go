// Command watch follows a floorsync server the way a supervisor dashboard does and logs the
// live floor state: active sessions, stations in use, totals and per-job summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"floorsync/internal/livestore"
	"floorsync/internal/model"
	"floorsync/internal/pipeline"
	"floorsync/internal/stream"
	"floorsync/pkg/auth"
	"floorsync/pkg/config"
	"floorsync/pkg/constants"
	"floorsync/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	var (
		server      = flag.String("server", "http://localhost:8080", "floorsync server base URL")
		token       = flag.String("token", os.Getenv("FLOORSYNC_TOKEN"), "dashboard bearer token (defaults to $FLOORSYNC_TOKEN)")
		secret      = flag.String("secret", os.Getenv("FLOORSYNC_JWT_SECRET"), "mint a token with this dashboard secret when -token is empty")
		tokenTTL    = flag.Duration("token-ttl", 12*time.Hour, "lifetime of a minted token")
		useWS       = flag.Bool("ws", false, "stream over WebSocket instead of NDJSON")
		requireAuth = flag.Bool("require-auth", false, "refuse to connect without a usable token")
		sessionID   = flag.String("pipeline", "", "also follow the pipeline context of this session id")
		poll        = flag.Duration("poll", constants.SnapshotPollInterval, "snapshot polling period once streaming is abandoned")
		level       = flag.String("log-level", "info", "debug, info, warn, error")
	)
	flag.Parse()

	if err := logger.Init(config.LoggerConfig{Level: *level, Output: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *token == "" && *secret != "" {
		hostname, _ := os.Hostname()
		minted, err := auth.Issue(*secret, "floorsync-watch", "watch@"+hostname, "viewer", *tokenTTL, time.Now())
		if err != nil {
			logger.FatalCtx(ctx, "failed to mint dashboard token: %v", err)
		}
		*token = minted
	}

	cfg := stream.Config{
		BaseURL:      *server,
		Token:        *token,
		WebSocket:    *useWS,
		RequireAuth:  *requireAuth,
		PollInterval: *poll,
	}

	store := livestore.New()
	unsubscribe := store.Subscribe(newReporter(store).report)
	defer unsubscribe()

	var wg sync.WaitGroup
	run := func(name string, c *stream.Client) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				logger.WarnCtx(ctx, "%s stream stopped: %v", name, err)
			}
		}()
	}

	run("sessions", stream.NewSessionClient(store, cfg))
	if *sessionID != "" {
		feed := stream.NewPipelineFeed(func(pc *model.PipelineContext, p pipeline.Progress) {
			reportPipeline(pc, p)
		})
		run("pipeline", stream.NewPipelineClient(feed, *sessionID, cfg))
	}

	wg.Wait()
	logger.InfoCtx(ctx, "watcher stopped")
}

// reporter logs the floor state whenever the store publishes a new version
type reporter struct {
	store *livestore.Store

	mu          sync.Mutex
	lastVersion uint64
	lastState   livestore.ConnectionState
}

func newReporter(store *livestore.Store) *reporter {
	return &reporter{store: store}
}

func (r *reporter) report() {
	snap := r.store.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.State != r.lastState {
		r.lastState = snap.State
		fields := []zap.Field{zap.String("state", string(snap.State))}
		if snap.Error != "" {
			fields = append(fields, zap.String("detail", snap.Error))
		}
		logger.Info("connection", fields...)
	}
	if snap.Version == r.lastVersion {
		return
	}
	r.lastVersion = snap.Version

	logger.Info("floor",
		zap.Int("active_sessions", len(snap.SessionIDs)),
		zap.Int("stations", len(snap.StationIDs)),
		zap.Int64("total_good", snap.Stats.TotalGood),
		zap.Int64("total_scrap", snap.Stats.TotalScrap),
		zap.Uint64("version", snap.Version),
	)
	for _, job := range r.store.JobSummaries() {
		logger.Info("job",
			zap.String("job", jobLabel(job)),
			zap.Int("sessions", job.ActiveSessions),
			zap.Strings("stations", job.StationIDs),
			zap.Int64("good", job.TotalGood),
			zap.Int64("scrap", job.TotalScrap),
		)
	}
}

func jobLabel(job livestore.JobSummary) string {
	if job.JobNumber != "" {
		return job.JobNumber
	}
	return job.JobID
}

func reportPipeline(pc *model.PipelineContext, p pipeline.Progress) {
	fields := []zap.Field{
		zap.String("job_item", pc.JobItemID),
		zap.Int("completion_percent", p.CompletionPercent),
		zap.Int64("completed_good", p.CompletedGood),
		zap.Int64("total_wip", p.TotalWip),
		zap.Int64("not_entered", p.NotEntered),
	}
	if b, ok := p.Bottleneck(); ok {
		name := b.StationName
		if name == "" {
			name = b.StationID
		}
		fields = append(fields, zap.String("bottleneck", name), zap.Int64("bottleneck_wip", b.Wip))
	}
	logger.Info("pipeline", fields...)
}

