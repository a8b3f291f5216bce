// Command nevis-connect runs the social account connection service.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charo360/nevis-connect/internal/cache"
	memcache "github.com/charo360/nevis-connect/internal/cache/memory"
	rediscache "github.com/charo360/nevis-connect/internal/cache/redis"
	"github.com/charo360/nevis-connect/internal/config"
	"github.com/charo360/nevis-connect/internal/email"
	connectctrl "github.com/charo360/nevis-connect/internal/http/controllers/connect"
	mw "github.com/charo360/nevis-connect/internal/http/middlewares"
	"github.com/charo360/nevis-connect/internal/http/router"
	connectsvc "github.com/charo360/nevis-connect/internal/http/services/connect"
	"github.com/charo360/nevis-connect/internal/metrics"
	"github.com/charo360/nevis-connect/internal/oauth/instagram"
	"github.com/charo360/nevis-connect/internal/oauth/linkedin"
	"github.com/charo360/nevis-connect/internal/oauth/twitter"
	"github.com/charo360/nevis-connect/internal/observability/logger"
	"github.com/charo360/nevis-connect/internal/rate"
	"github.com/charo360/nevis-connect/internal/security/secretbox"
	"github.com/charo360/nevis-connect/internal/state"
	"github.com/charo360/nevis-connect/internal/store/adapters/memory"
	"github.com/charo360/nevis-connect/internal/store/adapters/pg"
	"github.com/charo360/nevis-connect/internal/store/core"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using system environment: %v", err)
	}

	cfgPath := flag.String("config", envOr("CONNECT_CONFIG", "config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logEnv := cfg.App.Env
	if cfg.Log.Format == "json" {
		logEnv = "prod"
	}
	logger.Init(logger.Config{
		Env:         logEnv,
		Level:       cfg.Log.Level,
		ServiceName: "nevis-connect",
	})
	defer func() { _ = logger.Sync() }()
	zl := logger.L()

	if cfg.Security.MasterKey != "" {
		if err := secretbox.Init(cfg.Security.MasterKey); err != nil {
			zl.Fatal("master key rejected", logger.Err(err))
		}
	}
	if cfg.Storage.Driver == "postgres" && cfg.Security.MasterKey == "" && os.Getenv("CONNECT_MASTER_KEY") == "" {
		zl.Fatal("postgres storage requires security.master_key or CONNECT_MASTER_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache backend for state records.
	var c cache.Cache
	var limiter rate.Limiter
	switch cfg.Cache.Kind {
	case "redis":
		rc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Password, cfg.Cache.Redis.Prefix)
		if err := rc.Ping(ctx); err != nil {
			zl.Fatal("redis unreachable", logger.Err(err))
		}
		c = rc
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rc.Client(), "rl:", cfg.Rate.MaxRequests, config.Duration(cfg.Rate.Window))
		}
	default:
		c = memcache.New(cfg.StateTTL())
		if cfg.Rate.Enabled {
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, config.Duration(cfg.Rate.Window))
		}
	}
	states := state.New(c, cfg.StateTTL())

	// Connection store.
	var repo core.ConnectionRepository
	switch cfg.Storage.Driver {
	case "postgres":
		pgRepo, perr := pg.New(ctx, cfg.Storage.DSN)
		if perr != nil {
			zl.Fatal("postgres unreachable", logger.Err(perr))
		}
		if cfg.Storage.Migrate {
			if err := pg.Migrate(ctx, pgRepo.Pool()); err != nil {
				zl.Fatal("migrations failed", logger.Err(err))
			}
		}
		repo = pgRepo
	default:
		repo = memory.New()
		zl.Warn("using in-memory connection store, nothing will persist")
	}

	flows := buildFlows(cfg, zl)
	if len(flows) == 0 {
		zl.Warn("no providers configured, only management endpoints will work")
	}

	var notifier connectsvc.Notifier
	if cfg.SMTP.Enabled {
		sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		sender.TLSMode = cfg.SMTP.TLS
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		notifier = &email.LinkNotifier{
			Sender: sender,
			ResolveEmail: func(userID string) (string, bool) {
				conns, err := repo.ListByUser(context.Background(), userID)
				if err != nil {
					return "", false
				}
				for _, cn := range conns {
					if cn.Email != "" {
						return cn.Email, true
					}
				}
				return "", false
			},
		}
	}

	if err := metrics.Register(nil); err != nil {
		zl.Fatal("metrics registration failed", logger.Err(err))
	}

	svc := connectsvc.NewService(connectsvc.Deps{
		States:      states,
		Connections: repo,
		Flows:       flows,
		Notifier:    notifier,
	})

	handler := router.New(router.Deps{
		Start:       connectctrl.NewStartController(svc, cfg.Server.FrontendURL),
		Callback:    connectctrl.NewCallbackController(svc, cfg.Server.FrontendURL),
		Connections: connectctrl.NewConnectionsController(svc),
		Auth: mw.AuthConfig{
			Secret:        []byte(cfg.Auth.JWTSecret),
			AllowDemoUser: cfg.Auth.AllowDemoUser,
			DemoUserID:    cfg.Auth.DemoUserID,
		},
		RateLimiter: limiter,
		Repo:        repo,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.Duration(cfg.Server.IdleTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownGrace))
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Fatal("server failed", logger.Err(err))
	}
}

// buildFlows assembles one Flow per enabled provider.
func buildFlows(cfg *config.Config, zl *zap.Logger) []connectsvc.Flow {
	var flows []connectsvc.Flow
	p := &cfg.Providers

	if p.Twitter.Enabled {
		tw := twitter.New(p.Twitter.ConsumerKey, p.Twitter.ConsumerSecret)
		flows = append(flows, connectsvc.NewTwitterFlow(tw, p.Twitter.CallbackURL))
		zl.Info("provider enabled", logger.Platform("twitter"))
	}
	if p.LinkedIn.Enabled {
		li := linkedin.New(p.LinkedIn.ClientID, p.LinkedIn.ClientSecret, p.LinkedIn.RedirectURL, p.LinkedIn.Scopes)
		flows = append(flows, connectsvc.NewOAuth2Flow("linkedin", connectsvc.NewLinkedInProvider(li), false))
		zl.Info("provider enabled", logger.Platform("linkedin"))
	}
	if p.Instagram.Enabled {
		ig := instagram.New(p.Instagram.ClientID, p.Instagram.ClientSecret, p.Instagram.RedirectURL, p.Instagram.Scopes)
		flows = append(flows, connectsvc.NewOAuth2Flow("instagram", connectsvc.NewInstagramProvider(ig), p.Instagram.UsePKCE))
		zl.Info("provider enabled", logger.Platform("instagram"))
	}
	return flows
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
