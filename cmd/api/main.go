package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vaultline/wallet-core/internal/biometric"
	"github.com/vaultline/wallet-core/internal/challenge"
	"github.com/vaultline/wallet-core/internal/config"
	"github.com/vaultline/wallet-core/internal/devices"
	"github.com/vaultline/wallet-core/internal/enrollment"
	"github.com/vaultline/wallet-core/internal/ephemeral"
	"github.com/vaultline/wallet-core/internal/httpapi"
	"github.com/vaultline/wallet-core/internal/idempotency"
	"github.com/vaultline/wallet-core/internal/logging"
	"github.com/vaultline/wallet-core/internal/mailer"
	"github.com/vaultline/wallet-core/internal/passwordauth"
	"github.com/vaultline/wallet-core/internal/pending"
	"github.com/vaultline/wallet-core/internal/ratelimit"
	"github.com/vaultline/wallet-core/internal/signcount"
	"github.com/vaultline/wallet-core/internal/store"
	"github.com/vaultline/wallet-core/internal/tokensigner"
	"github.com/vaultline/wallet-core/internal/transfer"
	"github.com/vaultline/wallet-core/internal/wallet"
	"github.com/vaultline/wallet-core/internal/webauthnadapter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := logging.New(cfg.Server.Environment)
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("failed to parse redis url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()

	ephemeralStore := ephemeral.NewRedisStore(redisClient)

	signer := tokensigner.New(tokensigner.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		StepUpTTL:     cfg.JWT.StepUpTTLSeconds,
	})

	pendingStore := pending.New(db)
	limiter := ratelimit.New(ephemeralStore)
	idempotencyGate := idempotency.New(ephemeralStore)
	challengeStore := challenge.New(ephemeralStore, cfg.WebAuthn.ChallengeTTL)

	adapter, err := webauthnadapter.New(webauthnadapter.Config{
		RPID:          cfg.WebAuthn.RPID,
		RPName:        cfg.WebAuthn.RPName,
		Origins:       cfg.WebAuthn.Origins,
		SignCountMode: webauthnadapter.SignCountMode(cfg.WebAuthn.SignCountMode),
	})
	if err != nil {
		logger.Fatal("failed to configure webauthn relying party", zap.Error(err))
	}

	var mail mailer.Mailer
	if cfg.Server.Environment == "development" {
		mail = mailer.NewNoop()
	} else {
		mail = mailer.NewSMTP(mailer.Config{
			Host:        cfg.Mail.Host,
			Port:        cfg.Mail.Port,
			Username:    cfg.Mail.Username,
			Password:    cfg.Mail.Password,
			FromAddress: cfg.Mail.FromAddress,
			VerifyURL:   cfg.Mail.VerifyURL,
			ResetURL:    cfg.Mail.ResetURL,
		}, logger)
	}

	walletCfg := wallet.Config{
		DefaultCurrency:         cfg.Transfer.DefaultCurrency,
		MinAmountMinor:          cfg.Transfer.MinAmountMinor,
		MaxAmountMinor:          cfg.Transfer.MaxAmountMinor,
		AbsoluteMaxAmountMinor:  cfg.Transfer.AbsoluteMaxAmountMinor,
		DailyLimitMinor:         cfg.Transfer.DailyLimitMinor,
		HighValueThresholdMinor: cfg.Transfer.HighValueThresholdMinor,
	}

	passwordAuthSvc := passwordauth.New(db, pendingStore, signer, limiter, mail)
	biometricSvc := biometric.New(db, adapter, signcount.Mode(cfg.WebAuthn.SignCountMode), challengeStore, limiter, signer)
	enrollmentSvc := enrollment.New(db, adapter, challengeStore, limiter)
	devicesSvc := devices.New(db)
	walletSvc := wallet.New(db, walletCfg)
	transferSvc := transfer.New(db, signer, walletCfg)

	api := httpapi.New(logger, signer, idempotencyGate, passwordAuthSvc, biometricSvc, enrollmentSvc, devicesSvc, walletSvc, transferSvc)
	router := api.NewRouter(cfg.WebAuthn.Origins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
}
