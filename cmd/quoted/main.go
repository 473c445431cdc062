// quoted mirrors a configured set of swap-io concentrated liquidity pools and
// serves quotes and swap instructions over HTTP while a background refresher
// keeps the mirrors synchronized with the chain.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/swapio-fi/clmm-adapter/internal/adapter"
	"github.com/swapio-fi/clmm-adapter/internal/amm"
	"github.com/swapio-fi/clmm-adapter/internal/common"
	"github.com/swapio-fi/clmm-adapter/internal/config"
	adapterhttp "github.com/swapio-fi/clmm-adapter/internal/http"
	"github.com/swapio-fi/clmm-adapter/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on environment")
	}

	var generalCfg config.GeneralConfig
	if err := generalCfg.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load server config")
	}
	var rpcCfg config.RPCConfig
	if err := rpcCfg.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load rpc config")
	}
	var poolsCfg config.PoolsConfig
	if err := poolsCfg.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load pools config")
	}

	common.InitLogger(generalCfg.LogLevel, generalCfg.Env)

	client := rpc.New(rpcCfg.RPCUrl)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := scheduler.NewRegistry()
	fetcher := scheduler.NewRPCFetcher(client)
	if err := bootstrapPools(ctx, client, fetcher, registry, poolsCfg.PoolKeys); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap pools")
	}

	refresher := scheduler.NewRefresher(registry, fetcher, rpcCfg.RefreshInterval)
	go refresher.Run(ctx)

	server := &http.Server{
		Addr:    net.JoinHostPort(generalCfg.HTTPHost, generalCfg.HTTPPort),
		Handler: adapterhttp.NewRouter(generalCfg.Env, registry),
	}
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("pools", registry.Len()).
			Dur("refresh_interval", rpcCfg.RefreshInterval).
			Msg("quote service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

// bootstrapPools fetches the configured pool accounts, builds an adapter for
// each and runs the first refresh so the service starts with quotable state.
func bootstrapPools(ctx context.Context, client *rpc.Client, fetcher scheduler.Fetcher, registry *scheduler.Registry, poolKeys []solana.PublicKey) error {
	epochInfo, err := client.GetEpochInfo(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}

	snapshot, err := fetcher.FetchAccounts(ctx, poolKeys)
	if err != nil {
		return err
	}
	for _, key := range poolKeys {
		acc, ok := snapshot[key]
		if !ok || len(acc.Data) == 0 {
			log.Error().Str("pool", key.String()).Msg("pool account not found, skipping")
			continue
		}
		a, err := adapter.NewFromKeyedAccount(&amm.KeyedAccount{Key: key, Account: *acc}, epochInfo.Epoch)
		if err != nil {
			log.Error().Err(err).Str("pool", key.String()).Msg("pool rejected, skipping")
			continue
		}
		registry.Add(a)
		log.Info().
			Str("pool", key.String()).
			Str("program", a.ProgramID().String()).
			Msg("pool registered")
	}
	if registry.Len() == 0 {
		return errors.New("no usable pools after bootstrap")
	}
	return nil
}
