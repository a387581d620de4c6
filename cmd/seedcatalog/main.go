// cmd/seedcatalog/main.go loads catalog items into the price list.
// Usage: go run ./cmd/seedcatalog [items.json]
// Without a file a small demo catalog is written.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"oficina/internal/config"
	"oficina/internal/infra"
	"oficina/internal/model"
	"oficina/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var demoCatalog = []model.CatalogItem{
	{Name: "Troca de óleo", Kind: model.ItemService, Price: decimal.RequireFromString("80.00"), Active: true},
	{Name: "Alinhamento e balanceamento", Kind: model.ItemService, Price: decimal.RequireFromString("120.00"), Active: true},
	{Name: "Óleo 5W30 1L", Kind: model.ItemProduct, Price: decimal.RequireFromString("42.90"), Active: true},
	{Name: "Filtro de óleo", Kind: model.ItemProduct, Price: decimal.RequireFromString("35.50"), Active: true},
	{Name: "Pastilha de freio (jogo)", Kind: model.ItemProduct, Price: decimal.RequireFromString("159.90"), Active: true},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	items := demoCatalog
	if len(os.Args) > 1 {
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatal().Err(err).Str("file", os.Args[1]).Msg("read catalog file")
		}
		items = nil
		if err := json.Unmarshal(raw, &items); err != nil {
			log.Fatal().Err(err).Msg("parse catalog file")
		}
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// Redis is optional here; without it cached entries simply expire.
	var rdb *redis.Client
	if client, err := infra.NewRedis(cfg.RedisURL); err == nil {
		rdb = client
	} else {
		log.Warn().Err(err).Msg("redis unavailable, cache not invalidated")
	}

	repo := repository.NewCatalogRepository(db, rdb)
	ctx := context.Background()
	for i := range items {
		it := &items[i]
		if !it.Kind.Valid() {
			log.Fatal().Str("name", it.Name).Str("kind", string(it.Kind)).Msg("invalid item kind")
		}
		if err := repo.Save(ctx, it); err != nil {
			log.Fatal().Err(err).Str("name", it.Name).Msg("save catalog item")
		}
		log.Info().Str("id", it.ID.String()).Str("name", it.Name).Str("price", it.Price.StringFixed(2)).Msg("catalog item saved")
	}
}
