// Command seed loads a local development fixture file (a factory/
// launchpad address, a starting block, and a list of tokens to
// pre-register) and writes its tokens into the database, so a developer
// can stand up a working indexer instance without waiting for chain
// discovery to populate the tokens table on its own. The factory and
// launchpad addresses and the start block are only logged, not stored.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ammindexer/internal/config"
	"ammindexer/internal/repository"

	"gopkg.in/yaml.v3"
)

type fixture struct {
	FactoryAddress   string        `yaml:"factory_address"`
	LaunchpadAddress string        `yaml:"launchpad_address"`
	StartBlock       uint64        `yaml:"start_block"`
	Tokens           []fixtureToken `yaml:"tokens"`
}

type fixtureToken struct {
	Address     string `yaml:"address"`
	Symbol      string `yaml:"symbol"`
	Decimals    uint8  `yaml:"decimals"`
	CoingeckoID string `yaml:"coingecko_id"`
}

func main() {
	path := flag.String("file", "seed.yaml", "path to the dev fixture file")
	flag.Parse()

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read fixture: %v", err)
	}

	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("parse fixture: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	repo, err := repository.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	for _, t := range fx.Tokens {
		id := t.CoingeckoID
		var coingeckoID *string
		if id != "" {
			coingeckoID = &id
		}
		if err := repo.InsertToken(ctx, config.EnsureHexAddress(t.Address), t.Symbol, t.Decimals, coingeckoID); err != nil {
			log.Fatalf("seed token %s: %v", t.Address, err)
		}
		log.Printf("seeded token %s (%s)", t.Symbol, t.Address)
	}

	log.Printf("fixture loaded: factory=%s launchpad=%s start_block=%d tokens=%d",
		fx.FactoryAddress, fx.LaunchpadAddress, fx.StartBlock, len(fx.Tokens))
}
