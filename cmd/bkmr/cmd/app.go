package cmd

import (
	"context"
	"os"

	"github.com/bkmr/bkmr/internal/action"
	"github.com/bkmr/bkmr/internal/config"
	"github.com/bkmr/bkmr/internal/embedcache"
	"github.com/bkmr/bkmr/internal/query"
	"github.com/bkmr/bkmr/internal/store"
)

// Root-level persistent flags, wired in NewRootCmd and read by every
// subcommand's app wiring.
var (
	cfgFile    string
	dbOverride string
	debugMode  bool
)

// appContext holds every component wired together for one command
// invocation: the merged config, the open store, the in-memory vector
// index, the embedder, the embedding refresher, and the action dispatcher.
type appContext struct {
	Config     *config.Config
	Store      *store.Store
	Index      *store.VectorIndex
	Embedder   query.Embedder
	Refresher  *embedcache.Refresher
	Dispatcher *action.Dispatcher
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile, config.EnvSnapshot(), config.Overrides{DBURL: dbOverride})
}

// newEmbedder picks the OpenAI embedder when OPENAI_API_KEY is set,
// falling back to the deterministic hash-based stub, and wraps either in
// an LRU cache so repeated embeds of the same text skip the call.
func newEmbedder() embedcache.Embedder {
	var inner embedcache.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		inner = embedcache.NewOpenAIEmbedder(key)
	} else {
		inner = embedcache.HashEmbedder{}
	}
	return embedcache.NewCachedEmbedder(inner, embedcache.DefaultCacheSize)
}

func embeddingDimensions() int {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return embedcache.OpenAIEmbeddingDimensions
	}
	return embedcache.StubDimensions
}

// openApp loads the configuration, opens the store, rebuilds the vector
// index, and wires the embedding refresher and action dispatcher. The
// returned cleanup closes the store; callers must defer it.
func openApp(ctx context.Context) (*appContext, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(cfg.DBURL)
	if err != nil {
		return nil, nil, err
	}

	embedder := newEmbedder()
	idx, err := store.LoadFromStore(ctx, s, embeddingDimensions())
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}

	refresher := embedcache.New(s, idx, embedder)
	dispatcher := action.New(s, cfg)
	dispatcher.EmbedRefresher = refresher

	app := &appContext{
		Config:     cfg,
		Store:      s,
		Index:      idx,
		Embedder:   embedder,
		Refresher:  refresher,
		Dispatcher: dispatcher,
	}
	cleanup := func() { _ = s.Close() }
	return app, cleanup, nil
}
