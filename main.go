package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/PortlandKyGuy/langroid/internal/agent/chat"
	"github.com/PortlandKyGuy/langroid/internal/agent/docchat"
	"github.com/PortlandKyGuy/langroid/internal/agent/llm"
	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	"github.com/PortlandKyGuy/langroid/internal/agent/repo"
	"github.com/PortlandKyGuy/langroid/internal/core"
	"github.com/PortlandKyGuy/langroid/internal/parsing"
	"github.com/PortlandKyGuy/langroid/internal/vecstore"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
	pkgredis "github.com/PortlandKyGuy/langroid/pkg/redis"
)

// AppConfig defines all configurable parameters for the doc-chat example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Chat     model.ChatModelConfig
	Agent    model.ChatAgentConfig
	Cache    model.CacheConfig
	Crawl    model.CrawlConfig
	VecStore model.VecStoreConfig
	DocChat  model.DocChatConfig
}

var (
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	noteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func main() {
	var (
		debug     bool
		nocache   bool
		cacheType string
	)

	root := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with a retrieval-augmented LLM over your documents and URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), debug, nocache, cacheType)
		},
	}
	root.Flags().BoolVarP(&debug, "debug", "d", false, "debug mode")
	root.Flags().BoolVar(&nocache, "nocache", false, "don't use the LLM response cache")
	root.Flags().StringVar(&cacheType, "cachetype", "redis", "response cache backend (redis)")

	var maxDepth int
	crawlCmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "List the URLs reachable from a seed page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := ""
			if len(args) == 1 {
				seed = args[0]
			}
			return runCrawl(cmd.Context(), seed, maxDepth)
		},
	}
	crawlCmd.Flags().IntVar(&maxDepth, "depth", -1, "maximum crawl depth")
	root.AddCommand(crawlCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logx.Fatal().Err(err).Msg("docchat failed")
	}
}

func runChat(ctx context.Context, debug, nocache bool, cacheType string) error {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Debug:       debug,
	})

	cfg.Cache.Enabled = cfg.Cache.Enabled && !nocache
	if cacheType != "" {
		cfg.Cache.Type = cacheType
	}

	client, err := llm.NewClient(ctx, llm.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return err
	}
	chatModel, err := llm.NewChatModel(ctx, client, cfg.Chat)
	if err != nil {
		return err
	}

	if cfg.Cache.Enabled {
		cache, err := buildResponseCache(cfg)
		if err != nil {
			return err
		}
		chatModel = llm.NewCachedModel(chatModel, cache, cfg.Chat.Model)
	}

	embedder := vecstore.NewGeminiEmbedder(client, cfg.VecStore.EmbedModel)
	store, err := buildVectorStore(cfg, embedder)
	if err != nil {
		return err
	}
	defer store.Close()

	prompter := parsing.NewPrompter(os.Stdin, os.Stdout)

	collectionName, isNew, replace, err := chooseCollection(ctx, store, prompter, cfg.VecStore.Collection)
	if err != nil {
		return err
	}
	if err := store.SetCollection(ctx, collectionName, replace); err != nil {
		return err
	}

	fmt.Println(infoStyle.Render("Welcome to the document chatbot!"))
	fmt.Println(noteStyle.Render("Enter x or q to quit"))
	fmt.Println(infoStyle.Render("Enter some URLs or file/dir paths below (type 'done' or hit return to finish)"))
	inputs := prompter.List("", 0)
	if len(inputs) == 0 && isNew {
		inputs = cfg.DocChat.DefaultPaths
	}

	persona := prompter.Ask("Tell me who I am; complete this sentence: You are...", "a helpful assistant.")
	persona = regexp.MustCompile(`(?i)you are`).ReplaceAllString(persona, "")
	cfg.Agent.SystemMessage = "You are " + strings.TrimSpace(persona)

	// the prompter already scans stdin; Run must share its buffer or piped
	// input gets read ahead and lost
	agent := docchat.New(cfg.DocChat, cfg.Agent, cfg.Crawl, chatModel, store,
		chat.WithIO(os.Stdin, os.Stdout),
		chat.WithScanner(prompter.Scanner()))
	if _, err := agent.Ingest(ctx, inputs); err != nil {
		return err
	}

	return agent.Run(ctx)
}

// runCrawl walks outbound links from the seed (defaulting to the configured
// seed URL) and prints every URL visited.
func runCrawl(ctx context.Context, seed string, maxDepth int) error {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg model.CrawlConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("process environment config: %w", err)
	}
	if seed == "" {
		seed = cfg.SeedURL
	}
	if maxDepth < 0 {
		maxDepth = cfg.MaxDepth
	}

	visited, err := parsing.NewCrawler(cfg).Crawl(ctx, seed, maxDepth)
	if err != nil {
		return err
	}
	for u := range visited {
		fmt.Println(u)
	}
	return nil
}

// chooseCollection reproduces the interactive selection flow: list existing
// collections (after clearing empty ones), let the user pick one, delete all,
// or name a new one.
func chooseCollection(ctx context.Context, store vecstore.VectorStore, prompter *parsing.Prompter, defaultName string) (name string, isNew, replace bool, err error) {
	nDeletes, err := store.ClearEmptyCollections(ctx)
	if err != nil {
		return "", false, false, err
	}
	collections, err := store.ListCollections(ctx, false)
	if err != nil {
		return "", false, false, err
	}

	choice := 0
	if n := len(collections); n > 0 {
		deleteStr := ""
		if nDeletes > 0 {
			deleteStr = fmt.Sprintf(" (deleted %d empty collections)", nDeletes)
		}
		fmt.Println(infoStyle.Render(fmt.Sprintf("Found %d collections:%s", n, deleteStr)))
		for i, option := range collections {
			fmt.Printf("%d. %s\n", i+1, option)
		}

		for {
			answer := prompter.Ask(fmt.Sprintf(
				"Enter 1-%d to select a collection, or hit ENTER to create a NEW collection, or -1 to DELETE ALL COLLECTIONS", n), "0")
			v, convErr := strconv.Atoi(answer)
			if convErr == nil && v >= -1 && v <= n {
				choice = v
				break
			}
		}

		if choice == -1 {
			confirm := prompter.AskChoice("Are you sure you want to delete all collections?", []string{"y", "n"}, "n")
			if confirm == "y" {
				if _, err := store.ClearAllCollections(ctx, true, ""); err != nil {
					return "", false, false, err
				}
			}
			choice = 0
		}

		if choice > 0 {
			name = collections[choice-1]
			fmt.Println(infoStyle.Render("Using collection " + name))
			answer := prompter.AskChoice("Would you like to replace this collection?", []string{"y", "n"}, "n")
			return name, false, answer == "y", nil
		}
	}

	name = prompter.Ask("What would you like to name the NEW collection?", defaultName)
	return name, true, false, nil
}

func buildResponseCache(cfg AppConfig) (model.ResponseCache, error) {
	if cfg.Cache.Type != "redis" {
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Cache.Type)
	}
	ttl, err := time.ParseDuration(cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", cfg.Cache.TTL, err)
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Warn().Err(err).Msg("redis unavailable; using in-process response cache")
		return repo.NewMemoryResponseCache(), nil
	}
	return repo.NewRedisResponseCache(rdb, ttl), nil
}

func buildVectorStore(cfg AppConfig, embedder vecstore.Embedder) (vecstore.VectorStore, error) {
	switch cfg.VecStore.Backend {
	case "memory":
		return vecstore.NewMemoryStore(embedder), nil
	case "sqlite":
		return vecstore.NewSQLiteStore(cfg.VecStore.StoragePath, embedder)
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("initialise redis vector store: %w", err)
		}
		return vecstore.NewRedisStore(rdb, embedder), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VecStore.Backend)
	}
}
