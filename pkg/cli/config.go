package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/Heterod0x/oto/pkg/adapter"
	"github.com/Heterod0x/oto/pkg/queue"
	"github.com/Heterod0x/oto/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Repository
	store    string
	project  string
	database string
	bucket   string

	// Providers
	openaiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string
	embeddingModel string
	mockProviders  bool

	// Point ledger
	ledgerEndpoint string
	ledgerToken    string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("OTO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Backing store (firestore or memory)",
			Value:       "firestore",
			Sources:     cli.EnvVars("OTO_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket for raw conversation audio",
			Value:       "raw-conversation-audio",
			Sources:     cli.EnvVars("OTO_AUDIO_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// providerFlags returns flags for transcription and LLM configuration
// with destination config
func providerFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key for transcription",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini generative model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini embedding model",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("GEMINI_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.BoolFlag{
			Name:        "mock-providers",
			Usage:       "Use mock transcription and acoustic scoring",
			Sources:     cli.EnvVars("OTO_MOCK_PROVIDERS"),
			Destination: &cfg.mockProviders,
		},
	}
}

// ledgerFlags returns flags for the point ledger service with
// destination config
func ledgerFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ledger-endpoint",
			Usage:       "Point ledger endpoint URL (mock ledger when empty)",
			Sources:     cli.EnvVars("OTO_LEDGER_ENDPOINT"),
			Destination: &cfg.ledgerEndpoint,
		},
		&cli.StringFlag{
			Name:        "ledger-token",
			Usage:       "Bearer token for the point ledger",
			Sources:     cli.EnvVars("OTO_LEDGER_TOKEN"),
			Destination: &cfg.ledgerToken,
		},
	}
}

// stores bundles the repository set and the task store behind one
// backing mode.
type stores struct {
	audio         repository.AudioRepository
	conversations repository.ConversationRepository
	contexts      repository.ContextRepository
	profiles      repository.ProfileRepository
	tasks         queue.Store

	closers []io.Closer
}

func (s *stores) Close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// newStores creates the repository set and the task store for the
// configured backing mode.
func (cfg *config) newStores(ctx context.Context) (*stores, error) {
	switch cfg.store {
	case "memory":
		mem := repository.NewMemory()
		return &stores{
			audio:         mem.Audio(),
			conversations: mem.Conversations(),
			contexts:      mem.Contexts(),
			profiles:      mem.Profiles(),
			tasks:         queue.NewMemoryStore(),
		}, nil

	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, goerr.New("database is required")
		}
		if cfg.bucket == "" {
			return nil, goerr.New("bucket is required")
		}

		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}

		taskStore, err := queue.NewFirestoreStore(ctx, cfg.project, cfg.database)
		if err != nil {
			_ = repo.Close()
			return nil, goerr.Wrap(err, "failed to create task store")
		}

		objectStore, err := adapter.NewStorage(ctx, cfg.bucket)
		if err != nil {
			_ = repo.Close()
			_ = taskStore.Close()
			return nil, goerr.Wrap(err, "failed to create audio storage")
		}

		return &stores{
			audio:         repository.NewAudio(objectStore),
			conversations: repo.Conversations(),
			contexts:      repo.Contexts(),
			profiles:      repo.Profiles(),
			tasks:         taskStore,
			closers:       []io.Closer{repo, taskStore},
		}, nil

	default:
		return nil, goerr.New("unknown store mode", goerr.V("store", cfg.store))
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	)
}

// newTranscriber creates the transcription capability
func (cfg *config) newTranscriber() (adapter.Transcriber, error) {
	if cfg.mockProviders {
		return &adapter.MockTranscriber{Text: "mock transcript"}, nil
	}
	if cfg.openaiAPIKey == "" {
		return nil, goerr.New("openai-api-key is required")
	}
	return adapter.NewWhisper(cfg.openaiAPIKey), nil
}

// newAcoustics creates the voice activity and sound quality scorers
func (cfg *config) newAcoustics() (adapter.VoiceActivityDetector, adapter.SoundQualityEvaluator) {
	if cfg.mockProviders {
		mock := &adapter.MockAcoustic{Ratio: 0.5, Score: 0.5}
		return mock, mock
	}
	acoustic := adapter.NewEnergyAcoustic()
	return acoustic, acoustic
}

// newLedger creates the point ledger client. Without an endpoint the
// mock ledger logs deltas instead of applying them.
func (cfg *config) newLedger() adapter.PointLedger {
	if cfg.ledgerEndpoint == "" {
		return &adapter.MockLedger{}
	}
	return adapter.NewLedger(cfg.ledgerEndpoint, cfg.ledgerToken)
}

// queueSettings is the optional YAML tuning file for the dispatcher.
type queueSettings struct {
	Workers        int    `yaml:"workers"`
	MaxAttempts    int    `yaml:"max_attempts"`
	PollInterval   string `yaml:"poll_interval"`
	HandlerTimeout string `yaml:"handler_timeout"`
	BaseBackoff    string `yaml:"base_backoff"`
}

// loadQueueOptions reads dispatcher options from a YAML file. An empty
// path means defaults.
func loadQueueOptions(path string) ([]queue.DispatcherOption, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read queue config", goerr.V("path", path))
	}

	var settings queueSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse queue config", goerr.V("path", path))
	}

	var opts []queue.DispatcherOption
	if settings.Workers > 0 {
		opts = append(opts, queue.WithWorkers(settings.Workers))
	}
	if settings.MaxAttempts > 0 {
		opts = append(opts, queue.WithMaxAttempts(settings.MaxAttempts))
	}

	durations := []struct {
		value string
		opt   func(time.Duration) queue.DispatcherOption
	}{
		{settings.PollInterval, queue.WithPollInterval},
		{settings.HandlerTimeout, queue.WithHandlerTimeout},
		{settings.BaseBackoff, queue.WithBaseBackoff},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid duration in queue config",
				goerr.V("path", path), goerr.V("value", d.value))
		}
		opts = append(opts, d.opt(parsed))
	}

	return opts, nil
}
