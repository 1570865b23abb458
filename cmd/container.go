package cmd

import (
	"fmt"

	"github.com/compozy/autotag/internal/config"
	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"github.com/compozy/autotag/internal/service"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// container holds all the dependencies for the application.
type container struct {
	cfg    *config.Config
	logger *zap.Logger

	gitRepo    repository.GitRepository
	remote     repository.RemoteRepository
	classifier service.Classifier
	journal    repository.JournalRepository
}

// loadConfig reads the config file named by --config and merges command line flags.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	path, err := flags.GetString("config")
	if err != nil {
		path = ""
	}
	cfg, err := config.LoadConfig(path, flags)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newContainer creates a new container with all the dependencies.
func newContainer(flags *pflag.FlagSet) (*container, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := repository.GitOptions{
		Path:        ".",
		RemoteName:  cfg.Remote,
		Token:       cfg.GithubToken,
		TagMessage:  cfg.TagMessage,
		TaggerName:  cfg.TaggerName,
		TaggerEmail: cfg.TaggerEmail,
	}
	gitRepo, err := repository.NewGitRepository(opts)
	if err != nil {
		return nil, err
	}

	// The remote is optional - only create it when pushing
	var remote repository.RemoteRepository
	if cfg.Push {
		remote, err = newRemote(cfg, opts, gitRepo)
		if err != nil {
			return nil, err
		}
	}

	classifier, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}

	var journal repository.JournalRepository
	if cfg.Journal {
		journal = repository.NewJSONJournalRepository(afero.NewOsFs(), cfg.JournalDir)
	}

	logger.Debug("configuration loaded",
		zap.String("remote", cfg.Remote),
		zap.String("push_via", cfg.PushVia),
		zap.Bool("push", cfg.Push),
		zap.Int("rules", len(cfg.Rules)),
		zap.Bool("journal", cfg.Journal))

	return &container{
		cfg:        cfg,
		logger:     logger,
		gitRepo:    gitRepo,
		remote:     remote,
		classifier: classifier,
		journal:    journal,
	}, nil
}

func newRemote(
	cfg *config.Config,
	opts repository.GitOptions,
	gitRepo repository.GitRepository,
) (repository.RemoteRepository, error) {
	switch cfg.PushVia {
	case config.PushViaGithub:
		return repository.NewGithubRemote(cfg.GithubToken, cfg.GithubOwner, cfg.GithubRepo, gitRepo)
	default:
		return repository.NewGitRemote(opts)
	}
}

func newClassifier(cfg *config.Config) (service.Classifier, error) {
	defaultUpdate, err := domain.ParseUpdateType(cfg.DefaultUpdate)
	if err != nil {
		return nil, err
	}
	rules := make([]service.PathRule, 0, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		update, err := domain.ParseUpdateType(rule.Update)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, service.PathRule{Pattern: rule.Pattern, Update: update})
	}
	return service.NewPathRulesClassifier(rules, defaultUpdate, cfg.ReseatOnEmpty)
}

// newLogger builds a console logger on stderr so stdout stays free for CI output.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zcfg.DisableCaller = true
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
