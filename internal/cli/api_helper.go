package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/config"
	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/events"
	"github.com/taxdesk/portal-client/internal/http"
	"github.com/taxdesk/portal-client/internal/logging"
	"github.com/taxdesk/portal-client/internal/services"
)

// loadConfig loads the config file and environment, then applies the
// global flags. Priority: flags > environment > config file > defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if apiToken != "" {
		cfg.APIToken = apiToken
	}
	if portalURL != "" {
		cfg.PortalURL = portalURL
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIToken) {
			return nil, fmt.Errorf("API token is required (use --api-token, %s, or 'taxdesk config init')", config.EnvAPIToken)
		}
		return nil, err
	}

	if http.NeedsProxyPassword(cfg) {
		password, err := promptSecret(fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, fmt.Errorf("failed to read proxy password: %w", err)
		}
		cfg.ProxyPassword = password
	}

	configureLogger(cfg)
	return cfg, nil
}

// configureLogger applies the [logging] section unless --verbose/--debug
// already lowered the level.
func configureLogger(cfg *config.Config) {
	if !verbose && !debug && cfg.Logging.Level != "" {
		logging.SetGlobalLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	path, err := cfg.Logging.ResolvedLogFile()
	if err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to create log directory, logging to console only")
		return
	}
	if path == "" {
		return
	}
	l, err := logging.NewLogger(os.Stderr, path)
	if err != nil {
		GetLogger().Warn().Err(err).Str("log_file", path).Msg("Failed to open log file, logging to console only")
		return
	}
	logger = l
}

// promptSecret reads a line without echo when stdin is a terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	var line string
	_, err := fmt.Fscanln(os.Stdin, &line)
	return strings.TrimSpace(line), err
}

// getAPIClient loads configuration and creates an API client.
func getAPIClient() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := api.NewClient(cfg, api.WithLogger(GetLogger()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return client, cfg, nil
}

// session wires the services for one command run.
type session struct {
	cfg     *config.Config
	client  *api.Client
	bus     *events.EventBus
	browse  *services.BrowseService
	listing *services.Listing
	archive *services.ArchiveService
	esign   *services.ESignService

	logDone sync.WaitGroup
}

// newSession creates the API client and services from the loaded config.
func newSession() (*session, error) {
	client, cfg, err := getAPIClient()
	if err != nil {
		return nil, err
	}
	log := GetLogger()

	s := &session{
		cfg:    cfg,
		client: client,
		bus:    events.NewEventBus(constants.EventBusDefaultBuffer),
	}
	s.browse = services.NewBrowseService(client, s.bus, services.BrowseServiceConfig{
		ShowArchived: cfg.Browse.ShowArchived,
		Logger:       log,
	})
	s.listing = services.NewListing(s.browse, cfg.Browse.PageSize)
	s.archive = services.NewArchiveService(client, s.browse.Workspace(), s.browse, s.bus, log)
	s.esign = services.NewESignService(client, s.bus, services.ESignConfig{
		MaxAttempts:  cfg.ESign.MaxAttempts,
		PollInterval: cfg.ESign.PollInterval(),
		Logger:       log,
	})

	s.traceEvents(log)
	return s, nil
}

// traceEvents logs every bus event at debug level until the bus closes.
func (s *session) traceEvents(log *logging.Logger) {
	ch := s.bus.SubscribeAll()
	s.logDone.Add(1)
	go func() {
		defer s.logDone.Done()
		for ev := range ch {
			log.Debug().Str("event", string(ev.Type())).Interface("payload", ev).Msg("Event")
		}
	}()
}

// Close stops coordinations, drains the event log and closes the log file.
func (s *session) Close() {
	s.esign.CancelAll()
	s.bus.Close()
	s.logDone.Wait()
	if s.bus.GetDroppedEventCount() > 0 {
		GetLogger().Debug().Int64("dropped", s.bus.GetDroppedEventCount()).Msg("Event bus dropped events")
	}
	_ = GetLogger().Close()
}
