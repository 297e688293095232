package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/config"
	"github.com/dmitrijs2005/eumgrid/internal/client/grid"
	"github.com/dmitrijs2005/eumgrid/internal/client/services"
	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/client/transport"
	"github.com/dmitrijs2005/eumgrid/internal/dateutil"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"golang.org/x/text/language"
)

// App holds everything a command needs for one process run.
type App struct {
	config      *config.Config
	logger      logging.Logger
	metrics     *metrics.Metrics
	session     session.Accessor
	transport   *transport.Transport
	authService services.AuthService
	gridService services.GridService
	formatter   *grid.Formatter
	dates       dateutil.Helpers
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp wires the transport and services from c. Prompts read from in,
// command output goes to out.
func NewApp(c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	m := metrics.New()
	store := session.NewMemoryStore()

	tr, err := transport.New(c.BaseURL, c.RequestTimeout, store,
		transport.WithLogger(logger.With("component", "transport")),
		transport.WithMetrics(m),
		transport.WithOnTerminated(func(err error) {
			logger.Warn(context.Background(), "session terminated, log in again", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("init transport: %w", err)
	}

	loc := c.Location()
	api := grid.NewAPI(tr, logger.With("component", "grid-api"))
	factory := grid.RequestFactory{Session: store, Source: c.Source}

	return &App{
		config:      c,
		logger:      logger,
		metrics:     m,
		session:     store,
		transport:   tr,
		authService: services.NewAuthService(tr, store, logger.With("component", "auth")),
		gridService: services.NewGridService(api, factory,
			grid.WithLocation(loc),
			grid.WithLogger(logger.With("component", "grid")),
			grid.WithMetrics(m),
		),
		formatter: grid.NewFormatter(language.AmericanEnglish, loc),
		dates:     dateutil.Helpers{Now: func() time.Time { return time.Now().In(loc) }},
		reader:    bufio.NewReader(in),
		out:       out,
	}, nil
}

// Run executes the command line args (program name excluded, config flags
// already stripped).
func (a *App) Run(ctx context.Context, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
