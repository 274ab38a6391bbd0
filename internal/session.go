package zbxchart

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ChartSession fetches graph images from the Zabbix web front-end.
//
// The JSON-RPC API does not render graphs, so the session logs in through the
// HTML login form and keeps the resulting cookie in its own jar. Settings are
// fixed at construction; only the login mutates the jar.
//
// A ChartSession is not safe for concurrent use.
type ChartSession struct {
	settings Settings
	client   *http.Client
	log      logrus.FieldLogger
	metrics  *Metrics
	stdout   io.Writer

	loginAttempted bool
}

// Option configures a ChartSession
type Option func(*ChartSession)

// WithLogger sets the logger used for request tracing
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *ChartSession) {
		s.log = log
	}
}

// WithMetrics instruments the session's transport and chart writes
func WithMetrics(m *Metrics) Option {
	return func(s *ChartSession) {
		s.metrics = m
	}
}

// WithStdout replaces the writer used when a chart is not saved to a file
func WithStdout(w io.Writer) Option {
	return func(s *ChartSession) {
		s.stdout = w
	}
}

// WithTransport sets the round tripper beneath the cookie jar and metrics
func WithTransport(rt http.RoundTripper) Option {
	return func(s *ChartSession) {
		s.client.Transport = rt
	}
}

// NewChartSession builds a session from already resolved settings without
// touching the network. Call Login, or use Connect, before fetching charts;
// fetching without a login attempt performs one first.
func NewChartSession(settings Settings, opts ...Option) (*ChartSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := &ChartSession{
		settings: settings,
		client: &http.Client{
			Jar:     jar,
			Timeout: settings.Timeout,
		},
		log:    defaultLogger(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.client.Transport = s.metrics.InstrumentRoundTripper(s.client.Transport)
	}
	return s, nil
}

// Connect resolves settings against env, builds a session and logs in.
// A rejected login is not an error; only transport failures are returned.
func Connect(ctx context.Context, explicit Settings, env Env, opts ...Option) (*ChartSession, error) {
	s, err := NewChartSession(Resolve(explicit, env), opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Login(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return l
}

// Settings returns the resolved settings of the session
func (s *ChartSession) Settings() Settings {
	return s.settings
}

// BaseURL returns the normalized front-end URL
func (s *ChartSession) BaseURL() string {
	return s.settings.BaseURL
}

// Login posts the credentials to the front-end login form. The response is
// drained and discarded; a failed sign-in only shows up later as a chart
// request answered with the login page.
func (s *ChartSession) Login(ctx context.Context) error {
	s.loginAttempted = true

	form := url.Values{
		"name":     {s.settings.Username},
		"password": {s.settings.Password},
		"enter":    {"Sign in"},
	}
	loginURL := s.settings.BaseURL + LOGIN_PATH

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.log.WithFields(logrus.Fields{
		"url":    loginURL,
		"user":   s.settings.Username,
		"status": resp.StatusCode,
	}).Debug("Login form submitted")
	return nil
}
