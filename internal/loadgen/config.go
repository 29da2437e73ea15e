package loadgen

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wesleyorama2/loadlab/internal/config"
	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

// ProcessPath is the server route the driver targets when the configured
// URL carries no path.
const ProcessPath = "/process"

// Config contains configuration for a load run.
type Config struct {
	// URL is the server base URL or the full /process URL
	URL string

	// Preset names a server-side preset; explicit Params override it
	Preset string

	// Params are sent as query parameters; zero fields are omitted
	Params simulation.Params

	// VUs is the number of concurrent virtual users (default: 1)
	VUs int

	// Rate paces arrivals in requests per second; 0 means every VU fires
	// as soon as its previous request completes
	Rate float64

	// Duration is the length of the run
	Duration time.Duration

	// Timeout bounds a single request (default: 30s)
	Timeout time.Duration

	// Sketch configures the latency sketches
	Sketch metrics.SketchConfig
}

// Validate checks the configuration and returns config.ValidationErrors
// when anything is wrong.
func (c *Config) Validate() error {
	errs := &config.ValidationErrors{}

	if strings.TrimSpace(c.URL) == "" {
		errs.Add("url", "is required")
	} else if u, err := url.Parse(c.URL); err != nil {
		errs.Add("url", err.Error())
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("url", "scheme must be http or https")
	}
	if c.VUs < 0 {
		errs.Add("vus", "must not be negative")
	}
	if c.Rate < 0 {
		errs.Add("rate", "must not be negative")
	}
	if c.Duration <= 0 {
		errs.Add("duration", "must be positive")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must not be negative")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// TargetURL returns the request URL with the simulation query applied.
func (c *Config) TargetURL() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", c.URL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = ProcessPath
	}

	query, err := url.ParseQuery(c.Params.Encode())
	if err != nil {
		return "", errors.WithStack(err)
	}
	if c.Preset != "" {
		query.Set(simulation.ParamPreset, c.Preset)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (c Config) withDefaults() Config {
	if c.VUs <= 0 {
		c.VUs = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
