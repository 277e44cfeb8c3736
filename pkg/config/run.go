package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
	"github.com/htmlrunner/htmlrunner/pkg/steps"
	"github.com/htmlrunner/htmlrunner/pkg/util"
)

const (
	KindRun = "Run"
)

type RunSpec struct {
	util.TypeMeta `json:",inline"`
	Metadata      RunMetadata `json:"metadata"`
	Config        RunConfig   `json:"config"`
}

type RunMetadata struct {
	Name string `json:"name"`
}

type RunConfig struct {
	// Test is the url of the page holding the command table. A value
	// without a scheme is a file path, unless BaseURL is set.
	Test    string        `json:"test"`
	BaseURL string        `json:"baseUrl,omitempty"`
	Browser BrowserConfig `json:"browser,omitempty"`

	VerifyContinues *bool `json:"verifyContinues,omitempty"`
	MaxSteps        *int  `json:"maxSteps,omitempty"`

	Results     ResultsConfig `json:"results,omitempty"`
	MetricsFile string        `json:"metricsFile,omitempty"`
}

type BrowserConfig struct {
	RemoteURL string `json:"remoteUrl,omitempty"`
	Headless  *bool  `json:"headless,omitempty"`
	// Timeout bounds every browser call, e.g. "30s".
	Timeout string `json:"timeout,omitempty"`
	// PageLoadTimeout bounds waits for a page to load.
	PageLoadTimeout string `json:"pageLoadTimeout,omitempty"`
}

type ResultsConfig struct {
	File string      `json:"file,omitempty"`
	AMQP *AMQPConfig `json:"amqp,omitempty"`
}

type AMQPConfig struct {
	URL        string `json:"url"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routingKey,omitempty"`
}

// New returns an empty run spec for runs configured only from flags.
func New() *RunSpec {
	return &RunSpec{
		TypeMeta: util.TypeMeta{
			APIVersion: util.APIVersionV1Alpha1,
			Kind:       KindRun,
		},
	}
}

func (r *RunSpec) UnmarshalJSON(data []byte) error {
	type Doppleganger RunSpec

	tmp := (*Doppleganger)(r)
	return util.UnmarshalWithKind(data, tmp, KindRun)
}

func (r *RunSpec) Validate() error {
	err := r.TypeMeta.Validate(KindRun)

	if r.Config.Test == "" {
		err = errors.Join(err, fmt.Errorf("config.test is required"))
	}
	if r.Config.BaseURL != "" {
		if u, perr := url.Parse(r.Config.BaseURL); perr != nil || !u.IsAbs() {
			err = errors.Join(err, fmt.Errorf("config.baseUrl must be an absolute url, got '%s'", r.Config.BaseURL))
		}
	}
	if r.Config.MaxSteps != nil && *r.Config.MaxSteps < 0 {
		err = errors.Join(err, fmt.Errorf("config.maxSteps cannot be negative"))
	}
	if _, terr := parseDuration(r.Config.Browser.Timeout); terr != nil {
		err = errors.Join(err, fmt.Errorf("config.browser.timeout: %w", terr))
	}
	if _, terr := parseDuration(r.Config.Browser.PageLoadTimeout); terr != nil {
		err = errors.Join(err, fmt.Errorf("config.browser.pageLoadTimeout: %w", terr))
	}
	if amqp := r.Config.Results.AMQP; amqp != nil {
		if amqp.URL == "" {
			err = errors.Join(err, fmt.Errorf("config.results.amqp.url is required"))
		}
		if amqp.Exchange == "" {
			err = errors.Join(err, fmt.Errorf("config.results.amqp.exchange is required"))
		}
	}

	return err
}

func (c *RunConfig) GetVerifyContinues() bool {
	return ptr.Deref(c.VerifyContinues, true)
}

func (c *RunConfig) GetMaxSteps() int {
	return ptr.Deref(c.MaxSteps, runner.DefaultMaxSteps)
}

func (b *BrowserConfig) GetHeadless() bool {
	return ptr.Deref(b.Headless, true)
}

// GetTimeout returns the browser call timeout, zero when unset.
func (b *BrowserConfig) GetTimeout() time.Duration {
	d, _ := parseDuration(b.Timeout)
	return d
}

func (b *BrowserConfig) GetPageLoadTimeout() time.Duration {
	d, _ := parseDuration(b.PageLoadTimeout)
	if d == 0 {
		return steps.DefaultPageLoadTimeout
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}

func Read(data []byte, basePath string) (*RunSpec, error) {
	spec := &RunSpec{}

	err := yaml.Unmarshal(data, spec)
	if err != nil {
		return nil, err
	}

	if err := spec.Config.ResolvePaths(basePath); err != nil {
		return nil, err
	}

	return spec, nil
}

func FromFile(path string) (*RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s' for run spec: %w", path, err)
	}

	// Convert to absolute path to ensure basePath is absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", path, err)
	}

	return Read(data, filepath.Dir(absPath))
}

// ResolvePaths makes file paths absolute against basePath and turns a
// local test file into a file:// url.
func (c *RunConfig) ResolvePaths(basePath string) error {
	resolveFilePath(&c.Results.File, basePath)
	resolveFilePath(&c.MetricsFile, basePath)

	test, err := resolveTestURL(c.Test, c.BaseURL, basePath)
	if err != nil {
		return fmt.Errorf("failed to resolve test url: %w", err)
	}
	c.Test = test

	return nil
}

func resolveFilePath(filePath *string, basePath string) {
	if *filePath == "" || filepath.IsAbs(*filePath) {
		return
	}
	*filePath = filepath.Join(basePath, *filePath)
}

func resolveTestURL(test, baseURL, basePath string) (string, error) {
	if test == "" {
		return "", nil
	}

	u, err := url.Parse(test)
	if err == nil && u.IsAbs() && len(u.Scheme) > 1 {
		return test, nil
	}

	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base url '%s': %w", baseURL, err)
		}
		ref, err := url.Parse(test)
		if err != nil {
			return "", fmt.Errorf("invalid test url '%s': %w", test, err)
		}
		return base.ResolveReference(ref).String(), nil
	}

	path := test
	if !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}
