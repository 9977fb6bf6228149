package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "IDOO"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Browser   BrowserConfig   `yaml:"browser" envconfig:"BROWSER"`
	Portal    PortalConfig    `yaml:"portal" envconfig:"PORTAL"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Alerts    AlertsConfig    `yaml:"alerts" envconfig:"ALERTS"`
	Email     EmailConfig     `yaml:"email" envconfig:"EMAIL"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system locations. Relative entries are
// resolved against BaseDir.
type PathsConfig struct {
	BaseDir         string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DownloadDir     string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" validate:"required"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" validate:"required"`
	HistoryDB       string `yaml:"history_db" envconfig:"HISTORY_DB"`
}

// BrowserConfig selects and tunes the automation engine
type BrowserConfig struct {
	Engine          string        `yaml:"engine" envconfig:"ENGINE" validate:"oneof=chromedp rod"`
	ExecPath        string        `yaml:"exec_path" envconfig:"EXEC_PATH"`
	WindowWidth     int           `yaml:"window_width" envconfig:"WINDOW_WIDTH" validate:"min=1"`
	WindowHeight    int           `yaml:"window_height" envconfig:"WINDOW_HEIGHT" validate:"min=1"`
	ElementTimeout  time.Duration `yaml:"element_timeout" envconfig:"ELEMENT_TIMEOUT"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" envconfig:"PAGE_LOAD_TIMEOUT"`
}

// PortalConfig drives the dealer-ordering portal session
type PortalConfig struct {
	EntryURL      string        `yaml:"entry_url" envconfig:"ENTRY_URL" validate:"required,url"`
	LoginAttempts int           `yaml:"login_attempts" envconfig:"LOGIN_ATTEMPTS" validate:"min=1"`
	LoginSettle   time.Duration `yaml:"login_settle" envconfig:"LOGIN_SETTLE"`
	MarkerPolls   int           `yaml:"marker_polls" envconfig:"MARKER_POLLS" validate:"min=1"`
	StageAttempts int           `yaml:"stage_attempts" envconfig:"STAGE_ATTEMPTS" validate:"min=1"`
	CatalogSettle time.Duration `yaml:"catalog_settle" envconfig:"CATALOG_SETTLE"`
	FilterSettle  time.Duration `yaml:"filter_settle" envconfig:"FILTER_SETTLE"`
	CPOSettle     time.Duration `yaml:"cpo_settle" envconfig:"CPO_SETTLE"`
}

// ReportConfig drives the report portal session and the download watcher
type ReportConfig struct {
	LoginURL         string        `yaml:"login_url" envconfig:"LOGIN_URL" validate:"required,url"`
	ReorderURL       string        `yaml:"reorder_url" envconfig:"REORDER_URL" validate:"required,url"`
	LoginAttempts    int           `yaml:"login_attempts" envconfig:"LOGIN_ATTEMPTS" validate:"min=1"`
	Days             string        `yaml:"days" envconfig:"DAYS" validate:"required,numeric"`
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	PollCeiling      time.Duration `yaml:"poll_ceiling" envconfig:"POLL_CEILING"`
	ProgressEvery    time.Duration `yaml:"progress_every" envconfig:"PROGRESS_EVERY"`
	ExportSettle     time.Duration `yaml:"export_settle" envconfig:"EXPORT_SETTLE"`
	DownloadInterval time.Duration `yaml:"download_interval" envconfig:"DOWNLOAD_INTERVAL"`
	DownloadCeiling  time.Duration `yaml:"download_ceiling" envconfig:"DOWNLOAD_CEILING"`
	TargetFile       string        `yaml:"target_file" envconfig:"TARGET_FILE" validate:"required"`
}

// AlertsConfig contains remote alerting configuration
type AlertsConfig struct {
	WebhookURL  string        `yaml:"webhook_url" envconfig:"WEBHOOK_URL" validate:"omitempty,url"`
	ServiceName string        `yaml:"service_name" envconfig:"SERVICE_NAME"`
	RPS         float64       `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst       int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"WEBHOOK_TIMEOUT"`
}

// EmailConfig contains optional workbook delivery configuration
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key" envconfig:"SENDGRID_API_KEY"`
	FromAddress    string `yaml:"from_address" envconfig:"FROM_ADDRESS" validate:"omitempty,email"`
	FromName       string `yaml:"from_name" envconfig:"FROM_NAME"`
	ToAddress      string `yaml:"to_address" envconfig:"TO_ADDRESS" validate:"omitempty,email"`
}

// Enabled reports whether e-mail delivery is configured
func (e EmailConfig) Enabled() bool {
	return e.SendGridAPIKey != "" && e.FromAddress != "" && e.ToAddress != ""
}

// TelemetryConfig contains tracing and metrics export configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceFile      string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile    string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	PushgatewayURL string `yaml:"pushgateway_url" envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`
	PushJob        string `yaml:"push_job" envconfig:"PUSH_JOB"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit YAML file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags: envconfig only touches fields whose variable is set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Always JSON
	c.Logging.Format = "json"
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Browser.Engine == "" {
		c.Browser.Engine = EngineChromedp
	}

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"browser.element_timeout", c.Browser.ElementTimeout},
		{"browser.page_load_timeout", c.Browser.PageLoadTimeout},
		{"report.poll_interval", c.Report.PollInterval},
		{"report.poll_ceiling", c.Report.PollCeiling},
		{"report.progress_every", c.Report.ProgressEvery},
		{"report.download_interval", c.Report.DownloadInterval},
		{"report.download_ceiling", c.Report.DownloadCeiling},
	}
	var errs []error
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if c.Report.PollCeiling < c.Report.PollInterval {
		errs = append(errs, fmt.Errorf("report.poll_ceiling must not be shorter than report.poll_interval"))
	}
	if c.Report.DownloadCeiling < c.Report.DownloadInterval {
		errs = append(errs, fmt.Errorf("report.download_ceiling must not be shorter than report.download_interval"))
	}

	return errors.Join(errs...)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DownloadDir:     DefaultDownloadDir,
			LogsDir:         DefaultLogsDir,
			DataDir:         DefaultDataDir,
			CredentialsFile: DefaultCredentialsFile,
			HistoryDB:       DefaultHistoryDB,
		},
		Browser: BrowserConfig{
			Engine:          EngineChromedp,
			WindowWidth:     1920,
			WindowHeight:    1080,
			ElementTimeout:  DefaultElementWait,
			PageLoadTimeout: ReportPageLoadTimeout,
		},
		Portal: PortalConfig{
			EntryURL:      PortalEntryURL,
			LoginAttempts: PortalLoginAttempts,
			LoginSettle:   PortalLoginSettle,
			MarkerPolls:   PortalMarkerPolls,
			StageAttempts: PortalStageAttempts,
			CatalogSettle: PortalCatalogSettle,
			FilterSettle:  PortalFilterSettle,
			CPOSettle:     PortalCPOSettle,
		},
		Report: ReportConfig{
			LoginURL:         ReportLoginURL,
			ReorderURL:       ReportReorderURL,
			LoginAttempts:    ReportLoginAttempts,
			Days:             ReportDaysValue,
			PollInterval:     ReportPollInterval,
			PollCeiling:      ReportPollCeiling,
			ProgressEvery:    ReportProgressEvery,
			ExportSettle:     ReportExportSettle,
			DownloadInterval: DownloadPollInterval,
			DownloadCeiling:  DownloadCeiling,
			TargetFile:       DownloadTargetName,
		},
		Alerts: AlertsConfig{
			ServiceName: DefaultServiceName,
			RPS:         0.5,
			Burst:       5,
			Timeout:     AlertTimeout,
		},
		Email: EmailConfig{
			FromName: AppName,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "idoo-sync",
			PushJob:     "idoo_sync",
		},
	}
}

// DetectHeadless reports whether the browser must run headless: on CI
// runners, or when no display is available.
func DetectHeadless(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv("CI") == "true" || getenv("GITHUB_ACTIONS") == "true" || getenv("DISPLAY") == ""
}

// OutputFileName returns the workbook name for an account label on day t
func OutputFileName(label string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s.xlsx", OutputFilePrefix, label, t.Format(OutputDateLayout))
}

// MailSubject returns the delivery subject for an account label on day t
func MailSubject(label string, t time.Time) string {
	return fmt.Sprintf("INVENTORY - %s - %s", label, t.Format(OutputDateLayout))
}
