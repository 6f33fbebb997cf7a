// Package config loads depaudit settings.
//
// Sources are layered, later ones winning: built-in defaults, the YAML
// config file, DEPAUDIT_* environment variables, command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/viper"
	"github.com/venslabs/depaudit/pkg/envutil"
	"github.com/venslabs/depaudit/pkg/llm"
	"github.com/venslabs/depaudit/pkg/scanner"
	"github.com/venslabs/depaudit/pkg/trivypluginutil"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultLLMTimeout = 60 * time.Second
	DefaultListenAddr = ":8080"
)

// Config represents the structure of the config file.
//
// Example YAML:
//
//	scanner:
//	  tool: safety          # pip-audit (default), safety or trivy
//	  # command overrides tool; {manifest} is replaced by the manifest path
//	  # command: "safety scan -r {manifest} --output json"
//	  timeout: 10m
//	llm:
//	  backend: openai       # openai, anthropic, googleai or ollama
//	  model: gpt-4o-mini
//	  timeout: 60s
//	server:
//	  listen_addr: ":8080"
type Config struct {
	Scanner Scanner `yaml:"scanner"`
	LLM     LLM     `yaml:"llm"`
	Server  Server  `yaml:"server"`
}

type Scanner struct {
	Tool    string        `yaml:"tool"`
	Command string        `yaml:"command,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type LLM struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model,omitempty"`
	ServerURL   string        `yaml:"server_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature,omitempty"`
	// DebugDir receives the prompts sent to the LLM when set.
	DebugDir string `yaml:"debug_dir,omitempty"`
}

type Server struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tool := scanner.DefaultTool
	if trivypluginutil.IsTrivyPluginMode() {
		tool = scanner.Trivy
	}
	return &Config{
		Scanner: Scanner{
			Tool:    tool,
			Timeout: scanner.DefaultTimeout,
		},
		LLM: LLM{
			Backend:   llm.Auto,
			ServerURL: envutil.String("OLLAMA_HOST", ""),
			Timeout:   DefaultLLMTimeout,
		},
		Server: Server{
			ListenAddr: DefaultListenAddr,
		},
	}
}

// Load parses the config file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides c with DEPAUDIT_* environment variables.
func (c *Config) ApplyEnv() {
	c.Scanner.Tool = envutil.String("DEPAUDIT_TOOL", c.Scanner.Tool)
	c.Scanner.Command = envutil.String("DEPAUDIT_COMMAND", c.Scanner.Command)
	c.Scanner.Timeout = envutil.Duration("DEPAUDIT_TIMEOUT", c.Scanner.Timeout)
	c.LLM.Backend = envutil.String("DEPAUDIT_LLM", c.LLM.Backend)
	c.LLM.Model = envutil.String("DEPAUDIT_LLM_MODEL", c.LLM.Model)
	c.LLM.Timeout = envutil.Duration("DEPAUDIT_LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.DebugDir = envutil.String("DEPAUDIT_LLM_DEBUG_DIR", c.LLM.DebugDir)
	c.Server.ListenAddr = envutil.String("DEPAUDIT_LISTEN_ADDR", c.Server.ListenAddr)
}

// Flag names understood by ApplyFlags.
const (
	FlagTool        = "tool"
	FlagCommand     = "command"
	FlagTimeout     = "timeout"
	FlagLLM         = "llm"
	FlagLLMModel    = "llm-model"
	FlagLLMTimeout  = "llm-timeout"
	FlagListenAddr  = "listen-addr"
	FlagLLMDebugDir = "llm-debug-dir"
)

// ApplyFlags overrides c with the flags explicitly set on the command line.
// v must have the command's flags bound with BindPFlags.
func (c *Config) ApplyFlags(v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	setString(FlagTool, &c.Scanner.Tool)
	setString(FlagCommand, &c.Scanner.Command)
	setDuration(FlagTimeout, &c.Scanner.Timeout)
	setString(FlagLLM, &c.LLM.Backend)
	setString(FlagLLMModel, &c.LLM.Model)
	setDuration(FlagLLMTimeout, &c.LLM.Timeout)
	setString(FlagLLMDebugDir, &c.LLM.DebugDir)
	setString(FlagListenAddr, &c.Server.ListenAddr)
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.Scanner.Command == "" {
		if _, err := scanner.Preset(c.Scanner.Tool); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Scanner.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("scanner timeout must be positive, got %s", c.Scanner.Timeout))
	}
	if b := llm.Resolve(c.LLM.Backend); !slices.Contains(llm.Names, b) {
		errs = append(errs, fmt.Errorf("unknown LLM %q, make sure to use one of %v", c.LLM.Backend, llm.Names))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	return errors.Join(errs...)
}

// ResolveTool resolves the audit tool: the custom command when set, the preset otherwise.
func (s Scanner) ResolveTool() (scanner.Tool, error) {
	if s.Command != "" {
		return scanner.ParseCommand(s.Command)
	}
	return scanner.Preset(s.Tool)
}
