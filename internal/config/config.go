// Package config layers the server's startup parameters: CLI flags over
// an optional YAML file, flags always winning. Grounded on the teacher's
// internal/config/config.go Load/ApplyDefaults shape, replacing its
// hand-rolled parseYAML (internal/config/parser.go) with the real
// gopkg.in/yaml.v3 the module already depends on.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the server's resolved startup parameters.
type Config struct {
	Dir        string `yaml:"dir"`
	DBFilename string `yaml:"dbfilename"`
	Bind       string `yaml:"bind"`
	QPS        int    `yaml:"qps"`
	StatusAddr string `yaml:"statusAddr"`
}

const defaultBind = "127.0.0.1:6379"

// SnapshotPath returns dir/dbfilename, or "" if either is unset —
// snapshot loading is disabled in that case.
func (c Config) SnapshotPath() string {
	if c.Dir == "" || c.DBFilename == "" {
		return ""
	}
	return filepath.Join(c.Dir, c.DBFilename)
}

// Load parses CLI flags from args, optionally merging in a YAML file
// named by --config; flags always take priority over the file. args
// should not include the program name (i.e. pass os.Args[1:]).
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("redisd", flag.ContinueOnError)

	var cfg Config
	var configPath string

	fs.StringVar(&configPath, "config", "", "optional YAML config file")
	fs.StringVar(&cfg.Dir, "dir", "", "directory holding the snapshot file")
	fs.StringVar(&cfg.Dir, "d", "", "directory holding the snapshot file (shorthand)")
	fs.StringVar(&cfg.DBFilename, "dbfilename", "", "snapshot filename within --dir")
	fs.StringVar(&cfg.Bind, "bind", "", "address to listen on")
	fs.IntVar(&cfg.QPS, "qps", 0, "per-connection request rate limit, 0 = unlimited")
	fs.StringVar(&cfg.StatusAddr, "status-addr", "", "address for the optional read-only status page, empty disables it")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var fileCfg Config
	if configPath != "" {
		var err error
		fileCfg, err = loadYAML(configPath)
		if err != nil {
			return Config{}, err
		}
	}

	merged := mergeFlagsOverFile(fs, cfg, fileCfg)
	if merged.Bind == "" {
		merged.Bind = defaultBind
	}
	return merged, nil
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// mergeFlagsOverFile fills in any field left at its zero value by flag
// parsing from the YAML file's value; explicitly-set flags always win.
func mergeFlagsOverFile(fs *flag.FlagSet, flags, file Config) Config {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	out := flags
	if !set["dir"] && !set["d"] && file.Dir != "" {
		out.Dir = file.Dir
	}
	if !set["dbfilename"] && file.DBFilename != "" {
		out.DBFilename = file.DBFilename
	}
	if !set["bind"] && file.Bind != "" {
		out.Bind = file.Bind
	}
	if !set["qps"] && file.QPS != 0 {
		out.QPS = file.QPS
	}
	if !set["status-addr"] && file.StatusAddr != "" {
		out.StatusAddr = file.StatusAddr
	}
	return out
}

// Lookup implements command.ConfigLookup for the two introspected
// parameters named in spec.md. It reports ok=false when the parameter is
// unrecognized or was never set, matching original_source/src/config.rs's
// get() (Option::None when the underlying field is unset) rather than
// surfacing an empty-string value as if it were a real one.
func (c Config) Lookup(param string) (string, bool) {
	switch param {
	case "dir":
		return c.Dir, c.Dir != ""
	case "dbfilename":
		return c.DBFilename, c.DBFilename != ""
	default:
		return "", false
	}
}
