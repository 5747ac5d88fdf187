// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/dagnet/lightd/logger"
	"github.com/dagnet/lightd/util"
	"github.com/dagnet/lightd/version"
)

const (
	defaultConfigFilename = "lightd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lightd.log"
	defaultErrLogFilename = "lightd_err.log"

	defaultBatchSize      = 500
	defaultCacheBudgetMiB = 8
	defaultRequestTimeout = 30 * time.Second
	minRequestTimeout     = time.Second
	maxCacheBudgetMiB     = 1024
)

var (
	// DefaultHomeDir is the default home directory of lightd.
	DefaultHomeDir = util.AppDataDir("lightd", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

var activeConfig *Config

// ActiveConfig returns the active configuration struct
func ActiveConfig() *Config {
	return activeConfig
}

// Flags holds the configuration options of lightd.
//
// See loadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion    bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile     string        `short:"C" long:"configfile" description:"Path to configuration file"`
	HomeDir        string        `short:"b" long:"homedir" description:"Directory to store data"`
	LogDir         string        `long:"logdir" description:"Directory to log output"`
	DebugLevel     string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Peers          []string      `short:"p" long:"peer" description:"Full node RPC address to sync from (may be repeated)"`
	NoSeeds        bool          `long:"noseeds" description:"Disable bootstrapping from the built-in seed peers"`
	Proxy          string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser      string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass      string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"Timeout for a single peer RPC request"`
	BatchSize      uint64        `long:"batchsize" description:"Number of headers requested per sync batch"`
	SyncQuorum     int           `long:"syncquorum" description:"Number of peers that must agree with the local tip before reporting synced (0 = majority)"`
	CacheBudget    uint64        `long:"cachebudget" description:"Header cache budget in MiB"`
	NetworkFlags
}

// Config holds the parsed configuration of lightd, including the resolved
// data directories.
type Config struct {
	*Flags
	DataDir string
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile:     defaultConfigFile,
		HomeDir:        DefaultHomeDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		RequestTimeout: defaultRequestTimeout,
		BatchSize:      defaultBatchSize,
		CacheBudget:    defaultCacheBudgetMiB,
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig() (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		return nil, err
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(cfgFlags, flags.Default)
	configFile := cfgFlags.ConfigFile
	if preCfg.ConfigFile != defaultConfigFile {
		configFile = preCfg.ConfigFile
	}
	err = flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %s\n", err)
			parser.WriteHelp(os.Stderr)
			return nil, err
		}
		// A missing config file at the default location is fine.
		if preCfg.ConfigFile != defaultConfigFile {
			return nil, errors.Wrapf(err, "config file %s cannot be read",
				preCfg.ConfigFile)
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	if err := cfg.ResolveNetwork(parser); err != nil {
		return nil, err
	}

	// The home directory is network sensitive, so the data and log
	// directories get a per-network subdirectory.
	cfg.HomeDir = cleanAndExpandPath(cfg.HomeDir)
	cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname, cfg.NetParams().Name)
	if cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
	}
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.NetParams().Name)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// Initialize log rotation. After this the logger package can write
	// logs to disk.
	logger.InitLog(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename),
	)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		os.Exit(0)
	}
	if err := logger.ParseAndSetLogLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, err
	}

	activeConfig = cfg
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.RequestTimeout < minRequestTimeout {
		return errors.Errorf("requesttimeout must be at least %s", minRequestTimeout)
	}
	if cfg.BatchSize == 0 {
		return errors.New("batchsize must be positive")
	}
	if cfg.CacheBudget == 0 || cfg.CacheBudget > maxCacheBudgetMiB {
		return errors.Errorf("cachebudget must be between 1 and %d MiB",
			maxCacheBudgetMiB)
	}
	if cfg.SyncQuorum < 0 {
		return errors.New("syncquorum cannot be negative")
	}
	if len(cfg.Peers) == 0 && (cfg.NoSeeds || len(cfg.NetParams().DNSSeeds) == 0) {
		return errors.New("no peers to sync from: pass --peer or enable seeds")
	}
	return nil
}

// SeedAddresses returns the peer addresses lightd bootstraps from: the
// explicitly configured peers plus, unless disabled, the network's built-in
// seeds on the network's default RPC port.
func (cfg *Config) SeedAddresses() []string {
	addresses := make([]string, 0, len(cfg.Peers))
	addresses = append(addresses, cfg.Peers...)
	if cfg.NoSeeds {
		return addresses
	}
	for _, seed := range cfg.NetParams().DNSSeeds {
		addresses = append(addresses, fmt.Sprintf("%s:%s", seed, cfg.NetParams().RPCPort))
	}
	return addresses
}

// CacheBudgetBytes returns the configured header cache budget in bytes.
func (cfg *Config) CacheBudgetBytes() int {
	return int(cfg.CacheBudget) * 1024 * 1024
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
