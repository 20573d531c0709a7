package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// SymbolPathEnv names the debugger symbol search path variable.
	SymbolPathEnv = "_NT_SYMBOL_PATH"
	// SymcachePathEnv overrides the symcache store location.
	SymcachePathEnv = "_NT_SYMCACHE_PATH"
)

const programFilesX86Env = "programfiles(x86)"

type Config struct {
	ToolDir          string `toml:"tool_dir"`
	ThirdPartyDir    string `toml:"third_party_dir"`
	Xperf            string `toml:"xperf"`
	RetrieveSymbols  string `toml:"retrieve_symbols"`
	PDBCopy          string `toml:"pdbcopy"`
	FastlinkTool     string `toml:"fastlink_tool"`
	FastlinkInPlace  bool   `toml:"fastlink_in_place"`
	SymcacheRoot     string `toml:"symcache_root"`
	SymbolServerMark string `toml:"symbol_server_marker"`
	TempDir          string `toml:"temp_dir"`
	DBPath           string `toml:"db_path"`
	LogLevel         string `toml:"log_level"`

	// SymbolPath is the value of _NT_SYMBOL_PATH at startup. It is never
	// written back to the process environment.
	SymbolPath string `toml:"-"`
	// SDKPDBCopy is the Windows 10 SDK pdbcopy location, when known.
	SDKPDBCopy string `toml:"-"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	toolDir := ""
	if exe, err := os.Executable(); err == nil {
		toolDir = filepath.Dir(exe)
	}
	return LoadFrom(home, toolDir, os.Getenv)
}

// LoadFrom builds the configuration from defaults, the optional config file
// under home, and the environment as seen through getenv.
func LoadFrom(home, toolDir string, getenv func(string) string) (*Config, error) {
	cfg := &Config{
		ToolDir:          toolDir,
		Xperf:            "xperf",
		FastlinkTool:     `C:\Program Files (x86)\Microsoft Visual Studio 14.0\VC\bin\amd64\mspdbcmf.exe`,
		SymcacheRoot:     `c:\symcache`,
		SymbolServerMark: "chromium-browser-symsrv",
		DBPath:           filepath.Join(home, ".config", "pdbwarm", "pdbwarm.db"),
		LogLevel:         "info",
	}

	cfgPath := filepath.Join(home, ".config", "pdbwarm", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.ToolDir = expandHome(cfg.ToolDir, home)

	// helper tools live next to the binary unless configured
	if cfg.ThirdPartyDir == "" && cfg.ToolDir != "" {
		cfg.ThirdPartyDir = filepath.Join(cfg.ToolDir, "..", "third_party")
	}
	if cfg.RetrieveSymbols == "" && cfg.ToolDir != "" {
		cfg.RetrieveSymbols = filepath.Join(cfg.ToolDir, "RetrieveSymbols.exe")
	}
	if cfg.PDBCopy == "" && cfg.ToolDir != "" {
		cfg.PDBCopy = filepath.Join(cfg.ToolDir, "pdbcopy.exe")
	}

	// expand ~ in paths
	cfg.ThirdPartyDir = expandHome(cfg.ThirdPartyDir, home)
	cfg.RetrieveSymbols = expandHome(cfg.RetrieveSymbols, home)
	cfg.PDBCopy = expandHome(cfg.PDBCopy, home)
	cfg.FastlinkTool = expandHome(cfg.FastlinkTool, home)
	cfg.SymcacheRoot = expandHome(cfg.SymcacheRoot, home)
	cfg.TempDir = expandHome(cfg.TempDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	cfg.SymbolPath = getenv(SymbolPathEnv)
	if p := getenv(SymcachePathEnv); p != "" {
		cfg.SymcacheRoot = p
	}
	if pf := getenv(programFilesX86Env); pf != "" {
		cfg.SDKPDBCopy = filepath.Join(pf, "Windows Kits", "10", "Debuggers", "x86", "pdbcopy.exe")
	}

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		return filepath.Join(home, path[2:])
	}
	return path
}
