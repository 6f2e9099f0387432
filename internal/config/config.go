package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	PrefetchDir     string `mapstructure:"prefetch_dir"`
	IncludeServices bool   `mapstructure:"include_services"`
	ExportPath      string `mapstructure:"export_path"`
}

func Default() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		PrefetchDir:     defaultPrefetchDir(),
		IncludeServices: true,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("appman")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APPMAN")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("prefetch_dir", cfg.PrefetchDir)
	viper.Set("include_services", cfg.IncludeServices)
	viper.Set("export_path", cfg.ExportPath)

	cfgPath := filepath.Join(configDir(), "appman.yaml")
	if err := os.MkdirAll(configDir(), 0700); err != nil {
		return err
	}

	return viper.WriteConfigAs(cfgPath)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "AppMan")
	case "darwin":
		return "/Library/Application Support/AppMan"
	default:
		return "/etc/appman"
	}
}

func defaultPrefetchDir() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return filepath.Join(root, "Prefetch")
	}
	return ""
}
