package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a Config.
//
//	std: honeyc
//	log-level: debug
//	flags: -Fno-strict -Wall
//	features: {trace: true}
//	warnings: {div-zero: false}
//	limits: {max-tokens: 1024, max-depth: 16}
//	constants: {g: 9.81}
type File struct {
	Std       string             `yaml:"std"`
	LogLevel  string             `yaml:"log-level"`
	Flags     string             `yaml:"flags"`
	Features  map[string]bool    `yaml:"features"`
	Warnings  map[string]bool    `yaml:"warnings"`
	Limits    *fileLimits        `yaml:"limits"`
	Constants map[string]float64 `yaml:"constants"`
}

type fileLimits struct {
	MaxTokens int `yaml:"max-tokens"`
	MaxDepth  int `yaml:"max-depth"`
}

// LoadFile reads a yaml config file and applies it on top of c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config '%s': %w", path, err)
	}
	return c.Load(data)
}

// Load applies yaml config data on top of c. Unknown feature or warning
// names are an error.
func (c *Config) Load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if f.Std != "" {
		if err := c.ApplyStd(f.Std); err != nil {
			return err
		}
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	c.ProcessDirectiveFlags(f.Flags)

	for name, on := range f.Features {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(ft, on)
	}
	for name, on := range f.Warnings {
		wt, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(wt, on)
	}

	if f.Limits != nil {
		if f.Limits.MaxTokens < 0 || f.Limits.MaxDepth < 0 {
			return fmt.Errorf("limits must not be negative")
		}
		if f.Limits.MaxTokens > 0 {
			c.Limits.MaxTokens = f.Limits.MaxTokens
		}
		if f.Limits.MaxDepth > 0 {
			c.Limits.MaxDepth = f.Limits.MaxDepth
		}
	}
	for name, v := range f.Constants {
		c.Constants[name] = v
	}
	return nil
}
