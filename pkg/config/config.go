package config

import (
	"fmt"
	"strings"
)

type Feature int

const (
	FeatImplicitMul Feature = iota
	FeatUnaryMinus
	FeatMemberMerge
	FeatStrict
	FeatTrace
	FeatCount
)

type Warning int

const (
	WarnDivZero Warning = iota
	WarnUnclassified
	WarnPrecision
	WarnUndeclared
	WarnShadow
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Limits bound the work done for a single input.
type Limits struct {
	MaxTokens int
	MaxDepth  int
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string
	Limits     Limits
	LogLevel   string
	Constants  map[string]float64
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    "calc",
		Limits:     Limits{MaxTokens: 4096, MaxDepth: 64},
		LogLevel:   "info",
		Constants:  make(map[string]float64),
	}

	features := map[Feature]Info{
		FeatImplicitMul: {"implicit-mul", true, "Insert '*' between adjacent values, as in 2(3+4)."},
		FeatUnaryMinus:  {"unary-minus", true, "Fold a leading '-' into the following literal or identifier."},
		FeatMemberMerge: {"member-merge", true, "Collapse 'a.b' member chains into one identifier."},
		FeatStrict:      {"strict", true, "Reject statements that match no known form."},
		FeatTrace:       {"trace", false, "Log every reduction step at debug level."},
	}

	warnings := map[Warning]Info{
		WarnDivZero:      {"div-zero", true, "Warn when a division or modulo has a zero divisor."},
		WarnUnclassified: {"unclassified", true, "Warn about statements left unclassified in non-strict mode."},
		WarnPrecision:    {"precision", false, "Warn when a result is not finite."},
		WarnUndeclared:   {"undeclared", true, "Warn about names used before any declaration."},
		WarnShadow:       {"shadow", false, "Warn when a declaration hides one from an outer scope."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyStd switches between the calculator and HoneyC profiles.
func (c *Config) ApplyStd(stdName string) error {
	type stdSettings struct {
		feature     Feature
		calcValue   bool
		honeycValue bool
	}

	settings := []stdSettings{
		{FeatImplicitMul, true, true},
		{FeatUnaryMinus, true, true},
		{FeatMemberMerge, false, true},
	}

	switch stdName {
	case "calc":
		for _, s := range settings {
			c.SetFeature(s.feature, s.calcValue)
		}
	case "honeyc":
		for _, s := range settings {
			c.SetFeature(s.feature, s.honeycValue)
		}
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'calc', 'honeyc'", stdName)
	}
	c.StdName = stdName
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		name = trimmed
		isWarning = true
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlags applies -F/-W style flags; "Wall"/"Wno-all" go first so
// individual flags can override them.
func (c *Config) ProcessFlags(visitFlag func(fn func(name string))) {
	visitFlag(func(name string) {
		if name == "Wall" || name == "Wno-all" {
			c.applyFlag("-" + name)
		}
	})
	visitFlag(func(name string) {
		if name != "Wall" && name != "Wno-all" {
			c.applyFlag("-" + name)
		}
	})
}

// ProcessDirectiveFlags applies a space-separated flag string, as found in
// a config file or a "# [hc]:" source directive.
func (c *Config) ProcessDirectiveFlags(flagStr string) {
	for _, flag := range strings.Fields(flagStr) {
		c.applyFlag(flag)
	}
}
