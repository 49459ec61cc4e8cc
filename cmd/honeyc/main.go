package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/xplshn/honeyc/pkg/ast"
	"github.com/xplshn/honeyc/pkg/check"
	"github.com/xplshn/honeyc/pkg/cli"
	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/eval"
	"github.com/xplshn/honeyc/pkg/lexer"
	"github.com/xplshn/honeyc/pkg/parser"
	"github.com/xplshn/honeyc/pkg/runlog"
	"github.com/xplshn/honeyc/pkg/symbols"
	"github.com/xplshn/honeyc/pkg/token"
	"github.com/xplshn/honeyc/pkg/util"
)

type options struct {
	expr        string
	interactive bool
	dumpTokens  bool
	configPath  string
	logLevel    string
	runlogPath  string
	listRuns    bool
	showRun     string
	std         string
	noColor     bool
	groupFlags  []string
}

func main() {
	app := cli.NewApp("honeyc")
	app.Synopsis = "[options] [file.hc ...]"
	app.Description = "Calculator and HoneyC front end. Evaluates expressions with -e or interactively with -i, and tokenizes, groups and dumps HoneyC sources given as arguments."
	app.Repository = "<https://github.com/xplshn/honeyc>"

	var opts options
	cfg := config.NewConfig()

	fs := app.FlagSet
	fs.String(&opts.expr, "eval", "e", "", "Evaluate <expr> and print the result.", "expr")
	fs.Bool(&opts.interactive, "interactive", "i", false, "Start an interactive calculator session.")
	fs.Bool(&opts.dumpTokens, "tokens", "", false, "Print the token stream of each source before grouping it.")
	fs.String(&opts.configPath, "config", "c", "", "Load settings from a yaml <file>.", "file")
	fs.String(&opts.logLevel, "log-level", "", "", "Log level (debug, info, warn, error).", "level")
	fs.String(&opts.runlogPath, "runlog", "", "", "Persist the log of every source run to a SQLite <db>.", "db")
	fs.Bool(&opts.listRuns, "runs", "", false, "List the runs stored in the --runlog database; arguments filter by source.")
	fs.String(&opts.showRun, "show-run", "", "", "Print the stored log of run <id> from the --runlog database.", "id")
	fs.String(&opts.std, "std", "", "", "Profile to apply (calc, honeyc).", "std")
	fs.Bool(&opts.noColor, "no-color", "", false, "Disable coloured diagnostics.")
	fs.Group(&opts.groupFlags, "Features", "F", "feature", featureEntries(cfg))
	fs.Group(&opts.groupFlags, "Warnings", "W", "warning", warningEntries(cfg))

	app.Action = func(args []string) error {
		if opts.configPath != "" {
			if err := cfg.LoadFile(opts.configPath); err != nil {
				return fail(err)
			}
		}
		if opts.std != "" {
			if err := cfg.ApplyStd(opts.std); err != nil {
				return fail(err)
			}
		}
		cfg.ProcessFlags(func(fn func(string)) {
			for _, name := range opts.groupFlags {
				fn(name)
			}
		})
		if opts.logLevel != "" {
			cfg.LogLevel = opts.logLevel
		}

		color := !opts.noColor && term.IsTerminal(int(os.Stderr.Fd()))
		console := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !color}
		logger := newLogger(console, cfg.LogLevel)

		var store *runlog.Store
		if opts.runlogPath != "" {
			s, err := runlog.Open(opts.runlogPath)
			if err != nil {
				return fail(err)
			}
			defer s.Close()
			store = s
		}

		if opts.listRuns || opts.showRun != "" {
			if store == nil {
				return fail(fmt.Errorf("--runs and --show-run need a --runlog database"))
			}
			if opts.showRun != "" {
				if err := showRun(os.Stdout, store, opts.showRun); err != nil {
					return fail(err)
				}
				return nil
			}
			sources := args
			if len(sources) == 0 {
				sources = []string{""}
			}
			for _, source := range sources {
				if err := listRuns(os.Stdout, store, source); err != nil {
					return fail(err)
				}
			}
			return nil
		}

		if opts.expr != "" || opts.interactive {
			sess, err := eval.NewSession(symbols.New(), cfg, logger)
			if err != nil {
				return fail(err)
			}
			if opts.expr != "" {
				if err := runCommand(os.Stdout, os.Stderr, sess, opts.expr, color); err != nil {
					return err
				}
			}
			if opts.interactive {
				if err := repl(sess, color); err != nil {
					return fail(err)
				}
			}
		}

		failed := false
		for _, path := range args {
			if err := runFile(path, cfg, console, store, opts.dumpTokens, color); err != nil {
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("one or more sources failed")
		}
		if len(args) == 0 && opts.expr == "" && !opts.interactive {
			app.WriteHelp(os.Stdout, cli.TerminalWidth())
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func fail(err error) error {
	util.Render(os.Stderr, []util.Line{util.Colored(util.Red, "error: ").Add(util.Plain, err.Error())}, term.IsTerminal(int(os.Stderr.Fd())))
	return err
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		With().Timestamp().Logger().
		Level(lvl)
}

func featureEntries(cfg *config.Config) []cli.GroupEntry {
	var out []cli.GroupEntry
	for i := config.Feature(0); i < config.FeatCount; i++ {
		info := cfg.Features[i]
		out = append(out, cli.GroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	return out
}

func warningEntries(cfg *config.Config) []cli.GroupEntry {
	var out []cli.GroupEntry
	for i := config.Warning(0); i < config.WarnCount; i++ {
		info := cfg.Warnings[i]
		out = append(out, cli.GroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	return out
}

// runCommand executes one calculator command and prints its result or a
// diagnostic.
func runCommand(stdout, stderr io.Writer, sess *eval.Session, command string, color bool) error {
	res, err := sess.Exec(command)
	if err != nil {
		src := util.SourceFileRecord{Name: "<input>", Content: []rune(expressionPart(command))}
		util.Render(stderr, util.Diagnose(src, err), color)
		return err
	}
	return util.Render(stdout, []util.Line{util.Colored(util.Green, res.String())}, color)
}

// expressionPart is the text error positions refer to: the right side of an
// assignment, or the whole command.
func expressionPart(command string) string {
	trimmed := strings.TrimSpace(command)
	if strings.HasPrefix(trimmed, "unset ") {
		return trimmed
	}
	if _, expr, ok := strings.Cut(trimmed, "="); ok {
		return expr
	}
	return trimmed
}

func runFile(path string, base *config.Config, console io.Writer, store *runlog.Store, dumpTokens, color bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("could not read file '%s': %w", path, err))
	}

	out := console
	var run *runlog.Run
	if store != nil {
		run = runlog.NewRun(path, content)
		out = zerolog.MultiLevelWriter(console, run)
	}
	logger := newLogger(out, base.LogLevel).With().Str("file", path).Logger()
	if run != nil {
		logger = logger.With().Str("run", run.ID).Logger()
		defer func() {
			if err := store.Save(run); err != nil {
				logger.Error().Err(err).Msg("could not save run log")
			}
		}()
	}

	cfg := *base
	cfg.Features = copyMap(base.Features)
	cfg.Warnings = copyMap(base.Warnings)

	src := util.SourceFileRecord{Name: path, Content: []rune(string(content))}
	diagnose := func(err error) error {
		util.Render(os.Stderr, util.Diagnose(src, err), color)
		logger.Error().Err(err).Msg("failed")
		return err
	}

	lx := lexer.NewLexer(src.Content, token.HoneyCSyntax(), nil, &cfg)
	toks, err := lx.Tokenize()
	if err != nil {
		return diagnose(err)
	}
	if len(lx.Directives) > 0 {
		for _, d := range lx.Directives {
			logger.Debug().Str("directive", d).Msg("applying")
			cfg.ProcessDirectiveFlags(d)
		}
		if toks, err = lexer.NewLexer(src.Content, token.HoneyCSyntax(), nil, &cfg).Tokenize(); err != nil {
			return diagnose(err)
		}
	}
	logger.Info().Int("tokens", len(toks)).Msg("tokenized")

	if dumpTokens {
		for i, t := range toks {
			fmt.Printf("%4d  %d:%-3d L%d  %-20s %q\n", i, t.Line, t.Column, t.Layer, t.Kind, t.Spelling())
		}
	}

	prog, err := parser.NewParser(toks, &cfg, logger).Parse()
	if err != nil {
		return diagnose(err)
	}
	logger.Info().Int("statements", len(prog.Lines)).Int("scopes", len(prog.Scopes)).Msg("grouped")

	warnings, err := check.Check(prog, symbols.New(), &cfg, logger)
	if err != nil {
		return diagnose(err)
	}
	logger.Info().Int("warnings", len(warnings)).Msg("checked")
	ast.Dump(os.Stdout, prog)
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
