// gtest runs .calc suites through the evaluator and compares every line
// against a golden .json file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/xplshn/honeyc/pkg/config"
	"github.com/xplshn/honeyc/pkg/eval"
	"github.com/xplshn/honeyc/pkg/symbols"
	"github.com/xplshn/honeyc/pkg/util"
)

// Case is the outcome of one suite line.
type Case struct {
	Line    int    `json:"line"`
	Command string `json:"command"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Golden is the recorded outcome of a whole suite.
type Golden struct {
	Hash  string `json:"hash"`
	Cases []Case `json:"cases"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Hash     string        `json:"hash"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given suite(s) (space-separated).")
	testFiles      = flag.String("test-files", "testdata/*.calc", "Glob pattern(s) for suites to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Suites to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to the suite's dir).")
	configPath     = flag.String("config", "", "yaml config applied to every suite.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	useCache       = flag.Bool("cached", false, "Skip suites unchanged since their last passing run.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *generateGolden != "" {
		for _, f := range strings.Fields(*generateGolden) {
			handleGenerateGolden(f)
		}
		return
	}
	if !handleRunTestSuite() {
		os.Exit(1)
	}
}

func getJSONPath(suite string) string {
	name := "." + filepath.Base(suite) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(suite), name)
}

// hashFile computes the xxhash of a file's content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func newConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runSuite evaluates every non-blank, non-comment line of a suite in one
// session, so assignments carry over to later lines.
func runSuite(path string) (*Golden, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := newConfig()
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("suite", path).Logger()
	}
	sess, err := eval.NewSession(symbols.New(), cfg, logger)
	if err != nil {
		return nil, err
	}

	g := &Golden{Hash: fmt.Sprintf("%x", xxhash.Sum64(data))}
	for i, line := range strings.Split(string(data), "\n") {
		cmd := strings.TrimSpace(line)
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		c := Case{Line: i + 1, Command: cmd}
		if res, err := sess.Exec(cmd); err != nil {
			c.Error = util.CodeOf(err).String()
		} else {
			c.Result = res.String()
		}
		g.Cases = append(g.Cases, c)
	}
	return g, nil
}

func handleGenerateGolden(suite string) {
	log.Printf("Generating golden file for %s...\n", suite)
	g, err := runSuite(suite)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not run %s: %v\n", cRed, cNone, suite, err)
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	out := getJSONPath(suite)
	if err := os.WriteFile(out, data, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, out, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, out)
}

func reportPath() string {
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, *outputJSON)
	}
	return *outputJSON
}

func handleRunTestSuite() bool {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No suites found matching the pattern(s).")
		return true
	}

	previous := make(TestSuiteResults)
	if data, err := os.ReadFile(reportPath()); err == nil {
		if json.Unmarshal(data, &previous) != nil {
			log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, reportPath())
			previous = make(TestSuiteResults)
		}
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	results := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- testFile(file, previous)
			}
		}()
	}

	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			results <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileTestResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	printSummary(all)
	return !hasFailures(writeJSONReport(all, previous))
}

func testFile(file string, previous TestSuiteResults) *FileTestResult {
	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash suite: %v", err)}
	}
	if prev, ok := previous[file]; ok && *useCache && prev.Hash == hash && prev.Status == "PASS" {
		return &FileTestResult{File: file, Hash: hash, Status: "SKIP", Message: "Unchanged since last passing run"}
	}

	goldenFile := getJSONPath(file)
	data, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Hash: hash, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Hash: hash, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	start := time.Now()
	got, err := runSuite(file)
	elapsed := time.Since(start)
	if err != nil {
		return &FileTestResult{File: file, Hash: hash, Status: "ERROR", Message: err.Error(), Duration: elapsed}
	}

	if diff := cmp.Diff(golden.Cases, got.Cases); diff != "" {
		msg := "Results differ from golden file"
		if golden.Hash != got.Hash {
			msg += " (suite changed since the golden file was generated)"
		}
		return &FileTestResult{File: file, Hash: hash, Status: "FAIL", Message: msg, Diff: diff, Duration: elapsed}
	}
	return &FileTestResult{File: file, Hash: hash, Status: "PASS", Message: fmt.Sprintf("%d cases passed", len(got.Cases)), Duration: elapsed}
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s (%s)\n", cGreen, cNone, r.Message, r.Duration.Round(time.Microsecond))
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Println(formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			b.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line + cNone + "\n")
	}
	return b.String()
}

// writeJSONReport saves the report. Cached skips keep their previous PASS
// entry so the cache survives the next run.
func writeJSONReport(results []*FileTestResult, previous TestSuiteResults) TestSuiteResults {
	report := make(TestSuiteResults, len(results))
	for _, r := range results {
		if prev, ok := previous[r.File]; ok && r.Status == "SKIP" && prev.Status == "PASS" && prev.Hash == r.Hash {
			report[r.File] = prev
			continue
		}
		report[r.File] = r
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return report
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(reportPath(), data, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, reportPath(), err)
	} else {
		fmt.Printf("Full test report saved to %s\n", reportPath())
	}
	return report
}

func hasFailures(results TestSuiteResults) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}
