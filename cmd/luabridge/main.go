package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/deepnoodle-ai/luabridge"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// CLI configuration
type Config struct {
	ScriptFile  string
	Expression  string
	GlobalsFile string
	NoStdLibs   bool
	Verbose     bool
	JSON        bool
}

func main() {
	config := parseFlags()

	if config.ScriptFile == "" && config.Expression == "" {
		color.Red("Error: a script file or an -e expression is required")
		flag.Usage()
		os.Exit(1)
	}

	logger := setupLogger(config)

	session := luabridge.NewSession(luabridge.Options{
		SkipStandardLibraries: config.NoStdLibs,
		Logger:                logger,
	})
	defer session.Close()

	if config.GlobalsFile != "" {
		if err := loadGlobals(session, config.GlobalsFile); err != nil {
			log.Fatalf("Failed to load globals: %v", err)
		}
		color.Blue("Globals loaded from: %s", config.GlobalsFile)
	}

	var results []luabridge.Value
	var err error
	if config.Expression != "" {
		results, err = session.DoStringMulti(config.Expression)
	} else {
		results, err = session.DoFileMulti(config.ScriptFile)
	}
	if err != nil {
		scriptErr := luabridge.ClassifyError(err)
		color.Red("Error (%s): %s", scriptErr.Kind, scriptErr.Message)
		os.Exit(1)
	}

	printResults(results, config.JSON)
}

func parseFlags() Config {
	var config Config
	flag.StringVar(&config.Expression, "e", "", "Lua expression to run instead of a script file")
	flag.StringVar(&config.GlobalsFile, "globals", "", "YAML file of globals to set before running")
	flag.BoolVar(&config.NoStdLibs, "no-stdlibs", false, "Do not open the Lua standard libraries")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&config.JSON, "json", false, "Print results as JSON")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [script.lua]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 0 {
		config.ScriptFile = flag.Arg(0)
	}
	return config
}

func setupLogger(config Config) *slog.Logger {
	if config.JSON {
		return luabridge.NewJSONLogger()
	}
	logger := luabridge.NewLogger()
	if !config.Verbose {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// loadGlobals reads a YAML mapping and sets each top-level key as a global
// in the session.
func loadGlobals(session *luabridge.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	globals := map[string]any{}
	if err := yaml.Unmarshal(data, &globals); err != nil {
		return fmt.Errorf("failed to parse globals file: %w", err)
	}
	for name, raw := range globals {
		value, err := luabridge.FromGo(raw)
		if err != nil {
			return fmt.Errorf("global %q: %w", name, err)
		}
		if err := session.Set(name, value); err != nil {
			return fmt.Errorf("global %q: %w", name, err)
		}
	}
	return nil
}

func printResults(results []luabridge.Value, asJSON bool) {
	for i, result := range results {
		if asJSON {
			encoded, err := json.Marshal(result.Go())
			if err != nil {
				color.Red("Error encoding result %d: %v", i+1, err)
				continue
			}
			fmt.Println(string(encoded))
			continue
		}
		color.Cyan("%s", result.String())
	}
}
