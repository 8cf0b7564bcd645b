package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/enozdev/storytelling-goesan-sub000/internal/authoring"
	"github.com/enozdev/storytelling-goesan-sub000/internal/dedup"
	"github.com/enozdev/storytelling-goesan-sub000/internal/genai"
	"github.com/enozdev/storytelling-goesan-sub000/internal/handler"
	appI18n "github.com/enozdev/storytelling-goesan-sub000/internal/i18n"
	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
	"github.com/enozdev/storytelling-goesan-sub000/internal/scoreboard"
	sbredis "github.com/enozdev/storytelling-goesan-sub000/internal/scoreboard/redis"
	"github.com/enozdev/storytelling-goesan-sub000/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storyquiz",
		Short: "Story quiz authoring and team scoreboard server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), seedCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `storyquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "storyquiz.db", "SQLite database path")
	f.String("teams", "", "Path to teams JSON file to seed on startup")
	f.String("redis-addr", "", "Redis address for live progress (empty = SQLite-backed)")
	f.String("redis-prefix", "storyquiz", "Redis key prefix")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "ko", "UI language (ko, en)")
	f.IntP("max-questions", "n", 3, "Number of questions per authored set")
	f.Int("avoid-limit", authoring.DefaultAvoidLimit, "Recent questions fed to the generator as an avoid-list")
	f.String("owner", "facilitator", "Owner identifier for authored question sets")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved questions as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "storyquiz.db", "SQLite database path")
	f.String("owner", "facilitator", "Owner whose questions to export")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import teams from a JSON file",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "storyquiz.db", "SQLite database path")
	f.String("teams", "teams.json", "Path to teams JSON file")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STORYQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("storyquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/storyquiz")
	v.AddConfigPath("/etc/storyquiz")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed teams if a file was given.
	if path := v.GetString("teams"); path != "" {
		if err := seedTeams(db, path); err != nil {
			return fmt.Errorf("seed teams: %w", err)
		}
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create LLM client.
	gen := genai.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := gen.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	// Pick the progress recorder: Redis when configured, SQLite otherwise.
	var recorder scoreboard.Recorder = db
	if redisAddr := v.GetString("redis-addr"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis health check: %w", err)
		}
		recorder = sbredis.NewRecorder(client, v.GetString("redis-prefix"))
		slog.Info("redis recorder OK", "addr", redisAddr)
	}

	owner := v.GetString("owner")
	history := dedup.NewHistory(dedup.DefaultWindow, db.DedupStorage(owner))
	session := authoring.NewSession(authoring.Config{
		MaxCount:   v.GetInt("max-questions"),
		AvoidLimit: v.GetInt("avoid-limit"),
		OwnerID:    owner,
	}, gen, db, history)

	h := handler.New(session, recorder, db)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"max_questions", v.GetInt("max-questions"),
		"owner", owner,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	questions, err := db.ListQuestions(v.GetString("owner"))
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return seedTeams(db, v.GetString("teams"))
}

func seedTeams(db *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	hash := sha256sum(data)
	storedHash, err := db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("teams file unchanged, skipping", "path", path)
		return nil
	}

	var teams []model.Team
	if err := json.Unmarshal(data, &teams); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, team := range teams {
		if strings.TrimSpace(team.ID) == "" {
			return fmt.Errorf("team with empty id in %s", path)
		}
		if err := db.UpsertTeam(team); err != nil {
			return fmt.Errorf("upsert team %s: %w", team.ID, err)
		}
	}

	if err := db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported teams", "path", path, "count", len(teams))
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
