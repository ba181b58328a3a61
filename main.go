// snake-frame serves a turn-based Snake game as a Farcaster frame.
//
// Usage:
//
//	snake-frame                     - same as serve
//	snake-frame serve               - start the frame server
//	snake-frame render -o out.png   - draw a fresh or saved game to a PNG
//
// Global flags:
//
//	--config <path>  - config file, .json or .yaml (default: ./config.json)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-frame/api"
	"github.com/hoshinonyaruko/snake-frame/config"
	"github.com/hoshinonyaruko/snake-frame/frame"
	"github.com/hoshinonyaruko/snake-frame/memimg"
	"github.com/hoshinonyaruko/snake-frame/postgres"
	"github.com/hoshinonyaruko/snake-frame/render"
	"github.com/hoshinonyaruko/snake-frame/snake"
	"github.com/hoshinonyaruko/snake-frame/sqlite"
	"github.com/hoshinonyaruko/snake-frame/store"
	"github.com/hoshinonyaruko/snake-frame/structs"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagOut       string
	flagStateFile string
	flagSeed      int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "snake-frame",
	Short:        "Turn-based Snake played through Farcaster frames",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the frame server",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a game state to a PNG file",
	Long: `Render a game state to a PNG file using the configured font and image size.

Examples:
  snake-frame render -o board.png                 # fresh game
  snake-frame render -s game.json -o board.png    # state as returned by GET /games/:fid`,
	RunE: runRender,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "./config.json", "Path to config file (.json or .yaml)")
	renderCmd.Flags().StringVarP(&flagOut, "out", "o", "board.png", "Output PNG path")
	renderCmd.Flags().StringVarP(&flagStateFile, "state", "s", "", "JSON game state to render (fresh game if empty)")
	renderCmd.Flags().Int64Var(&flagSeed, "seed", time.Now().UnixNano(), "RNG seed for the fresh game's food")
	rootCmd.AddCommand(serveCmd, renderCmd)
}

func setup() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	log.SetPrefix("snake-frame")
	log.SetReportTimestamp(true)
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	log.SetLevel(level)
	return cfg, nil
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(folders ...string) error {
	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			if err := os.MkdirAll(folder, 0755); err != nil {
				return fmt.Errorf("failed to create %s directory: %w", folder, err)
			}
			log.Info("created directory", "dir", folder)
		}
	}
	return nil
}

func loadFonts(ctx context.Context, cfg *config.AppConfig) *memimg.Fonts {
	fonts := memimg.NewFonts()
	if err := fonts.LoadDir(cfg.FontDir); err != nil {
		log.Warn("could not load fonts, using built-in font", "dir", cfg.FontDir, "err", err)
	}
	if _, ok := fonts.Face(cfg.Font, 16); !ok {
		log.Warn("font not found, using built-in font", "font", cfg.Font)
	}
	// 检测并热更新到内存
	go func() {
		if err := fonts.Watch(ctx, cfg.FontDir); err != nil {
			log.Error("font watcher stopped", "err", err)
		}
	}()
	return fonts
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSqlite:
		return sqlite.Open(ctx, cfg.SqlitePath)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.PostgresURL)
	default:
		return store.NewMemory(), nil
	}
}

func newAuthenticator(cfg *config.AppConfig) frame.Authenticator {
	if cfg.TrustUntrusted {
		log.Warn("trust_untrusted is set: frame messages are NOT verified")
		return frame.UntrustedValidator{}
	}
	return frame.NewHubValidator(cfg.HubURL)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	if err := EnsureFoldersExist(cfg.StaticDir, cfg.FontDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	games, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer games.Close()
	log.Info("store ready", "backend", cfg.Store)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(&api.Server{
		Store:     games,
		Locks:     store.NewKeyedMutex(),
		Auth:      newAuthenticator(cfg),
		Renderer:  &render.Renderer{Fonts: loadFonts(ctx, cfg), FontName: cfg.Font, Size: cfg.ImageSize},
		Rand:      snake.NewLockedRand(time.Now().UnixNano()),
		SelfPath:  cfg.SelfPath,
		StaticDir: cfg.StaticDir,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("frame server listening", "addr", server.Addr, "selfpath", cfg.SelfPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("frame server closed")
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	var state *structs.GameState
	if flagStateFile != "" {
		data, err := os.ReadFile(flagStateFile)
		if err != nil {
			return err
		}
		state = &structs.GameState{}
		if err := json.Unmarshal(data, state); err != nil {
			return fmt.Errorf("parse %s: %w", flagStateFile, err)
		}
		if len(state.Snake) == 0 {
			return fmt.Errorf("%s: snake is empty", flagStateFile)
		}
	} else {
		state = snake.NewGame(snake.NewLockedRand(flagSeed))
	}

	fonts := memimg.NewFonts()
	if err := fonts.LoadDir(cfg.FontDir); err != nil {
		log.Warn("could not load fonts, using built-in font", "dir", cfg.FontDir, "err", err)
	}
	r := &render.Renderer{Fonts: fonts, FontName: cfg.Font, Size: cfg.ImageSize}
	if err := r.SavePNG(flagOut, state); err != nil {
		return err
	}
	log.Info("rendered", "out", flagOut, "score", state.Score, "game_over", state.GameOver)
	return nil
}
