package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-frame/frame"
	"github.com/hoshinonyaruko/snake-frame/render"
	"github.com/hoshinonyaruko/snake-frame/snake"
	"github.com/hoshinonyaruko/snake-frame/store"
	"github.com/hoshinonyaruko/snake-frame/structs"
)

const initialFrame = "initial_frame.png"

// Server 处理 frame 请求所需的全部依赖
type Server struct {
	Store     store.Store
	Locks     *store.KeyedMutex
	Auth      frame.Authenticator
	Renderer  *render.Renderer
	Rand      *rand.Rand // 必须可以并发使用，见 snake.NewLockedRand
	SelfPath  string     // 对外地址，不带末尾斜杠
	StaticDir string
}

// NewRouter wires the frame routes onto a gin engine.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	router.SetHTMLTemplate(frame.Template)

	// 首页 frame
	router.GET("/", s.HomeHandler)
	// 玩家点击按钮
	router.POST("/", s.FrameHandler)
	router.Static("/static", s.StaticDir) // 静态文件服务
	// 查看和删除存档
	router.GET("/games/:fid", s.GetGameHandler)
	router.DELETE("/games/:fid", s.DeleteGameHandler)
	router.GET("/leaderboard", s.LeaderboardHandler)
	return router
}

// RequestLogger logs each request through the shared structured logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) imageURL(name string) string {
	// frame 客户端按 URL 缓存图片，每次换一个版本号
	return fmt.Sprintf("%s/static/%s?v=%s", strings.TrimRight(s.SelfPath, "/"), name, uuid.NewString())
}

func (s *Server) postURL() string {
	return strings.TrimRight(s.SelfPath, "/") + "/"
}

func (s *Server) HomeHandler(c *gin.Context) {
	state := snake.NewGame(s.Rand)
	if err := s.Renderer.SavePNG(filepath.Join(s.StaticDir, initialFrame), state); err != nil {
		log.Error("render initial frame", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to render frame"})
		return
	}
	c.HTML(http.StatusOK, frame.TemplateName, frame.Page{
		Image:   s.imageURL(initialFrame),
		PostURL: s.postURL(),
		Buttons: frame.StartButtons(),
	})
}

func (s *Server) FrameHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
		return
	}

	action, err := s.Auth.Validate(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, frame.ErrInvalidMessage) {
			log.Warn("rejected frame message", "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("validate frame message", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Unable to validate message"})
		return
	}

	state, image, err := s.Play(c.Request.Context(), action)
	if err != nil {
		log.Error("play", "fid", action.FID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update game"})
		return
	}

	c.HTML(http.StatusOK, frame.TemplateName, frame.Page{
		Image:   s.imageURL(image),
		PostURL: s.postURL(),
		Buttons: frame.GameButtons(state.GameOver),
	})
}

// Play applies one click for a player and renders the result. It returns the
// new state and the image file name under StaticDir.
//
// A missing or finished game is replaced by a new one before the click is
// applied. Buttons outside 1..4 leave the game as it is.
func (s *Server) Play(ctx context.Context, action *frame.Action) (*structs.GameState, string, error) {
	unlock := s.Locks.Lock(action.FID)
	defer unlock()

	state, err := s.Store.Get(ctx, action.FID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state = snake.NewGame(s.Rand)
		log.Debug("new game", "fid", action.FID)
	case err != nil:
		return nil, "", err
	case state.GameOver:
		log.Debug("restart game", "fid", action.FID, "previous_score", state.Score)
		state = snake.NewGame(s.Rand)
	}

	if direction, ok := snake.DirectionForButton(action.ButtonIndex); ok {
		snake.Advance(s.Rand, state, direction)
		if state.GameOver {
			log.Info("game over", "fid", action.FID, "score", state.Score)
		}
	}

	if err := s.Store.Put(ctx, action.FID, state); err != nil {
		return nil, "", err
	}

	image := fmt.Sprintf("game_frame_%d.png", action.FID)
	if err := s.Renderer.SavePNG(filepath.Join(s.StaticDir, image), state); err != nil {
		return nil, "", err
	}
	return state, image, nil
}

func parseFID(c *gin.Context) (uint64, bool) {
	fid, err := strconv.ParseUint(c.Param("fid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fid"})
		return 0, false
	}
	return fid, true
}

func (s *Server) GetGameHandler(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}
	state, err := s.Store.Get(c.Request.Context(), fid)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	if err != nil {
		log.Error("load game", "fid", fid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to load game"})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) DeleteGameHandler(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}
	unlock := s.Locks.Lock(fid)
	defer unlock()

	if err := s.Store.Delete(c.Request.Context(), fid); err != nil {
		log.Error("delete game", "fid", fid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to delete game"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game deleted successfully"})
}

func (s *Server) LeaderboardHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if limit > 100 {
		limit = 100
	}

	board, ok := s.Store.(store.Leaderboard)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"scores": []store.ScoreEntry{}})
		return
	}
	scores, err := board.TopScores(c.Request.Context(), limit)
	if err != nil {
		log.Error("leaderboard", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to load scores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}
