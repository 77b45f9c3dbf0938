package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/app/orch"
	"github.com/dkeye/chatsync/internal/config"
	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

// Connection is what the view adapter needs from the live session.
// Start is called on every change-stream subscription; only the first
// call dials.
type Connection interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, room domain.RoomName, text string) (domain.Message, error)
	Close()
	State() core.ConnState
}

type roomRequest struct {
	Room string `json:"room"`
}

type sendRequest struct {
	Content string `json:"content"`
}

// SetupRouter exposes read-only snapshots of the registry and history, the
// send entry point, dialog/toast actions and a change stream.
// Nothing here mutates the registry or the history directly.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, conn Connection) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"state":      conn.State(),
			"session_id": o.Local.SessionID(),
			"name":       o.Local.DisplayName(),
		})
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.Snapshot()})
	})

	api.GET("/rooms/:name/members", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Rooms.Members(domain.RoomName(c.Param("name"))))
	})

	api.GET("/rooms/:name/messages", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.History.Read(domain.RoomName(c.Param("name"))))
	})

	api.POST("/rooms/:name/messages", func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		msg, err := conn.Send(c.Request.Context(), domain.RoomName(c.Param("name")), req.Content)
		if err != nil {
			c.JSON(sendStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, msg)
	})

	dialog := api.Group("/dialog")
	dialog.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Dialog.State())
	})
	dialog.POST("/open", func(c *gin.Context) {
		var req roomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		o.OpenDialog(domain.RoomName(req.Room))
		c.JSON(http.StatusOK, o.Dialog.State())
	})
	dialog.POST("/close", func(c *gin.Context) {
		o.CloseDialog()
		c.JSON(http.StatusOK, o.Dialog.State())
	})
	dialog.PUT("/room", func(c *gin.Context) {
		var req roomRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room"})
			return
		}
		o.SelectRoom(domain.RoomName(req.Room))
		c.JSON(http.StatusOK, o.Dialog.State())
	})

	api.GET("/toasts", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Toasts.List())
	})
	api.DELETE("/toasts/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if !o.DismissToast(id) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})
	api.POST("/toasts/:id/open", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if !o.OpenFromToast(id) {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, o.Dialog.State())
	})

	api.POST("/connection/close", func(c *gin.Context) {
		conn.Close()
		c.JSON(http.StatusOK, gin.H{"state": conn.State()})
	})

	api.GET("/events", func(c *gin.Context) {
		changed, cancel := o.Changes.Subscribe()
		defer cancel()
		log.Debug().Str("module", "adapters.http").Msg("event stream opened")

		c.Render(-1, sse.Event{Event: "state", Data: gin.H{"state": conn.State()}})
		c.Writer.Flush()

		// The first live view brings the connection up. It is bound to the
		// process context, not to this request.
		if err := conn.Start(ctx); err != nil && !errors.Is(err, domain.ErrAlreadyStarted) {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("connection start failed")
		}
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case <-c.Request.Context().Done():
				return false
			case <-changed:
				c.Render(-1, sse.Event{Event: "changed", Data: gin.H{"state": conn.State()}})
				return true
			}
		})
	})

	return r
}

func sendStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrRoomEmpty):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
