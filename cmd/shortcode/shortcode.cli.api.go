package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	shortcode "github.com/itsatony/go-shortcode"
)

// renderRequest is the body of POST /v1/render. The content service base
// URL is server configuration and cannot be chosen by the caller.
type renderRequest struct {
	Text     string `json:"text"`
	PostID   int64  `json:"post_id"`
	PostType string `json:"post_type"`
	UserID   int64  `json:"user_id"`
	Locale   string `json:"locale"`
}

// renderResponse is the reply of POST /v1/render.
type renderResponse struct {
	Output     string           `json:"output"`
	Directives []directiveState `json:"directives"`
}

// directiveState reports how one directive settled.
type directiveState struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Literal bool   `json:"literal,omitempty"`
	Omitted bool   `json:"omitted,omitempty"`
	Error   string `json:"error,omitempty"`
}

// parseRequest is the body of POST /v1/parse.
type parseRequest struct {
	Text string `json:"text"`
}

// newRouter exposes the engine over HTTP.
func newRouter(engine *shortcode.Engine, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.GET(RouteHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	v1 := r.Group(RouteGroupV1)
	v1.POST(RouteRender, renderHandler(engine))
	v1.POST(RouteParse, func(c *gin.Context) {
		var req parseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrMsgInvalidRequest})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"directives": describeDirectives(engine, engine.Parse(req.Text)),
		})
	})
	v1.GET(RouteHandlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"handlers": engine.List()})
	})
	v1.DELETE(RouteCache, cacheHandler(engine))

	return r
}

func renderHandler(engine *shortcode.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrMsgInvalidRequest})
			return
		}

		doc, err := engine.Render(c.Request.Context(), req.Text, &shortcode.Context{
			PostID:   req.PostID,
			PostType: req.PostType,
			UserID:   req.UserID,
			Locale:   req.Locale,
		})
		if err != nil {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": ErrMsgRenderFailed})
			return
		}

		resp := renderResponse{Output: doc.String(), Directives: []directiveState{}}
		for _, f := range doc.Directives() {
			resp.Directives = append(resp.Directives, directiveState{
				Name:    f.Directive.Name,
				State:   f.State.String(),
				Literal: f.Literal,
				Omitted: f.Omitted,
				Error:   f.Value.Message,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}

// cacheHandler drops cached lookups: one item with ?post_id=, one content
// type's lists with ?type=, or everything.
func cacheHandler(engine *shortcode.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var removed int
		postID, hasPost := c.GetQuery(QueryPostID)
		postType, hasType := c.GetQuery(QueryType)

		switch {
		case hasPost:
			id, err := strconv.ParseInt(postID, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": ErrMsgInvalidPostID})
				return
			}
			removed = engine.InvalidateItem(id)
		case hasType:
			removed = engine.InvalidateList(postType)
		default:
			removed = engine.Cache().Len()
			engine.Cache().Clear()
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(LogMsgRequest,
			zap.String(LogFieldMethod, c.Request.Method),
			zap.String(LogFieldPath, c.Request.URL.Path),
			zap.Int(LogFieldStatus, c.Writer.Status()),
			zap.Duration(LogFieldLatency, time.Since(start)))
	}
}
