package server

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/llrpd/internal/auth"
	"github.com/danmuck/llrpd/internal/observability"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reader"
	"github.com/gin-gonic/gin"
)

// ReaderView joins a reader's connection status with its decode state.
type ReaderView struct {
	Origin     string                  `json:"origin"`
	Connection *reader.Status          `json:"connection,omitempty"`
	Identity   *session.ReaderIdentity `json:"identity,omitempty"`
	Stats      *session.Stats          `json:"stats,omitempty"`
}

func (s *Server) registerRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		connected := 0
		for _, v := range s.readerViews() {
			if v.Connection != nil && v.Connection.Connected {
				connected++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"service":   s.opts.Name,
			"version":   Version,
			"connected": connected,
		})
	})

	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/")
	if s.opts.Auth != nil {
		api.Use(auth.Middleware(s.opts.Auth))
	}

	api.GET("/readers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"readers": s.readerViews()})
	})

	api.GET("/readers/:origin", func(c *gin.Context) {
		origin := c.Param("origin")
		for _, v := range s.readerViews() {
			if v.Origin == origin {
				c.JSON(http.StatusOK, v)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown reader", "origin": origin})
	})

	api.GET("/readings/recent", func(c *gin.Context) {
		if s.opts.Recent == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reading journal disabled"})
			return
		}
		limit := s.opts.RecentLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, s.opts.RecentLimit)
		}
		readings, err := s.opts.Recent.Recent(limit)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"readings": readings, "count": len(readings)})
	})

	api.GET("/commands", func(c *gin.Context) {
		out := make([]gin.H, 0, len(session.Commands()))
		for _, cmd := range session.Commands() {
			out = append(out, gin.H{"name": cmd.Name(), "type": uint16(cmd.Type), "hex": hex.EncodeToString(cmd.Bytes())})
		}
		c.JSON(http.StatusOK, gin.H{"commands": out})
	})

	if s.opts.Live != nil {
		api.GET("/ws", gin.WrapH(s.opts.Live))
	}
}

// readerViews lists configured readers first, in configuration order, then
// any origin the registry knows that has no client.
func (s *Server) readerViews() []ReaderView {
	var views []ReaderView
	listed := make(map[string]bool)
	if s.opts.Readers != nil {
		for _, st := range s.opts.Readers.Statuses() {
			st := st
			v := ReaderView{Origin: st.Address, Connection: &st}
			s.attachState(&v)
			views = append(views, v)
			listed[st.Address] = true
		}
	}
	if s.opts.Registry != nil {
		for _, state := range s.opts.Registry.List() {
			if listed[state.Origin()] {
				continue
			}
			v := ReaderView{Origin: state.Origin()}
			s.attachState(&v)
			views = append(views, v)
		}
	}
	if views == nil {
		views = []ReaderView{}
	}
	return views
}

func (s *Server) attachState(v *ReaderView) {
	if s.opts.Registry == nil {
		return
	}
	state, ok := s.opts.Registry.Lookup(v.Origin)
	if !ok {
		return
	}
	stats := state.Stats()
	v.Stats = &stats
	if id, ok := state.Identity(); ok {
		v.Identity = &id
	}
}
