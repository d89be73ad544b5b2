// Package mockserver is an in-memory stand-in for the coordination
// server's notification endpoints, for local development and tests.
package mockserver

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Notification is one stored notification.
type Notification struct {
	ID        string
	Text      string
	Link      string
	Unread    bool
	CreatedAt time.Time
}

// failure is an injected error response.
type failure struct {
	status  int
	message string
}

// Server holds the notifications and serves them over gin.
type Server struct {
	mu      sync.Mutex
	items   map[string]*Notification
	nextSeq int
	fail    *failure

	session       string
	sessionCookie string
	csrfCookie    string

	logger zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSession requires every request to carry the session cookie with
// this value.
func WithSession(value string) Option {
	return func(s *Server) { s.session = value }
}

// WithCookieNames overrides the session and CSRF cookie names.
func WithCookieNames(session, csrf string) Option {
	return func(s *Server) {
		if session != "" {
			s.sessionCookie = session
		}
		if csrf != "" {
			s.csrfCookie = csrf
		}
	}
}

// WithLogger sets the server's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		items:         make(map[string]*Notification),
		sessionCookie: "sessionid",
		csrfCookie:    "csrftoken",
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("layer", "mock_server").Logger()
	return s
}

// Add stores a new unread notification and returns it.
func (s *Server) Add(text, link string) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	n := &Notification{
		ID:        uuid.New().String(),
		Text:      text,
		Link:      link,
		Unread:    true,
		CreatedAt: time.Now().Add(time.Duration(s.nextSeq) * time.Nanosecond),
	}
	s.items[n.ID] = n
	return *n
}

// Unread returns the number of unread notifications.
func (s *Server) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

func (s *Server) unreadLocked() int {
	n := 0
	for _, it := range s.items {
		if it.Unread {
			n++
		}
	}
	return n
}

// FailWith makes every following request fail with status and message
// until ClearFailure is called.
func (s *Server) FailWith(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = &failure{status: status, message: message}
}

// ClearFailure removes an injected failure.
func (s *Server) ClearFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = nil
}

// Handler returns a gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	s.RegisterRoutes(router)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// RegisterRoutes sets up the notification and report routes.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/", s.injectFailure, s.requireSession, s.ensureCSRFCookie)
	{
		api.GET("/notifications/unread-count", s.UnreadCount)
		api.GET("/notifications/recent", s.Recent)
		api.POST("/notifications/mark-all-read", s.checkCSRF, s.MarkAllRead)
		api.GET("/notifications/:id/mark-read", s.checkCSRF, s.MarkRead)
		api.GET("/reports/export", s.ReportExport)
	}
}

func (s *Server) injectFailure(c *gin.Context) {
	s.mu.Lock()
	f := s.fail
	s.mu.Unlock()
	if f == nil {
		c.Next()
		return
	}
	body := gin.H{"status": "error"}
	if f.message != "" {
		body["message"] = f.message
	}
	c.AbortWithStatusJSON(f.status, body)
}

func (s *Server) requireSession(c *gin.Context) {
	if s.session == "" {
		c.Next()
		return
	}
	v, err := c.Cookie(s.sessionCookie)
	if err != nil || v != s.session {
		s.logger.Warn().Str("path", c.Request.URL.Path).Msg("rejected request without session")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Authentication credentials were not provided.",
		})
		return
	}
	c.Next()
}

// ensureCSRFCookie issues a CSRF cookie to clients that have none yet.
func (s *Server) ensureCSRFCookie(c *gin.Context) {
	if v, err := c.Cookie(s.csrfCookie); err != nil || v == "" {
		token := strings.ReplaceAll(uuid.New().String(), "-", "")
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     s.csrfCookie,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Next()
}

// checkCSRF requires the CSRF header to match the CSRF cookie.
func (s *Server) checkCSRF(c *gin.Context) {
	cookie, err := c.Cookie(s.csrfCookie)
	header := c.GetHeader("X-CSRFToken")
	if err != nil || cookie == "" || header != cookie {
		s.logger.Warn().Str("path", c.Request.URL.Path).Msg("csrf verification failed")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  "error",
			"message": "CSRF verification failed.",
		})
		return
	}
	c.Next()
}

// UnreadCount handles GET /notifications/unread-count.
func (s *Server) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": s.Unread()})
}

// Recent handles GET /notifications/recent.
func (s *Server) Recent(c *gin.Context) {
	s.mu.Lock()
	list := make([]Notification, 0, len(s.items))
	for _, it := range s.items {
		list = append(list, *it)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	c.JSON(http.StatusOK, gin.H{"html": renderList(list)})
}

// MarkAllRead handles POST /notifications/mark-all-read.
func (s *Server) MarkAllRead(c *gin.Context) {
	s.mu.Lock()
	marked := 0
	for _, it := range s.items {
		if it.Unread {
			it.Unread = false
			marked++
		}
	}
	s.mu.Unlock()

	s.logger.Info().Int("marked", marked).Msg("marked all notifications read")
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Marked %d notifications as read.", marked),
	})
}

// MarkRead handles GET /notifications/:id/mark-read.
func (s *Server) MarkRead(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	it, ok := s.items[id]
	if ok {
		it.Unread = false
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "Notification not found.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ReportExport handles GET /reports/export. It only acknowledges the range.
func (s *Server) ReportExport(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	for _, v := range []string{start, end} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Dates must use the YYYY-MM-DD format.",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "queued", "start": start, "end": end})
}

func renderList(list []Notification) string {
	if len(list) == 0 {
		return `<div class="dropdown-item text-muted">No notifications</div>`
	}

	var b strings.Builder
	for _, n := range list {
		cls := "dropdown-item notification"
		if n.Unread {
			cls += " unread"
		}
		fmt.Fprintf(&b, `<li class="%s" data-notification-id="%s">`, cls, html.EscapeString(n.ID))
		if n.Link != "" {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, html.EscapeString(n.Link), html.EscapeString(n.Text))
		} else {
			b.WriteString(html.EscapeString(n.Text))
		}
		fmt.Fprintf(&b, ` <small class="text-muted">%s</small></li>`, n.CreatedAt.Format("Jan 2 15:04"))
	}
	return b.String()
}
