// Package fakeapi is an in-memory implementation of the Flow Finance REST
// API. It backs the client tests and local development; nothing is
// persisted across restarts.
package fakeapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"flowfinance/internal/core"
	"flowfinance/internal/log"
)

// Config holds the fake server settings.
type Config struct {
	Secret         string
	TokenTTL       time.Duration
	AllowedOrigins []string
	Logger         *log.Logger

	// LoginAttemptsPerMinute caps POST /token and /register per client IP.
	LoginAttemptsPerMinute int
	// Now overrides the clock used for token issuing and export names.
	Now func() time.Time
}

// Server serves the API from memory. It is safe for concurrent use.
type Server struct {
	tokens *tokenIssuer
	logger *log.Logger
	now    func() time.Time
	engine *gin.Engine

	mu      sync.Mutex
	nextID  core.ID
	users   map[string]*userRecord
	ledgers map[core.ID]*ledger
	faults  map[string]int
}

type userRecord struct {
	core.User
	hash []byte
}

// ledger holds one user's records in creation order.
type ledger struct {
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
}

// New creates a server with an empty user base.
func New(cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	if cfg.Secret == "" {
		cfg.Secret = "flow-fakeapi-secret"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LoginAttemptsPerMinute <= 0 {
		cfg.LoginAttemptsPerMinute = defaultLoginAttempts
	}

	s := &Server{
		logger:  cfg.Logger.WithComponent(log.ComponentFakeAPI),
		now:     cfg.Now,
		users:   make(map[string]*userRecord),
		ledgers: make(map[core.ID]*ledger),
		faults:  make(map[string]int),
	}
	s.tokens = newTokenIssuer(cfg.Secret, cfg.TokenTTL, cfg.Now)
	s.engine = s.routes(cfg.AllowedOrigins, newLimiter(cfg.LoginAttemptsPerMinute, cfg.Now))
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return log.Middleware(s.logger)(s.engine)
}

// FailNext makes the next request matching method and path answer with
// status instead of being served.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = status
}

func (s *Server) routes(origins []string, logins *limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), apiHeaders)

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))
	r.Use(s.injectFaults)

	r.POST("/token", logins.throttle, s.login)
	r.POST("/register", logins.throttle, s.register)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	protected := r.Group("/")
	protected.Use(s.authenticate)
	{
		protected.GET("/users/me", s.currentUser)
		protected.PUT("/users/me", s.updateCurrentUser)
		protected.DELETE("/users/me", s.deleteCurrentUser)

		registerCollection(protected, s, "/accounts", collection[core.Account, core.AccountInput]{
			items: func(l *ledger) *[]core.Account { return &l.accounts },
			build: func(id core.ID, in core.AccountInput) core.Account {
				return core.Account{ID: id, Name: in.Name, InitialBalance: in.InitialBalance}
			},
			idOf: func(a core.Account) core.ID { return a.ID },
			noun: "Account",
		})
		registerCollection(protected, s, "/categories", collection[core.Category, core.CategoryInput]{
			items: func(l *ledger) *[]core.Category { return &l.categories },
			build: func(id core.ID, in core.CategoryInput) core.Category {
				return core.Category{ID: id, Name: in.Name}
			},
			idOf: func(c core.Category) core.ID { return c.ID },
			noun: "Category",
		})

		protected.GET("/transactions/export", s.exportTransactions)
		protected.POST("/transactions/import", s.importTransactions)
		registerCollection(protected, s, "/transactions", collection[core.Transaction, core.TransactionInput]{
			items: func(l *ledger) *[]core.Transaction { return &l.transactions },
			build: buildTransaction,
			idOf:  func(t core.Transaction) core.ID { return t.ID },
			noun:  "Transaction",
		})
	}
	return r
}

func (s *Server) injectFaults(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	s.mu.Lock()
	status, ok := s.faults[key]
	delete(s.faults, key)
	s.mu.Unlock()

	if ok {
		abort(c, status, "injected failure")
	}
}

func (s *Server) id() core.ID {
	s.nextID++
	return s.nextID
}

// abort writes a FastAPI-style error body.
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func buildTransaction(id core.ID, in core.TransactionInput) core.Transaction {
	return core.Transaction{
		ID:          id,
		Amount:      in.Amount,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Source:      strings.TrimSpace(in.Source),
		Date:        in.Date,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
	}
}
