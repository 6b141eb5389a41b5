package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"flowfinance/internal/core"
	"flowfinance/internal/log"
)

const userKey = "user"

var errInvalidToken = errors.New("invalid or expired token")

// tokenIssuer signs HS256 tokens whose subject is the username.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret), ttl: ttl, now: now}
}

func (t *tokenIssuer) issue(username string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *tokenIssuer) subject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// authenticate resolves the bearer token to a user record.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.Header("WWW-Authenticate", "Bearer")
		abort(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	username, err := s.tokens.subject(token)
	if err == nil {
		s.mu.Lock()
		u, found := s.users[username]
		s.mu.Unlock()
		if found {
			c.Set(userKey, u)
			c.Next()
			return
		}
	}
	c.Header("WWW-Authenticate", "Bearer")
	abort(c, http.StatusUnauthorized, "Could not validate credentials")
}

func currentRecord(c *gin.Context) *userRecord {
	return c.MustGet(userKey).(*userRecord)
}

func (s *Server) login(c *gin.Context) {
	creds := core.Credentials{
		Username: c.PostForm("username"),
		Password: c.PostForm("password"),
	}
	if err := creds.Validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[creds.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(creds.Password)) != nil {
		c.Header("WWW-Authenticate", "Bearer")
		abort(c, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := s.tokens.issue(u.Username)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	log.FromContext(c.Request.Context()).Info("Token issued",
		log.FieldOperation, log.OpLogin, log.FieldUsername, u.Username)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Server) register(c *gin.Context) {
	var reg core.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := reg.Validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.MinCost)
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(reg.Email, 0) {
		abort(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if _, taken := s.users[reg.Username]; taken {
		abort(c, http.StatusBadRequest, "Username already taken")
		return
	}

	u := &userRecord{
		User: core.User{ID: s.id(), Email: reg.Email, Username: reg.Username, IsActive: true},
		hash: hash,
	}
	s.users[u.Username] = u
	s.ledgers[u.ID] = &ledger{}
	c.JSON(http.StatusOK, u.User)
}

func (s *Server) currentUser(c *gin.Context) {
	u := currentRecord(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, u.User)
}

func (s *Server) updateCurrentUser(c *gin.Context) {
	var patch core.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		abort(c, http.StatusUnprocessableEntity, core.ErrInvalidEmail.Error())
		return
	}
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		abort(c, http.StatusUnprocessableEntity, core.ErrEmptyUsername.Error())
		return
	}

	var hash []byte
	if patch.Password != nil && *patch.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.MinCost)
		if err != nil {
			abort(c, http.StatusInternalServerError, err.Error())
			return
		}
		hash = h
	}

	u := currentRecord(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Email != nil {
		if s.emailTaken(*patch.Email, u.ID) {
			abort(c, http.StatusBadRequest, "Email already registered")
			return
		}
		u.Email = *patch.Email
	}
	if patch.Username != nil && *patch.Username != u.Username {
		if _, taken := s.users[*patch.Username]; taken {
			abort(c, http.StatusBadRequest, "Username already taken")
			return
		}
		delete(s.users, u.Username)
		u.Username = *patch.Username
		s.users[u.Username] = u
	}
	if hash != nil {
		u.hash = hash
	}
	c.JSON(http.StatusOK, u.User)
}

func (s *Server) deleteCurrentUser(c *gin.Context) {
	u := currentRecord(c)
	s.mu.Lock()
	delete(s.users, u.Username)
	delete(s.ledgers, u.ID)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

// emailTaken reports whether another user than except owns email. Callers
// hold s.mu.
func (s *Server) emailTaken(email string, except core.ID) bool {
	for _, u := range s.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
