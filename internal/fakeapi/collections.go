package fakeapi

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"flowfinance/internal/core"
)

type validator interface {
	Validate() error
}

// collection describes how one resource type is stored in a ledger.
type collection[T any, In validator] struct {
	items func(*ledger) *[]T
	build func(core.ID, In) T
	idOf  func(T) core.ID
	noun  string
}

// registerCollection mounts list, create, update and delete handlers for a
// resource under base. Collection routes keep their trailing slash.
func registerCollection[T any, In validator](g *gin.RouterGroup, s *Server, base string, col collection[T, In]) {
	g.GET(base+"/", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		l := s.ledger(c)
		if l == nil {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		out := slices.Clone(*col.items(l))
		if out == nil {
			out = []T{}
		}
		c.JSON(http.StatusOK, out)
	})

	g.POST(base+"/", func(c *gin.Context) {
		in, ok := bindInput[In](c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		l := s.ledger(c)
		if l == nil {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		item := col.build(s.id(), in)
		items := col.items(l)
		*items = append(*items, item)
		c.JSON(http.StatusCreated, item)
	})

	g.PUT(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, col.noun)
		if !ok {
			return
		}
		in, ok := bindInput[In](c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		items, idx := findItem(s, c, col, id)
		if idx < 0 {
			abort(c, http.StatusNotFound, col.noun+" not found")
			return
		}
		(*items)[idx] = col.build(id, in)
		c.JSON(http.StatusOK, (*items)[idx])
	})

	g.DELETE(base+"/:id", func(c *gin.Context) {
		id, ok := pathID(c, col.noun)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		items, idx := findItem(s, c, col, id)
		if idx < 0 {
			abort(c, http.StatusNotFound, col.noun+" not found")
			return
		}
		*items = slices.Delete(*items, idx, idx+1)
		c.Status(http.StatusNoContent)
	})
}

// ledger returns the authenticated user's records. Callers hold s.mu.
func (s *Server) ledger(c *gin.Context) *ledger {
	return s.ledgers[currentRecord(c).ID]
}

// findItem locates id in the user's collection. Callers hold s.mu.
func findItem[T any, In validator](s *Server, c *gin.Context, col collection[T, In], id core.ID) (*[]T, int) {
	l := s.ledger(c)
	if l == nil {
		return nil, -1
	}
	items := col.items(l)
	return items, slices.IndexFunc(*items, func(item T) bool { return col.idOf(item) == id })
}

func bindInput[In validator](c *gin.Context) (In, bool) {
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	if err := in.Validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	return in, true
}

func pathID(c *gin.Context, noun string) (core.ID, bool) {
	n, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusNotFound, noun+" not found")
		return 0, false
	}
	return core.ID(n), true
}
