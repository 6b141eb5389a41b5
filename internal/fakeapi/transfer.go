package fakeapi

import (
	"bytes"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"flowfinance/internal/core"
	"flowfinance/internal/log"
	"flowfinance/internal/transfer"
)

func (s *Server) exportTransactions(c *gin.Context) {
	u := currentRecord(c)
	s.mu.Lock()
	l := s.ledgers[u.ID]
	var txs []core.Transaction
	if l != nil {
		txs = slices.Clone(l.transactions)
	}
	s.mu.Unlock()

	now := s.now()
	var buf bytes.Buffer
	if err := transfer.WriteArchive(&buf, u.ID, txs, now); err != nil {
		abort(c, http.StatusInternalServerError, "An error occurred while exporting transactions: "+err.Error())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+transfer.BaseName(now)+`.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) importTransactions(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	inputs, err := transfer.ValidateImport(f)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transfer.ErrMalformedFile) {
			status = http.StatusUnprocessableEntity
		}
		abort(c, status, "Error importing transactions: "+err.Error())
		return
	}

	s.mu.Lock()
	l := s.ledger(c)
	if l == nil {
		s.mu.Unlock()
		abort(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	created := make([]core.Transaction, 0, len(inputs))
	for _, in := range inputs {
		tx := buildTransaction(s.id(), in)
		l.transactions = append(l.transactions, tx)
		created = append(created, tx)
	}
	s.mu.Unlock()

	log.FromContext(c.Request.Context()).Info("Transactions imported",
		log.FieldOperation, log.OpImport, log.FieldCount, len(created))
	c.JSON(http.StatusOK, created)
}
