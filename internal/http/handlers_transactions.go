package http

import (
	"errors"
	"net/http"

	"budget/internal/analytics"
	"budget/internal/core"
	"budget/internal/form"
	"budget/internal/log"
	"budget/internal/services"
)

// HeaderStorageWarning is set when a transaction was accepted but could not
// be written to storage.
const HeaderStorageWarning = "X-Storage-Warning"

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := analytics.ParseTypeFilter(q.Get("filter"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	order, err := analytics.ParseSortOrder(q.Get("sort"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.store.Snapshot()
	txs := analytics.List(snap.Transactions, filter, order)

	writeJSON(w, r, http.StatusOK, listView{
		Version:      snap.Version,
		Filter:       filter,
		FilterLabel:  filter.Label(),
		Sort:         order,
		Count:        len(txs),
		Transactions: s.transactionViews(txs),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f := p.Form()
	draft, err := f.Draft()
	if err != nil {
		var ferrs form.Errors
		if errors.As(err, &ferrs) {
			logger.InfoContext(ctx, "Transaction rejected", log.FieldOperation, log.OpValidate, log.FieldError, ferrs.Error())
			writeFieldErrors(w, r, ferrs.Fields())
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.store.Add(ctx, draft)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeFieldErrors(w, r, validationFields(verr))
		case errors.Is(err, services.ErrStoreClosed):
			writeError(w, r, http.StatusServiceUnavailable, "store is shutting down")
		default:
			logger.ErrorContext(ctx, "Failed to add transaction", log.FieldError, err)
			writeError(w, r, http.StatusInternalServerError, "could not add transaction")
		}
		return
	}

	if !res.Persisted {
		w.Header().Set(HeaderStorageWarning, "transaction saved in memory only; it will be written with the next successful save")
	}

	writeJSON(w, r, http.StatusCreated, createdView{
		Transaction: s.transactionViews([]core.Transaction{res.Transaction})[0],
		Persisted:   res.Persisted,
	})
}

// validationFields maps a store-level rejection to the form field it concerns.
func validationFields(verr *services.ValidationError) map[string]string {
	switch {
	case errors.Is(verr, core.ErrEmptyTitle):
		return map[string]string{"title": form.MsgTitleRequired}
	case errors.Is(verr, core.ErrInvalidAmount):
		return map[string]string{"amount": form.MsgAmountInvalid}
	case errors.Is(verr, core.ErrInvalidType):
		return map[string]string{"type": form.MsgTypeInvalid}
	case errors.Is(verr, core.ErrMissingCategory), errors.Is(verr, core.ErrInvalidCategory):
		return map[string]string{"category": form.MsgCategoryRequired}
	case errors.Is(verr, core.ErrEmptyDate):
		return map[string]string{"date": form.MsgDateRequired}
	default:
		return map[string]string{"form": verr.Error()}
	}
}

type validationView struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// handleValidateTransaction runs the field rules without adding anything.
func (s *Server) handleValidateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	errs := p.Form().Validate()
	writeJSON(w, r, http.StatusOK, validationView{Valid: errs.Empty(), Errors: errs.Fields()})
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, form.New(s.dashboard.Now()))
}

type amountInputView struct {
	Amount   string `json:"amount"`
	Accepted bool   `json:"accepted"`
}

// handleAmountInput applies one keystroke to the amount field. The body
// carries the current value and the text after the keystroke.
func (s *Server) handleAmountInput(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f := form.Form{Amount: p.Get("current")}
	accepted := f.ApplyAmountInput(p.Get("input"))
	writeJSON(w, r, http.StatusOK, amountInputView{Amount: f.Amount, Accepted: accepted})
}

type categoriesView struct {
	Types      []core.TransactionType `json:"types"`
	Categories []categoryView         `json:"categories"`
	Filters    []analytics.TypeFilter `json:"filters"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	v := categoriesView{
		Types:   core.TransactionTypes,
		Filters: analytics.Filters,
	}
	for _, c := range core.Categories {
		v.Categories = append(v.Categories, categoryView{Category: c, Color: analytics.CategoryColor(c)})
	}
	writeJSON(w, r, http.StatusOK, v)
}
