package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/alfaledger/pkg/ledger"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/mcclellann/alfaledger/pkg/report"
	"github.com/mcclellann/alfaledger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Server holds the ledger instance.
type Server struct {
	ledger   *ledger.Ledger
	storage  store.Storage // Kept for health checks and closing
	log      *logrus.Logger
	currency string
}

func NewServer(s store.Storage, l *ledger.Ledger, log *logrus.Logger, currency string) *Server {
	return &Server{
		ledger:   l,
		storage:  s,
		log:      log,
		currency: currency,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	router.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	router.HandleFunc("/loans", s.createLoanHandler).Methods("POST")
	router.HandleFunc("/loans/{id}", s.getLoanHandler).Methods("GET")
	router.HandleFunc("/loans/{id}/payments", s.recordPaymentHandler).Methods("POST")
	router.HandleFunc("/loans/{id}/monthly", s.monthlyHandler).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps ledger errors onto status codes. Validation reasons are sent
// verbatim so clients can show them.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ledger.ValidationError
	var cerr *ledger.ConnectivityError
	switch {
	case errors.As(err, &verr):
		http.Error(w, string(verr.Reason), http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrLoanNotFound):
		http.Error(w, "Loan not found", http.StatusNotFound)
	case errors.As(err, &cerr):
		http.Error(w, "Ledger is offline, try again when connected", http.StatusServiceUnavailable)
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid loan ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req ledger.LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.CreateLoan(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := loanID(w, r)
	if !ok {
		return
	}

	loan, err := s.ledger.GetLoan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

// listLoansHandler lists every loan, or those whose borrower matches ?q=.
func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.SearchLoans(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if loans == nil {
		loans = []*models.Loan{}
	}

	writeJSON(w, http.StatusOK, loans)
}

type paymentResponse struct {
	Payment models.Payment    `json:"payment"`
	Balance decimal.Decimal   `json:"balance"`
	Status  models.LoanStatus `json:"status"`
}

func (s *Server) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := loanID(w, r)
	if !ok {
		return
	}

	var req ledger.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.ApplyPayment(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, paymentResponse{
		Payment: loan.Payments[len(loan.Payments)-1],
		Balance: loan.Balance,
		Status:  loan.Status,
	})
}

type monthlyResponse struct {
	LoanID  uuid.UUID               `json:"loan_id"`
	Amount  decimal.Decimal         `json:"amount"`
	Balance decimal.Decimal         `json:"balance"`
	Months  []report.MonthlySummary `json:"months"`
}

func (s *Server) monthlyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := loanID(w, r)
	if !ok {
		return
	}

	loan, months, err := s.ledger.MonthlySummary(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, monthlyResponse{LoanID: loan.ID, Amount: loan.Amount, Balance: loan.Balance, Months: months})
}

type statsResponse struct {
	report.Portfolio
	TotalLoans int               `json:"total_loans"`
	Currency   string            `json:"currency"`
	Display    map[string]string `json:"display"`
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Portfolio(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Portfolio:  p,
		TotalLoans: p.ActiveCount + p.ClosedCount,
		Currency:   s.currency,
		Display: map[string]string{
			"total_disbursed":     report.FormatMoney(p.TotalDisbursedActive, s.currency),
			"total_outstanding":   report.FormatMoney(p.TotalOutstanding, s.currency),
			"today_collection":    report.FormatMoney(p.TodayCollectionTotal, s.currency),
			"interest_profit":     report.FormatMoney(p.TotalInterestActive, s.currency),
			"recovered_principal": report.FormatMoney(p.RecoveredPrincipal, s.currency),
		},
	})
}
