package server

import (
	"io"
	"net/http"

	"bank/internal/model"
	"bank/pkg/exception"

	"github.com/bytedance/sonic"
)

type customerRequest struct {
	Number    string `json:"customerNumber"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request, _ Principal) {
	customers, err := s.bank.ListCustomers(r.Context())
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request, _ Principal) {
	customers, err := s.bank.SearchCustomers(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request, _ Principal) {
	c, err := s.bank.GetCustomer(r.Context(), r.PathValue("number"))
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request, _ Principal) {
	req, ok := s.readCustomer(w, r)
	if !ok {
		return
	}
	c, err := s.bank.CreateCustomer(r.Context(), req.model(req.Number))
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateCustomer takes the customer number from the path. A number in the body is ignored.
func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request, _ Principal) {
	req, ok := s.readCustomer(w, r)
	if !ok {
		return
	}
	c, err := s.bank.UpdateCustomer(r.Context(), req.model(r.PathValue("number")))
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request, _ Principal) {
	if err := s.bank.DeleteCustomer(r.Context(), r.PathValue("number")); err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readCustomer(w http.ResponseWriter, r *http.Request) (customerRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, requestID(r), exception.Invalid("unreadable request body"))
		return customerRequest{}, false
	}
	var req customerRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, requestID(r), exception.Invalid("malformed customer, expected {customerNumber, firstName, lastName, email}"))
		return customerRequest{}, false
	}
	return req, true
}

func (req customerRequest) model(number string) model.Customer {
	return model.Customer{
		Number:    number,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
}
