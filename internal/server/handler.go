package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"bank/internal/model/enum"
	"bank/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type requestIDKey struct{}

type handlerFunc func(w http.ResponseWriter, r *http.Request, p Principal)

type orderRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
	Side     string `json:"side"`
}

type errorResponse struct {
	Code    exception.Code `json:"code"`
	Message string         `json:"message"`
}

func (s *Server) authenticated(next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.ids.Next()
		w.Header().Set("X-Request-Id", id)

		p, err := s.auth.Authenticate(r)
		if err != nil {
			s.writeError(w, r, id, err)
			return
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next(w, r.WithContext(ctx), p)
	}
}

func (s *Server) employeeOnly(next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, p Principal) {
		if p.Role != enum.RoleEmployee {
			s.writeError(w, r, requestID(r), exception.Public(exception.ErrForbidden, "only employees may access this resource"))
			return
		}
		next(w, r, p)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request, p Principal) {
	number := r.PathValue("number")
	if !p.CanActOn(number) {
		s.writeError(w, r, requestID(r), exception.Public(exception.ErrForbidden, "you may only trade for your own depot"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, requestID(r), exception.Invalid("unreadable request body"))
		return
	}
	var req orderRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, requestID(r), exception.Invalid("malformed order, expected {symbol, quantity, side}"))
		return
	}
	side, err := enum.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, r, requestID(r), exception.Invalid("side must be BUY or SELL"))
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	place := s.bank.Buy
	if side == enum.SideSell {
		place = s.bank.Sell
	}
	res, err := place(r.Context(), number, req.Symbol, req.Quantity, key)
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetDepot(w http.ResponseWriter, r *http.Request, p Principal) {
	number := r.PathValue("number")
	if !p.CanActOn(number) {
		s.writeError(w, r, requestID(r), exception.Public(exception.ErrForbidden, "you may only view your own depot"))
		return
	}

	depot, err := s.bank.GetDepot(r.Context(), number)
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, depot)
}

func (s *Server) handleSearchStocks(w http.ResponseWriter, r *http.Request, _ Principal) {
	res, err := s.bank.SearchStocks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetBankVolume(w http.ResponseWriter, r *http.Request, _ Principal) {
	volume, err := s.bank.GetBankVolume(r.Context())
	if err != nil {
		s.writeError(w, r, requestID(r), err)
		return
	}
	writeJSON(w, http.StatusOK, volume)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request, _ Principal) {
	writeJSON(w, http.StatusOK, s.bank.Metrics())
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// writeError answers with {code, message}. Internal details never leave the process.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code := exception.CodeOf(err)
	if code == exception.CodeInternal {
		logs.Errorf("server: [%s] %s %s failed, err: %+v", id, r.Method, r.URL.Path, err)
	} else {
		logs.Debugf("server: [%s] %s %s answered %s, err: %+v", id, r.Method, r.URL.Path, code, err)
	}

	msg := exception.PublicMessage(err)
	if code == exception.CodeInternal || errors.Is(err, exception.ErrAuthFailure) {
		msg = code.Message()
	}
	writeJSON(w, code.Status(), errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := sonic.ConfigFastest.Marshal(v)
	if err != nil {
		logs.Errorf("server: marshal response, err: %+v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
