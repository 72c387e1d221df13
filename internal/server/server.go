package server

import (
	"context"
	"net/http"
	"time"

	"bank/internal/model"
	"bank/internal/obs"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	defaultAddr         = ":8080"
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
	maxBodySize         = 1 << 20
)

// Bank is the service the REST surface exposes.
type Bank interface {
	Buy(ctx context.Context, customerNumber, symbol string, quantity int64, idempotencyKey string) (model.ExecutedOrder, error)
	Sell(ctx context.Context, customerNumber, symbol string, quantity int64, idempotencyKey string) (model.ExecutedOrder, error)
	GetDepot(ctx context.Context, customerNumber string) (model.Depot, error)
	SearchStocks(ctx context.Context, term string) (model.SearchResult, error)
	GetBankVolume(ctx context.Context) (model.BankVolume, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	SearchCustomers(ctx context.Context, name string) ([]model.Customer, error)
	GetCustomer(ctx context.Context, number string) (model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)
	UpdateCustomer(ctx context.Context, c model.Customer) (model.Customer, error)
	DeleteCustomer(ctx context.Context, number string) error
	Metrics() obs.Snapshot
}

// Config configures the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the REST API of the bank.
type Server struct {
	cfg  Config
	bank Bank
	auth Authenticator
	ids  *obs.RequestIDs
	mux  *http.ServeMux
}

// New builds the server and registers its routes. auth defaults to HeaderAuthenticator.
func New(cfg Config, bank Bank, auth Authenticator) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if auth == nil {
		auth = HeaderAuthenticator{}
	}

	s := &Server{
		cfg:  cfg,
		bank: bank,
		auth: auth,
		ids:  obs.NewRequestIDs(0),
		mux:  http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/customers/{number}/orders", s.authenticated(s.handlePlaceOrder))
	s.mux.HandleFunc("GET /api/customers/{number}/depot", s.authenticated(s.handleGetDepot))
	s.mux.HandleFunc("GET /api/stocks", s.authenticated(s.handleSearchStocks))
	s.mux.HandleFunc("GET /api/customers", s.authenticated(s.employeeOnly(s.handleListCustomers)))
	s.mux.HandleFunc("POST /api/customers", s.authenticated(s.employeeOnly(s.handleCreateCustomer)))
	s.mux.HandleFunc("GET /api/customers/search", s.authenticated(s.employeeOnly(s.handleSearchCustomers)))
	s.mux.HandleFunc("GET /api/customers/{number}", s.authenticated(s.employeeOnly(s.handleGetCustomer)))
	s.mux.HandleFunc("PUT /api/customers/{number}", s.authenticated(s.employeeOnly(s.handleUpdateCustomer)))
	s.mux.HandleFunc("DELETE /api/customers/{number}", s.authenticated(s.employeeOnly(s.handleDeleteCustomer)))
	s.mux.HandleFunc("GET /api/bank/volume", s.authenticated(s.employeeOnly(s.handleGetBankVolume)))
	s.mux.HandleFunc("GET /api/metrics", s.authenticated(s.employeeOnly(s.handleMetrics)))
}

// Handler returns the root handler, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("server: listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listen and serve")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown server")
	}
	logs.Info("server: stopped")
	return nil
}
