package server

import (
	"net/http"
	"testing"

	"bank/internal/model"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeCustomers(t *testing.T, body []byte) []model.Customer {
	t.Helper()
	var customers []model.Customer
	require.NoError(t, sonic.Unmarshal(body, &customers))
	return customers
}

func TestCustomerManagement(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/customers", `{"customerNumber":"C-3","firstName":"Alan","lastName":"Turing","email":"alan@example.com"}`, employee())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Customer
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(3), created.ID)
	assert.Equal(t, "C-3", created.Number)

	rec = e.do(t, http.MethodPost, "/api/customers", `{"customerNumber":"C-3"}`, employee())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer C-3 already exists", decodeErr(t, rec).Message)

	rec = e.do(t, http.MethodPost, "/api/customers", `{"firstName":"Nobody"}`, employee())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/customers", "", employee())
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeCustomers(t, rec.Body.Bytes())
	require.Len(t, all, 3)
	assert.Equal(t, "C-3", all[2].Number)

	rec = e.do(t, http.MethodGet, "/api/customers/search?name=TUR", "", employee())
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeCustomers(t, rec.Body.Bytes())
	require.Len(t, found, 1)
	assert.Equal(t, "C-3", found[0].Number)

	rec = e.do(t, http.MethodGet, "/api/customers/search?name=", "", employee())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/customers/C-3", `{"customerNumber":"C-99","firstName":"Alan","lastName":"M. Turing"}`, employee())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/customers/C-3", "", employee())
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Customer
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "C-3", got.Number)
	assert.Equal(t, "M. Turing", got.LastName)
	assert.Empty(t, got.Email)

	rec = e.do(t, http.MethodPut, "/api/customers/C-9", `{"firstName":"X"}`, employee())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/customers/C-3", "", employee())
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/customers/C-3", "", employee())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCustomerHoldingShares(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/customers/C-1/orders", `{"symbol":"AAPL","quantity":1,"side":"BUY"}`, customerC1())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/customers/C-1", "", employee())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeErr(t, rec).Code)

	rec = e.do(t, http.MethodGet, "/api/customers/C-1/depot", "", customerC1())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCustomerManagementIsEmployeeOnly(t *testing.T) {
	e := newTestEnv(t)

	for _, tc := range []struct {
		method, target, body string
	}{
		{http.MethodGet, "/api/customers", ""},
		{http.MethodPost, "/api/customers", `{"customerNumber":"C-3"}`},
		{http.MethodGet, "/api/customers/search?name=a", ""},
		{http.MethodGet, "/api/customers/C-1", ""},
		{http.MethodPut, "/api/customers/C-1", `{"firstName":"Ada"}`},
		{http.MethodDelete, "/api/customers/C-1", ""},
	} {
		rec := e.do(t, tc.method, tc.target, tc.body, customerC1())
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.target)
	}

	rec := e.do(t, http.MethodGet, "/api/customers/C-1", "", employee())
	assert.Equal(t, http.StatusOK, rec.Code)
}
