package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bigtime/bigtime/internal/model"
)

// EmployeeEndpoint wraps /api/v1/employees.
type EmployeeEndpoint struct {
	transport *Transport
}

// Create POSTs a new employee. A Conflict outcome means the badge already
// exists server-side, which callers treat as success.
func (e *EmployeeEndpoint) Create(ctx context.Context, emp *model.Employee) (Result, error) {
	r, err := e.transport.do(ctx, http.MethodPost, "/api/v1/employees", nil, emp)
	if err != nil {
		return Result{}, err
	}
	return r.result(), nil
}

// Update PUTs the employee keyed by badge.
func (e *EmployeeEndpoint) Update(ctx context.Context, badge string, emp *model.Employee) (Result, error) {
	r, err := e.transport.do(ctx, http.MethodPut,
		"/api/v1/employees/"+url.PathEscape(badge), nil, emp)
	if err != nil {
		return Result{}, err
	}
	return r.result(), nil
}

// Delete removes the employee keyed by badge. NotFound means the employee
// is already absent, which callers treat as success.
func (e *EmployeeEndpoint) Delete(ctx context.Context, badge string) (Result, error) {
	r, err := e.transport.do(ctx, http.MethodDelete,
		"/api/v1/employees/"+url.PathEscape(badge), nil, nil)
	if err != nil {
		return Result{}, err
	}
	return r.result(), nil
}

// List fetches the full employee collection.
func (e *EmployeeEndpoint) List(ctx context.Context) ([]model.Employee, error) {
	r, err := e.transport.do(ctx, http.MethodGet, "/api/v1/employees", nil, nil)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("employee list returned %d: %s", r.StatusCode, r.Body.Error)
	}
	var data struct {
		Employees []model.Employee `json:"employees"`
	}
	if err := r.decodeData(&data); err != nil {
		return nil, err
	}
	return data.Employees, nil
}
