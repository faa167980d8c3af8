// Package contracts validates HTTP exchanges and CloudEvents against the published contracts.
package contracts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// HTTPValidator validates HTTP requests and responses against an OpenAPI document
type HTTPValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewHTTPValidator loads and checks an OpenAPI document
func NewHTTPValidator(spec []byte) (*HTTPValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &HTTPValidator{doc: doc, router: router}, nil
}

// ValidateRequest validates a request, including its body. The body is left readable.
func (v *HTTPValidator) ValidateRequest(req *http.Request) error {
	input, err := v.requestInput(req)
	if err != nil {
		return err
	}
	input.Options = &openapi3filter.Options{MultiError: true}

	if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}

// ValidateResponse validates the response a request received. The body is left readable.
func (v *HTTPValidator) ValidateResponse(req *http.Request, resp *http.Response) error {
	input, err := v.requestInput(req)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		return fmt.Errorf("response validation failed for %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// OperationID returns the id of the operation serving req
func (v *HTTPValidator) OperationID(req *http.Request) (string, error) {
	route, _, err := v.router.FindRoute(req)
	if err != nil {
		return "", fmt.Errorf("failed to find route for %s %s: %w", req.Method, req.URL.Path, err)
	}
	return route.Operation.OperationID, nil
}

// Document returns the parsed OpenAPI document
func (v *HTTPValidator) Document() *openapi3.T {
	return v.doc
}

func (v *HTTPValidator) requestInput(req *http.Request) (*openapi3filter.RequestValidationInput, error) {
	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return nil, fmt.Errorf("failed to find route for %s %s: %w", req.Method, req.URL.Path, err)
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}, nil
}
