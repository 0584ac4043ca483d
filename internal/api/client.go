// Package api wraps the SonicVision backend resources. Every call goes through the request pipeline.
//
// Request payloads are validated locally and rejected with a [pipeline.ValidationError]
// before any network call is made.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// Client is the backend API client.
type Client struct {
	pipe     *pipeline.Pipeline
	validate *validator.Validate
	logger   *log.Logger
}

// New creates a [Client] on top of pipe. A nil logger discards output.
func New(pipe *pipeline.Pipeline, logger *log.Logger) *Client {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{pipe: pipe, validate: v, logger: shared.WithLogger(logger, "component", "api")}
}

// Pipeline returns the underlying request pipeline.
func (c *Client) Pipeline() *pipeline.Pipeline { return c.pipe }

// Validate checks v against its validate tags and reports failures with json field names.
func (c *Client) Validate(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
	}
	return &pipeline.ValidationError{Message: "invalid request", Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Must match %s.", fe.Param())
	case "nefield":
		return fmt.Sprintf("Must differ from %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}

// call sends an authenticated request, validating in first when it is a struct.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if in != nil && isStruct(in) {
		if err := c.Validate(in); err != nil {
			return err
		}
	}
	return c.pipe.JSON(ctx, method, path, query, in, out)
}

// anonymous sends a request without credentials or refresh handling.
func (c *Client) anonymous(ctx context.Context, method, path string, in, out any) error {
	if in != nil && isStruct(in) {
		if err := c.Validate(in); err != nil {
			return err
		}
	}

	req, err := pipeline.NewRequest(method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.pipe.Anonymous(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// list fetches a collection that may be a bare array or a DRF page {"count","results"}.
func list[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page.Results, nil
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
