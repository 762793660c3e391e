package api

import (
	"context"
	"net/http"
	"net/url"
)

// Resource is the list/get/delete half of a CRUD endpoint. Typed services
// embed it and add their own create and update forms.
type Resource[T any] struct {
	c        *Client
	listPath string
	itemPath string
}

func newResource[T any](c *Client, listPath, itemPath string) Resource[T] {
	return Resource[T]{c: c, listPath: listPath, itemPath: itemPath}
}

func (r Resource[T]) List(ctx context.Context, p ListParams) (*Page[T], error) {
	return list[T](ctx, r.c, r.listPath, p.values())
}

func (r Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, invalid("id is required")
	}
	var out T
	if err := r.c.call(ctx, request{method: http.MethodGet, path: r.item(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return invalid("id is required")
	}
	return r.c.call(ctx, request{method: http.MethodDelete, path: r.item(id)}, nil)
}

func (r Resource[T]) item(id string) string {
	return r.itemPath + "/" + url.PathEscape(id)
}

func (r Resource[T]) send(ctx context.Context, f *form, method, path string) (*T, error) {
	req, err := f.request(method, path)
	if err != nil {
		return nil, err
	}
	var out T
	if err := r.c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r Resource[T]) create(ctx context.Context, f *form) (*T, error) {
	return r.send(ctx, f, http.MethodPost, r.listPath)
}

func (r Resource[T]) update(ctx context.Context, id string, f *form) (*T, error) {
	if id == "" {
		return nil, invalid("id is required")
	}
	return r.send(ctx, f, http.MethodPut, r.item(id))
}
