package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is an upload attached to a multipart form.
type File struct {
	Name   string
	Reader io.Reader
}

// OpenFile opens path for upload. The caller closes the returned closer once
// the request has been sent.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &File{Name: filepath.Base(path), Reader: f}, f, nil
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) *form {
	if f.err == nil {
		f.err = f.w.WriteField(name, value)
	}
	return f
}

// optional writes the field only when value is non-empty.
func (f *form) optional(name, value string) *form {
	if value == "" {
		return f
	}
	return f.field(name, value)
}

func (f *form) file(name string, file *File) *form {
	if f.err != nil || file == nil {
		return f
	}
	part, err := f.w.CreateFormFile(name, file.Name)
	if err != nil {
		f.err = err
		return f
	}
	_, f.err = io.Copy(part, file.Reader)
	return f
}

func (f *form) request(method, path string) (request, error) {
	if f.err != nil {
		return request{}, fmt.Errorf("build form: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return request{}, fmt.Errorf("build form: %w", err)
	}
	return request{method: method, path: path, body: &f.buf, contentType: f.w.FormDataContentType()}, nil
}
