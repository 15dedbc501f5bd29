package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/storage"
)

const maxUploadMemory = 8 << 20

// formUpload returns the file posted under field, or nil when the request
// carries none. The returned func closes the file.
func formUpload(c *gin.Context, field string) (*storage.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	up := &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
	return up, func() { _ = f.Close() }, nil
}

// optionalForm returns a pointer to the trimmed form value, or nil when the
// field was not sent.
func optionalForm(c *gin.Context, field string) *string {
	v, ok := c.GetPostForm(field)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

func optionalBool(c *gin.Context, field string) (*bool, error) {
	v := optionalForm(c, field)
	if v == nil || *v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func optionalInt(c *gin.Context, field string) (*int, error) {
	v := optionalForm(c, field)
	if v == nil || *v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// formList reads a multi-valued field. It accepts repeated fields, a comma
// separated value or a JSON array. Nil means the field was absent.
func formList(c *gin.Context, field string) []string {
	values, ok := c.GetPostFormArray(field)
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				out = append(out, arr...)
				continue
			}
		}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
