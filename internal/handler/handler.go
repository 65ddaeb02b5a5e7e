package handler

import (
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/deaglo/apigateway/internal/middleware"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MsgInvalidPage         = "Invalid page."
	MsgPatchNotImplemented = "Partial update (PATCH) not implemented."
)

var registerOnce sync.Once

// RegisterValidation makes validator errors report json field names, so
// detail keys match what the client sent.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// bindJSON binds the body and records a 400 on failure. Callers return when
// it reports false.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.Error(apperrors.FromBindError(err))
		return false
	}
	return true
}

// pathID parses a uuid path parameter. A malformed id cannot match a row, so
// it is a 404 like any other miss.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.Error(apperrors.NewNotFound(""))
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) *model.User {
	return middleware.CurrentUser(c)
}

func patchNotImplemented(c *gin.Context) {
	c.Error(apperrors.NewNotImplemented(MsgPatchNotImplemented))
}

func success(c *gin.Context, status int) {
	c.JSON(status, gin.H{"status": "success"})
}

// Paginated is the list envelope: next and previous are absolute URLs or null.
type Paginated struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// pageFromQuery reads ?page=. Anything but a positive integer is a 404.
func pageFromQuery(c *gin.Context, size int) (repository.Page, bool) {
	page := repository.Page{Number: 1, Size: size}
	raw := c.Query("page")
	if raw == "" || raw == "last" {
		return page, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.Error(apperrors.NewNotFound(MsgInvalidPage))
		return page, false
	}
	page.Number = n
	return page, true
}

// paginate builds the envelope, or records a 404 when the page is past the
// end. The first page of an empty list is valid.
func paginate(c *gin.Context, page repository.Page, count int64, results any) (Paginated, bool) {
	if page.Number > 1 && int64(page.Offset()) >= count {
		c.Error(apperrors.NewNotFound(MsgInvalidPage))
		return Paginated{}, false
	}
	out := Paginated{Count: count, Results: results}
	if page.Size > 0 && int64(page.Offset()+page.Size) < count {
		out.Next = pageURL(c, page.Number+1)
	}
	if page.Number > 1 {
		out.Previous = pageURL(c, page.Number-1)
	}
	return out, true
}

func pageURL(c *gin.Context, number int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	q := c.Request.URL.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

func respondPage(c *gin.Context, page repository.Page, count int64, results any) {
	body, ok := paginate(c, page, count, results)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, body)
}
