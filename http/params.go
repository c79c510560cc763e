package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"poetryHub/domain"
	"poetryHub/errs"
)

var validate = validator.New()

// pageParams are the paging query parameters shared by all listings.
type pageParams struct {
	Page     int `validate:"min=1"`
	PageSize int `validate:"min=1,max=100"`
}

type hotParams struct {
	Limit int `validate:"min=1,max=50"`
	Days  int `validate:"min=0,max=365"`
}

type dailyParams struct {
	Limit int `validate:"min=1,max=20"`
}

type randomParams struct {
	Limit      int     `validate:"min=1,max=50"`
	ExcludeIDs []int64 `validate:"max=100,dive,min=1"`
}

type hotAuthorsParams struct {
	Limit int `validate:"min=1,max=50"`
}

type similarParams struct {
	Strategy string `validate:"oneof=dynasty author type"`
	Limit    int    `validate:"min=1,max=20"`
}

type personalizedParams struct {
	Limit int `validate:"min=1,max=50"`
}

type suggestParams struct {
	Prefix string `validate:"required,max=100"`
	Size   int    `validate:"min=1,max=20"`
}

// validateParams runs the validate tags of v and turns a failure into an EINVALID error.
func validateParams(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "min":
			return errs.Errorf(errs.EINVALID, "The %s must be at least %s.", field, fe.Param())
		case "max":
			return errs.Errorf(errs.EINVALID, "The %s must be at most %s.", field, fe.Param())
		case "oneof":
			return errs.Errorf(errs.EINVALID, "The %s must be one of: %s.", field, fe.Param())
		case "required":
			return errs.Errorf(errs.EINVALID, "The %s is required.", field)
		}
		return errs.Errorf(errs.EINVALID, "The %s is invalid.", field)
	}
	return err
}

// queryInt reads an integer query parameter, falling back to def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Errorf(errs.EINVALID, "The %s must be a number.", name)
	}
	return n, nil
}

// queryID reads an optional positive id query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errs.Errorf(errs.EINVALID, "Invalid %s.", name)
	}
	return &id, nil
}

// queryPage reads and validates the page and page_size parameters.
func queryPage(r *http.Request) (domain.Page, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return domain.Page{}, err
	}
	size, err := queryInt(r, "page_size", domain.DefaultPageSize)
	if err != nil {
		return domain.Page{}, err
	}
	params := pageParams{Page: page, PageSize: size}
	if err := validateParams(params); err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Page: page, PageSize: size}, nil
}

// pathID parses a positive id from the named route variable.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Errorf(errs.EINVALID, "Invalid Id format.")
	}
	return id, nil
}

// decodeBody parses the request's json body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Errorf(errs.EINVALID, "Invalid json body.")
	}
	return nil
}

// csvIDs reads a comma separated list of ids, e.g. "exclude_ids=3,8".
func csvIDs(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, part := range csvParam(r, name) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errs.Errorf(errs.EINVALID, "Invalid %s.", name)
		}
		out = append(out, id)
	}
	return out, nil
}

// csvParam splits a comma separated query parameter, dropping empty entries.
func csvParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
