package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Afrawles/standup/internal/activity"
	"github.com/Afrawles/standup/internal/config"
	perr "github.com/Afrawles/standup/internal/errors"
	"github.com/Afrawles/standup/internal/standup"
)

const maxBodyBytes = 4 << 20

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// activityQuery is the query string of /v1/activity
type activityQuery struct {
	Date     string   `json:"date" validate:"max=64"`
	Username string   `json:"username" validate:"omitempty,max=39"`
	Repos    []string `json:"repos" validate:"max=100,dive,repo"`
}

func (q activityQuery) request() standup.Request {
	return standup.Request{Date: q.Date, Username: q.Username, Repos: q.Repos}
}

// summaryQuery is the query string of /v1/summary. Format is checked by the
// renderer so unknown values surface as unsupported_format.
type summaryQuery struct {
	activityQuery
	Format string `json:"format" validate:"max=16"`
}

type dateQuery struct {
	Expr string `json:"expr" validate:"max=64"`
}

type renderBody struct {
	Format   string             `json:"format" validate:"max=16"`
	Activity *activity.Activity `json:"activity" validate:"required"`
}

var (
	vOnce    sync.Once
	validate *validator.Validate
	trans    ut.Translator
)

// validatorSvc builds the validator once, with english messages keyed by json names
func validatorSvc() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ = uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			name, _, _ := strings.Cut(tag, ",")
			return name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("repo", func(fl validator.FieldLevel) bool {
			return repoPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterTranslation("repo", trans,
			func(t ut.Translator) error {
				return t.Add("repo", "{0} must look like owner/name", true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T("repo", fe.Field())
				return msg
			},
		)
		validate = v
	})
	return validate, trans
}

// check validates v and turns the first failure into an invalid_argument error
func check(v any) error {
	val, tr := validatorSvc()
	err := val.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return perr.New(perr.ErrorCodeInvalidArgument, verrs[0].Translate(tr))
	}
	return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "validation error")
}

// repos accepts both repeated and comma separated repos parameters
func repos(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["repos"] {
		out = append(out, config.SplitList(v)...)
	}
	return out
}

func bindActivityQuery(r *http.Request) (activityQuery, error) {
	q := r.URL.Query()
	aq := activityQuery{
		Date:     q.Get("date"),
		Username: strings.TrimSpace(q.Get("username")),
		Repos:    repos(r),
	}
	return aq, check(aq)
}

func bindSummaryQuery(r *http.Request) (summaryQuery, error) {
	aq, err := bindActivityQuery(r)
	if err != nil {
		return summaryQuery{}, err
	}
	sq := summaryQuery{activityQuery: aq, Format: r.URL.Query().Get("format")}
	return sq, check(sq)
}

func bindDateQuery(r *http.Request) (dateQuery, error) {
	dq := dateQuery{Expr: r.URL.Query().Get("expr")}
	return dq, check(dq)
}

func bindRenderBody(r *http.Request) (renderBody, error) {
	var body renderBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return body, perr.New(perr.ErrorCodeInvalidArgument, "empty body")
		}
		return body, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "invalid JSON")
	}
	if dec.More() {
		return body, perr.New(perr.ErrorCodeInvalidArgument, "unexpected trailing data")
	}
	return body, check(body)
}
