package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-hris-auth/tenants"
)

const (
	maxBodyBytes    = 1 << 16
	defaultPageSize = 50
)

var companyCodePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

type loginRequest struct {
	CompanyCode string `json:"companyCode" validate:"required,min=2,max=20,companycode"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,min=20"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,min=20"`
}

type lockStatusQuery struct {
	CompanyCode string `json:"companyCode" validate:"required,min=2,max=20,companycode"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
}

type unlockRequest struct {
	CompanyCode string `json:"companyCode" validate:"required,min=2,max=20,companycode"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
}

type createUserRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=64"`
	Password  string   `json:"password" validate:"required,min=6,max=72"`
	Email     string   `json:"email" validate:"omitempty,email,max=256"`
	FirstName string   `json:"firstName" validate:"required,max=100"`
	LastName  string   `json:"lastName" validate:"required,max=100"`
	Roles     []string `json:"roles" validate:"required,min=1,dive,required,max=64"`
}

type listUsersQuery struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=1,max=100"`
}

type updateProfileRequest struct {
	FirstName  string `json:"firstName" validate:"max=100"`
	LastName   string `json:"lastName" validate:"max=100"`
	Phone      string `json:"phone" validate:"max=50"`
	Department string `json:"department" validate:"max=100"`
	JobTitle   string `json:"jobTitle" validate:"max=100"`
}

type updatePreferencesRequest struct {
	PrefsJSON *string `json:"prefsJson" validate:"required,max=10000"`
}

type updatePhotoRequest struct {
	PhotoURL string `json:"photoUrl" validate:"required,max=2000"`
}

// validationError lists the failing fields of a request by their json name.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%d invalid fields", len(e.fields))
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := validate.RegisterValidation("companycode", func(fl validator.FieldLevel) bool {
		return companyCodePattern.MatchString(fl.Field().String())
	})
	return validate, err
}

// normalizer is implemented by requests that canonicalise input before
// validation.
type normalizer interface {
	normalize()
}

func (req *loginRequest) normalize() {
	req.CompanyCode = tenants.NormalizeCode(req.CompanyCode)
	req.Username = strings.TrimSpace(req.Username)
}

func (req *lockStatusQuery) normalize() {
	req.CompanyCode = tenants.NormalizeCode(req.CompanyCode)
	req.Username = strings.TrimSpace(req.Username)
}

func (req *unlockRequest) normalize() {
	req.CompanyCode = tenants.NormalizeCode(req.CompanyCode)
	req.Username = strings.TrimSpace(req.Username)
}

func (req *createUserRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
}

func (req *updatePhotoRequest) normalize() {
	req.PhotoURL = strings.TrimSpace(req.PhotoURL)
}

// parseListUsersQuery reads offset and limit, defaulting to the first page of
// defaultPageSize users.
func parseListUsersQuery(r *http.Request) (listUsersQuery, error) {
	q := listUsersQuery{Limit: defaultPageSize}
	fields := make(map[string]string)
	for name, dst := range map[string]*int{"offset": &q.Offset, "limit": &q.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = "must be a whole number"
			continue
		}
		*dst = n
	}
	if len(fields) > 0 {
		return q, &validationError{fields: fields}
	}
	return q, nil
}

// decodeJSON reads a JSON body into dst, normalises it and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &validationError{fields: map[string]string{"body": "malformed JSON"}}
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v any) error {
	if n, ok := v.(normalizer); ok {
		n.normalize()
	}
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &validationError{fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("must be at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Int {
			return fmt.Sprintf("must be at most %s", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "companycode":
		return "must contain only upper case letters, digits and underscores"
	}
	return "is invalid"
}

func writeValidation(w http.ResponseWriter, err *validationError) {
	writeProblemBody(w, http.StatusBadRequest, Problem{
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: "One or more validation errors occurred.",
		Errors: err.fields,
	})
}
