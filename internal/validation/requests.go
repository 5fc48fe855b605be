// Package validation checks requests locally before they reach the portal.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/taxdesk/portal-client/internal/models"
)

// MaxFolderTitleLength bounds folder titles.
const MaxFolderTitleLength = 255

// ErrValidation is the sentinel every *Error wraps.
var ErrValidation = errors.New("validation failed")

// Error reports which fields failed and why.
type Error struct {
	Op     string
	Fields map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrValidation.Error(), e.summary())
}

func (e *Error) Unwrap() error { return ErrValidation }

// UserMessage renders the field problems as one sentence.
func (e *Error) UserMessage() string {
	return "Please fix: " + e.summary() + "."
}

func (e *Error) summary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// wrap converts ozzo errors into *Error. Internal rule errors pass through.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var errs ozzo.Errors
	if errors.As(err, &errs) {
		fields := make(map[string]string, len(errs))
		for k, v := range errs {
			fields[k] = v.Error()
		}
		return &Error{Op: op, Fields: fields}
	}
	var ie ozzo.InternalError
	if errors.As(err, &ie) {
		return err
	}
	return &Error{Op: op, Fields: map[string]string{"request": err.Error()}}
}

var noSlash = ozzo.Match(regexp.MustCompile(`^[^/\\]+$`)).Error("cannot contain slashes")

var dateSet = ozzo.By(func(value interface{}) error {
	d, _ := value.(*models.Date)
	if d == nil || d.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
})

// ValidateAssignment checks an e-sign assignment before submission.
// Signer and deadline are required; the document id must be positive.
func ValidateAssignment(req *models.AssignmentRequest) error {
	return wrap("assign document", ozzo.ValidateStruct(req,
		ozzo.Field(&req.DocumentID, ozzo.Required, ozzo.Min(int64(1))),
		ozzo.Field(&req.SignerID, ozzo.Required.Error("is required"), ozzo.By(notBlank)),
		ozzo.Field(&req.Deadline, dateSet),
	))
}

// ValidateFolderTitle checks a title for create and rename.
func ValidateFolderTitle(title string) error {
	return wrap("folder title", ozzo.Validate(strings.TrimSpace(title),
		ozzo.Required.Error("is required"),
		ozzo.RuneLength(1, MaxFolderTitleLength),
		noSlash,
	))
}

// ValidateCreateFolder checks a folder creation request.
func ValidateCreateFolder(req *models.FolderRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	return wrap("create folder", ozzo.ValidateStruct(req,
		ozzo.Field(&req.Title, ozzo.Required.Error("is required"), ozzo.RuneLength(1, MaxFolderTitleLength), noSlash),
	))
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("is required")
	}
	return nil
}
