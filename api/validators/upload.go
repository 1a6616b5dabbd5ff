package validators

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/streamhive/upload-service/pkg/enums"
	pkgerrors "github.com/streamhive/upload-service/pkg/errors"
)

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9,\s\-_]+$`)

func init() {
	_ = validate.RegisterValidation("tagchars", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return tagPattern.MatchString(value)
	})
}

// UploadForm holds the declared metadata fields of a multipart upload.
type UploadForm struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Tags        string `json:"tags" validate:"max=500,tagchars"`
	IsPrivate   bool   `json:"is_private"`
	Category    enums.VideoCategory
}

// ParseUploadForm reads the declared metadata from an already-parsed
// multipart form and validates it. The category defaults to "other" when
// absent, unknown values are rejected.
func ParseUploadForm(r *http.Request) (*UploadForm, error) {
	form := &UploadForm{
		Title:       SanitizeString(r.FormValue("title"), 0),
		Description: SanitizeString(r.FormValue("description"), 0),
		Tags:        SanitizeString(r.FormValue("tags"), 0),
	}

	if raw := strings.TrimSpace(r.FormValue("is_private")); raw != "" {
		isPrivate, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"is_private": "must be a boolean"})
		}
		form.IsPrivate = isPrivate
	}

	category, err := enums.ParseVideoCategory(r.FormValue("category"))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"category": "is invalid"})
	}
	form.Category = category

	if err := ValidateStruct(form); err != nil {
		return nil, err
	}
	return form, nil
}
