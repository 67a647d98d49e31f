// Package serializer maps posts between storage and the public wire format.
//
// Only title, content and date_posted cross the wire. The author and
// the primary key stay server side.
package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stemweb/internal/models"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgTooLong  = "Ensure this field has no more than 256 characters."
	msgNotText  = "Not a valid string."
	msgNull     = "This field may not be null."
)

// writableFields are the keys a client may send.
var writableFields = []string{"title", "content"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// PostResponse is the public representation of a post.
type PostResponse struct {
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	DatePosted time.Time `json:"date_posted"`
}

// FromPost serializes a single post.
func FromPost(p *models.Post) PostResponse {
	return PostResponse{
		Title:      p.Title,
		Content:    p.Content,
		DatePosted: p.DatePosted,
	}
}

// FromPosts serializes posts in order. The result is never nil.
func FromPosts(posts []*models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, FromPost(p))
	}
	return out
}

// PostInput is a decoded write payload. Nil fields were absent or null;
// DecodePost records which ones were an explicit null. DatePosted is
// read-only and never applied.
type PostInput struct {
	Title      *string    `json:"title"`
	Content    *string    `json:"content"`
	DatePosted *time.Time `json:"date_posted"`

	nulls map[string]bool
}

// DecodePost parses a JSON object body. Unknown keys are ignored.
func DecodePost(body []byte) (PostInput, error) {
	var in PostInput
	if err := json.Unmarshal(body, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return in, models.NewFieldValidationError(map[string][]string{
				typeErr.Field: {msgNotText},
			})
		}
		return in, models.NewValidationError("Malformed JSON request body")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return in, models.NewValidationError("Malformed JSON request body")
	}
	for _, name := range writableFields {
		if v, ok := raw[name]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			if in.nulls == nil {
				in.nulls = make(map[string]bool)
			}
			in.nulls[name] = true
		}
	}
	return in, nil
}

// ValidatePost checks in for a full (create, PUT) or partial (PATCH) write.
func ValidatePost(in PostInput, partial bool) error {
	fields := map[string][]string{}

	check := func(name string, value *string, rules string) {
		if in.nulls[name] {
			fields[name] = append(fields[name], msgNull)
			return
		}
		if value == nil {
			if !partial {
				fields[name] = append(fields[name], msgRequired)
			}
			return
		}
		trimmed := strings.TrimSpace(*value)
		if err := validate.Var(trimmed, rules); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields[name] = append(fields[name], messageFor(fe))
				}
			}
		}
	}

	check("title", in.Title, "required,max=256")
	check("content", in.Content, "required")

	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgBlank
	case "max":
		return msgTooLong
	default:
		return "Invalid value."
	}
}

// ApplyTo copies the provided fields onto p, trimmed. DatePosted is ignored.
func (in PostInput) ApplyTo(p *models.Post) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		p.Content = strings.TrimSpace(*in.Content)
	}
}
