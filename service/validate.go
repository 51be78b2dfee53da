package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	isbnReplacer = strings.NewReplacer("-", "", " ", "")
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(time.Now().Year())
	})
}

// BookInput is the writable shape of a book. Optional fields are pointers so an update can
// tell "absent" from "empty".
type BookInput struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author" validate:"required"`
	Genre         *string `json:"genre,omitempty"`
	PublishedYear *int    `json:"publishedYear,omitempty" validate:"omitempty,min=1000,notfuture"`
	ISBN          *string `json:"isbn,omitempty" validate:"omitempty,isbn"`
	Summary       *string `json:"summary,omitempty"`
}

// normalize trims every string and strips hyphens and spaces from the ISBN so that differently
// formatted copies of one ISBN collide on the unique index. An ISBN that ends up empty is
// dropped from the input; the return value reports whether that happened.
func (in *BookInput) normalize() (clearedISBN bool) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	for _, p := range []*string{in.Genre, in.ISBN, in.Summary} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.ISBN != nil {
		*in.ISBN = isbnReplacer.Replace(*in.ISBN)
	}
	if in.ISBN != nil && *in.ISBN == "" {
		in.ISBN = nil
		return true
	}
	return false
}

// ReviewInput is the body of a new review.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// ReviewPatch is a partial review update. Zero values mean "no change".
type ReviewPatch struct {
	Rating  int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "isbn":
		return "invalid ISBN format"
	case "notfuture":
		return fmt.Sprintf("%s cannot be in the future", field)
	case "min", "max":
		if field == "rating" {
			return "rating must be between 1 and 5"
		}
		if field == "publishedYear" {
			return fmt.Sprintf("publishedYear must be between 1000 and %d", time.Now().Year())
		}
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
