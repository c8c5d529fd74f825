package server

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// allowedFilters are the ffmpeg video filters clients may append after
// scaling. None of them reads or writes files.
var allowedFilters = map[string]bool{
	"hflip":     true,
	"vflip":     true,
	"transpose": true,
	"crop":      true,
	"eq":        true,
	"hue":       true,
	"boxblur":   true,
	"unsharp":   true,
	"deflicker": true,
	"hqdn3d":    true,
	"fps":       true,
}

// filterSyntax admits a single filter with inline options. Chain and graph
// separators (',', ';', '[', ']') and quoting are rejected.
var filterSyntax = regexp.MustCompile(`^[a-z0-9_]+(=[A-Za-z0-9_.:=+\-*/()]+)?$`)

// validateFilter backs the "vfilter" tag on request filter lists.
func validateFilter(fl validator.FieldLevel) bool {
	return allowedFilter(fl.Field().String())
}

func allowedFilter(f string) bool {
	if !filterSyntax.MatchString(f) {
		return false
	}
	name, _, _ := strings.Cut(f, "=")
	return allowedFilters[name]
}

// newValidator returns a validator with the request-specific tags registered.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("vfilter", validateFilter); err != nil {
		panic(err)
	}
	return v
}
