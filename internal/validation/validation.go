/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package validation checks the name fields of the login form.
package validation

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Field selects which rules apply to a value.
type Field int

const (
	FirstName Field = iota
	LastName
)

const (
	MinLengthFirstName = 3
	MinLengthLastName  = 4
)

type rule struct {
	label     string
	minLength int
}

var rules = map[Field]rule{
	FirstName: {label: "First name", minLength: MinLengthFirstName},
	LastName:  {label: "Last name", minLength: MinLengthLastName},
}

var allowed = regexp.MustCompile(`^[A-Za-z-]+$`)

// Result reports whether a value passed and, if not, why.
type Result struct {
	Valid bool   `json:"isValid"`
	Error string `json:"error"`
}

func (f Field) String() string {
	switch f {
	case FirstName:
		return "firstName"
	case LastName:
		return "lastName"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField maps the form field name to a Field.
func ParseField(name string) (Field, bool) {
	switch name {
	case "firstName":
		return FirstName, true
	case "lastName":
		return LastName, true
	}
	return 0, false
}

// Validate applies the length, character and capitalization rules in that
// order. The first failing rule decides the error.
func Validate(value string, field Field) Result {
	r, ok := rules[field]
	if !ok {
		return Result{Error: fmt.Sprintf("unsupported field %s", field)}
	}

	if utf8.RuneCountInString(value) < r.minLength {
		return Result{Error: fmt.Sprintf("%s must be at least %d characters long", r.label, r.minLength)}
	}

	if !allowed.MatchString(value) {
		return Result{Error: r.label + " must contain only letters and hyphens"}
	}

	first, _ := utf8.DecodeRuneInString(value)
	if first != unicode.ToUpper(first) {
		return Result{Error: r.label + " must start with a capital letter"}
	}

	return Result{Valid: true}
}
