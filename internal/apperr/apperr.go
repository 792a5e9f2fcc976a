// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apperr defines the caller-facing error taxonomy. LLM failures are
// deliberately absent: the suggestion engine recovers them locally and they
// never surface as errors of a batch operation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a caller-facing failure.
type Kind int

const (
	KindValidation Kind = iota // bad input shape or range
	KindNotFound               // referenced record missing
	KindAccessDenied           // ownership mismatch
	KindPersistence            // datastore write failure
)

// Error is a classified, caller-facing error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports a bad input shape or out-of-range value.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing record.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// AccessDenied reports an ownership mismatch.
func AccessDenied(format string, args ...any) error {
	return &Error{Kind: KindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a datastore failure.
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// HTTPStatus maps an error to the status code the API should return.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
