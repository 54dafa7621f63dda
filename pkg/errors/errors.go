// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kairn Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. The last dotted
// segment is the reason used by the Is* classifiers.
type Code string

const (
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreConflict           Code = "store.conflict"
	CodeStoreInvalidInput       Code = "store.invalid_input"
	CodeStoreEntityNotFound     Code = "store.entity.not_found"
	CodeStoreMigrateFailure     Code = "store.migrate.failure"

	CodeGraphNodeInvalid          Code = "graph.node.invalid"
	CodeGraphEdgeInvalid          Code = "graph.edge.invalid"
	CodeGraphEdgeEndpointNotFound Code = "graph.edge.endpoint.not_found"

	CodeExperienceSaveInvalid    Code = "experience.save.invalid"
	CodeExperiencePromoteFailure Code = "experience.promote.failure"

	CodeIdeaCreateInvalid         Code = "idea.create.invalid"
	CodeIdeaTransitionInvalid     Code = "idea.lifecycle.transition.invalid"
	CodeProjectCreateInvalid      Code = "project.create.invalid"
	CodeProjectTransitionInvalid  Code = "project.lifecycle.transition.invalid"
	CodeProjectProgressNotFound   Code = "project.progress.not_found"
	CodeProjectProgressInvalid    Code = "project.progress.invalid"
	CodeIntelligenceInputInvalid  Code = "intelligence.input.invalid"
	CodeIntelligenceSearchFailure Code = "intelligence.search.failure"

	CodeEventsListenerFailure Code = "events.listener.failure"
	CodeEventsListenerTimeout Code = "events.listener.timeout"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"

	CodeInternalFailure Code = "kairn.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field creates a structured error field. It is shorthand for FieldValue.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldNodeID(value string) Attr {
	return Field("node_id", value)
}

func FieldExperienceID(value string) Attr {
	return Field("experience_id", value)
}

func FieldIdeaID(value string) Attr {
	return Field("idea_id", value)
}

func FieldProjectID(value string) Attr {
	return Field("project_id", value)
}

func FieldEvent(value string) Attr {
	return Field("event", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code in the chain, or "" for plain errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

// Exit codes returned by the kairn binary.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitNotFound     = 3
	ExitConflict     = 4
)

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsInvalidInput(err):
		return ExitInvalidInput
	case IsNotFound(err):
		return ExitNotFound
	case IsConflict(err):
		return ExitConflict
	default:
		return ExitFailure
	}
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
