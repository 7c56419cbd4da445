/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package errors implements the three-kind error taxonomy (NotFound,
// WouldBlock, Other) surfaced to users of chithi, grouped into domains for
// diagnostics.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the taxonomy surfaced to the user. There are exactly three.
type Kind int

const (
	Other Kind = iota
	NotFound
	WouldBlock
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case WouldBlock:
		return "WouldBlock"
	default:
		return "Other"
	}
}

// Domain is the subsystem where the error originated.
type Domain string

const (
	DomainCmd      Domain = "CMD"
	DomainTarget   Domain = "TARGET"
	DomainDataset  Domain = "DATASET"
	DomainProject  Domain = "PROJECT"
	DomainRunner   Domain = "RUNNER"
	DomainPidLock  Domain = "PIDLOCK"
	DomainSendRecv Domain = "SENDRECV"
	DomainTagFilter Domain = "TAGFILTER"
)

// ErrorCode is a unique, stable identifier for a specific error condition.
type ErrorCode int

const (
	_ ErrorCode = iota

	// Command execution (CMD domain)
	CommandNotFound
	CommandInvalidInput
	CommandExecution
	CommandTimeout
	CommandPipe
	CommandOutputParse

	// Target / SSH (TARGET domain)
	TargetControlSetupFailed
	TargetControlTeardownFailed

	// Dataset (DATASET domain)
	DatasetParseFailed
	DatasetInvalidName
	DatasetNotFound

	// Project (PROJECT domain)
	ProjectFileNotFound
	ProjectDecodeFailed
	ProjectValidationFailed

	// Runner (RUNNER domain)
	RunnerRestartsExhausted
	RunnerUnknownChild
	RunnerTaskFailed

	// Pid lock (PIDLOCK domain)
	PidLockContended
	PidLockIOFailed

	// Send/recv option grammar (SENDRECV domain)
	SendRecvParseFailed

	// Tag filter grammar (TAGFILTER domain)
	TagFilterInvalidTag
)

var codeKind = map[ErrorCode]Kind{
	CommandNotFound:             NotFound,
	CommandInvalidInput:         Other,
	CommandExecution:            Other,
	CommandTimeout:              Other,
	CommandPipe:                 Other,
	CommandOutputParse:          Other,
	TargetControlSetupFailed:    Other,
	TargetControlTeardownFailed: Other,
	DatasetParseFailed:          Other,
	DatasetInvalidName:          Other,
	DatasetNotFound:             NotFound,
	ProjectFileNotFound:         NotFound,
	ProjectDecodeFailed:         Other,
	ProjectValidationFailed:     Other,
	RunnerRestartsExhausted:     Other,
	RunnerUnknownChild:          Other,
	RunnerTaskFailed:            Other,
	PidLockContended:            WouldBlock,
	PidLockIOFailed:             Other,
	SendRecvParseFailed:         Other,
	TagFilterInvalidTag:         Other,
}

var codeDomain = map[ErrorCode]Domain{
	CommandNotFound:             DomainCmd,
	CommandInvalidInput:         DomainCmd,
	CommandExecution:            DomainCmd,
	CommandTimeout:              DomainCmd,
	CommandPipe:                 DomainCmd,
	CommandOutputParse:          DomainCmd,
	TargetControlSetupFailed:    DomainTarget,
	TargetControlTeardownFailed: DomainTarget,
	DatasetParseFailed:          DomainDataset,
	DatasetInvalidName:          DomainDataset,
	DatasetNotFound:             DomainDataset,
	ProjectFileNotFound:         DomainProject,
	ProjectDecodeFailed:         DomainProject,
	ProjectValidationFailed:     DomainProject,
	RunnerRestartsExhausted:     DomainRunner,
	RunnerUnknownChild:          DomainRunner,
	RunnerTaskFailed:            DomainRunner,
	PidLockContended:            DomainPidLock,
	PidLockIOFailed:             DomainPidLock,
	SendRecvParseFailed:         DomainSendRecv,
	TagFilterInvalidTag:         DomainTagFilter,
}

// ChithiError is the error type produced throughout the codebase.
type ChithiError struct {
	Code     ErrorCode
	Domain   Domain
	Kind     Kind
	Message  string
	Details  string
	Metadata map[string]string
}

func (e *ChithiError) Error() string {
	msg := fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
	if e.Details != "" {
		msg += " - " + e.Details
	}
	if stderr, ok := e.Metadata["stderr"]; ok && stderr != "" {
		msg += "\ncommand output: " + stderr
	}
	return msg
}

func (e *ChithiError) WithMetadata(key, value string) *ChithiError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// New builds a ChithiError for a known code. Message is derived from the
// code; details carries the specific diagnostic text for this occurrence.
func New(code ErrorCode, details string) *ChithiError {
	return &ChithiError{
		Code:    code,
		Domain:  codeDomain[code],
		Kind:    codeKind[code],
		Message: messageFor(code),
		Details: details,
	}
}

// Wrap re-codes an existing error under a new code, preserving metadata.
func Wrap(err error, code ErrorCode) *ChithiError {
	if ce, ok := err.(*ChithiError); ok {
		wrapped := New(code, ce.Details)
		for k, v := range ce.Metadata {
			wrapped.WithMetadata(k, v)
		}
		wrapped.WithMetadata("wrapped_code", fmt.Sprintf("%d", ce.Code))
		wrapped.WithMetadata("wrapped_domain", string(ce.Domain))
		return wrapped
	}
	return New(code, err.Error())
}

// Is reports whether err carries the given Kind, per the three-kind
// taxonomy surfaced to the user (spec §7).
func Is(err error, kind Kind) bool {
	var ce *ChithiError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

func messageFor(code ErrorCode) string {
	switch code {
	case CommandNotFound:
		return "command not found"
	case CommandInvalidInput:
		return "invalid command input"
	case CommandExecution:
		return "command execution failed"
	case CommandTimeout:
		return "command execution timed out"
	case CommandPipe:
		return "failed to create command pipe"
	case CommandOutputParse:
		return "failed to parse command output"
	case TargetControlSetupFailed:
		return "creating master control failed"
	case TargetControlTeardownFailed:
		return "destroying ssh control failed"
	case DatasetParseFailed:
		return "failed to parse dataset specifier"
	case DatasetInvalidName:
		return "invalid dataset or snapshot name"
	case DatasetNotFound:
		return "dataset not found"
	case ProjectFileNotFound:
		return "project file not found"
	case ProjectDecodeFailed:
		return "failed to decode project file"
	case ProjectValidationFailed:
		return "project validation failed"
	case RunnerRestartsExhausted:
		return "restart count exhausted"
	case RunnerUnknownChild:
		return "reaped unknown child process"
	case RunnerTaskFailed:
		return "one or more parallel jobs failed"
	case PidLockContended:
		return "another instance seems to be running"
	case PidLockIOFailed:
		return "pid file i/o failed"
	case SendRecvParseFailed:
		return "failed to parse send/recv option string"
	case TagFilterInvalidTag:
		return "invalid tag"
	default:
		return "unknown error"
	}
}
