// SPDX-License-Identifier: MIT

package episode

import (
	"context"
	"errors"
	"strings"

	"github.com/elroyic/Podcast-Generator-sub001/internal/model"
)

const maxDetailLen = 200

type reasonError struct {
	reason model.ReasonCode
	detail string
	err    error
}

func (e *reasonError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return string(e.reason)
}

func (e *reasonError) Unwrap() error { return e.err }

// NewReasonError attaches a typed failure reason and an operator-facing
// detail string to err.
func NewReasonError(reason model.ReasonCode, detail string, err error) error {
	return &reasonError{reason: reason, detail: detail, err: err}
}

// ReasonFromError extracts a previously attached reason.
func ReasonFromError(err error) (model.ReasonCode, string, bool) {
	var rerr *reasonError
	if errors.As(err, &rerr) {
		detail := rerr.detail
		if detail == "" && rerr.err != nil {
			detail = sanitizeDetail(rerr.err.Error())
		}
		return rerr.reason, detail, true
	}
	return model.RUnknown, "", false
}

// ClassifyReason maps any error to a stable reason code plus sanitized
// detail. Attached reasons win; context errors get their own codes.
func ClassifyReason(err error) (model.ReasonCode, string) {
	if err == nil {
		return model.RNone, ""
	}
	if reason, detail, ok := ReasonFromError(err); ok {
		return reason, sanitizeDetail(detail)
	}
	if errors.Is(err, context.Canceled) {
		return model.RCancelled, ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.RTimeout, ""
	}
	return model.RUnknown, sanitizeDetail(err.Error())
}

// sanitizeDetail bounds the detail length and strips newlines so it stays
// a single log/DB field.
func sanitizeDetail(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) > maxDetailLen {
		s = s[:maxDetailLen]
	}
	return s
}
