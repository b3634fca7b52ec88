package goSession

import (
	"context"
	"errors"
	"time"
)

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrRejected           AuditErrorCode = "rejected"
	auditErrServer             AuditErrorCode = "server_error"
	auditErrTransport          AuditErrorCode = "transport_error"
	auditErrLoggedOut          AuditErrorCode = "logged_out"
	auditErrSuperseded         AuditErrorCode = "superseded"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrStorage            AuditErrorCode = "storage_unavailable"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(ctx context.Context, eventType string, username string, err error, metadataBuilder func() map[string]string) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Username:  username,
		Success:   err == nil,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmptyToken):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAuth):
		return auditErrUnauthorized
	case errors.Is(err, ErrBusiness):
		return auditErrRejected
	case errors.Is(err, ErrServer):
		return auditErrServer
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	case errors.Is(err, ErrLoggedOut):
		return auditErrLoggedOut
	case errors.Is(err, ErrMenuSuperseded):
		return auditErrSuperseded
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordRequired):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStorage
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
