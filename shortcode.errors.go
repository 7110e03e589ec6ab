package shortcode

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Registry errors
	ErrMsgHandlerExists = "handler already registered"
	ErrMsgNilHandler    = "handler cannot be nil"
	ErrMsgEmptyName     = "handler name cannot be empty"

	// Validation errors
	ErrMsgMissingAttribute = "required attribute missing"
	ErrMsgInvalidAttribute = "invalid attribute value"
	ErrMsgNoTargetItem     = "no target item: post_id missing and no ambient item"

	// Source errors
	ErrMsgContentNotFound    = "content not found"
	ErrMsgSourceRequest      = "content source request failed"
	ErrMsgSourceStatus       = "content source returned a non-success status"
	ErrMsgSourceDecode       = "content source response could not be decoded"
	ErrMsgSourceUnavailable  = "content source unavailable"
	ErrMsgSourceClosed       = "content source is closed"
	ErrMsgNoSource           = "no content source configured"
	ErrMsgRequestTimeout     = "request timed out"
	ErrMsgUnknownDriver      = "unknown content source driver"
	ErrMsgEmptyConnString    = "connection string cannot be empty"
	ErrMsgSQLConnectFailed   = "failed to connect to database"
	ErrMsgSQLMigrateFailed   = "failed to migrate content schema"
	ErrMsgSQLUnknownDialect  = "unknown SQL dialect"
	ErrMsgAuthTokenFailed    = "failed to obtain authorization credential"
	ErrMsgFixtureReadFailed  = "failed to read content fixture"
	ErrMsgFixtureParseFailed = "failed to parse content fixture"

	// Rendering errors
	ErrMsgHandlerPanic    = "handler panicked"
	ErrMsgFormatFailed    = "value formatting failed"
	ErrMsgSessionDisposed = "render session disposed before completion"

	// Config errors
	ErrMsgConfigRead  = "failed to read configuration file"
	ErrMsgConfigParse = "failed to parse configuration file"

	// Cache errors
	ErrMsgInvalidPattern = "invalid invalidation pattern"
)

// Format strings for human-readable messages
const (
	FmtSourceStatusMessage = "content source returned status %d"
	FmtHandlerPanic        = "%s: %v"
	FmtWrapCause           = "%w: %w"
)

// Error code constants for categorization
const (
	ErrCodeRegistry   = "SHORTCODE_REGISTRY"
	ErrCodeValidation = "SHORTCODE_VALIDATION"
	ErrCodeSource     = "SHORTCODE_SOURCE"
	ErrCodeRender     = "SHORTCODE_RENDER"
	ErrCodeFormat     = "SHORTCODE_FORMAT"
	ErrCodeConfig     = "SHORTCODE_CONFIG"
	ErrCodeCache      = "SHORTCODE_CACHE"
)

// Sentinel errors. Constructors wrap these so callers can use errors.Is.
var (
	ErrContentNotFound   = errors.New(ErrMsgContentNotFound)
	ErrSourceStatus      = errors.New(ErrMsgSourceStatus)
	ErrSourceUnavailable = errors.New(ErrMsgSourceUnavailable)
	ErrSourceClosed      = errors.New(ErrMsgSourceClosed)
	ErrRequestTimeout    = errors.New(ErrMsgRequestTimeout)
	ErrNoSource          = errors.New(ErrMsgNoSource)
	ErrSessionDisposed   = errors.New(ErrMsgSessionDisposed)
)

// NewHandlerExistsError creates a registration collision error
func NewHandlerExistsError(name string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgHandlerExists).
		WithMetadata(MetaKeyDirective, name)
}

// NewRegistryError creates a generic registration error
func NewRegistryError(msg string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, msg)
}

// NewMissingAttributeError creates a missing required attribute error
func NewMissingAttributeError(attrName, directive string) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgMissingAttribute).
		WithMetadata(MetaKeyAttribute, attrName).
		WithMetadata(MetaKeyDirective, directive)
}

// NewInvalidAttributeError creates an invalid attribute value error
func NewInvalidAttributeError(attrName, value, reason string) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgInvalidAttribute).
		WithMetadata(MetaKeyAttribute, attrName).
		WithMetadata(MetaKeyValue, value).
		WithMetadata(MetaKeyReason, reason)
}

// NewNoTargetItemError is returned when neither post_id nor an ambient item exists
func NewNoTargetItemError(directive string) error {
	return cuserr.NewValidationError(ErrCodeValidation, ErrMsgNoTargetItem).
		WithMetadata(MetaKeyDirective, directive).
		WithMetadata(MetaKeyReason, ErrMsgNoTargetItem)
}

// NewContentNotFoundError signals absence. Providers map it to StateEmpty.
func NewContentNotFoundError(resource, id string) error {
	return cuserr.WrapStdError(ErrContentNotFound, ErrCodeSource, ErrMsgContentNotFound).
		WithMetadata(MetaKeyResource, resource).
		WithMetadata(MetaKeyID, id)
}

// NewSourceStatusError creates an error for a non-success response
func NewSourceStatusError(status int, url string) error {
	return cuserr.WrapStdError(ErrSourceStatus, ErrCodeSource, ErrMsgSourceStatus).
		WithMetadata(MetaKeyStatus, strconv.Itoa(status)).
		WithMetadata(MetaKeyURL, url)
}

// NewSourceError wraps a transport or driver failure
func NewSourceError(msg string, cause error) error {
	if cause == nil {
		cause = ErrSourceUnavailable
	}
	return cuserr.WrapStdError(cause, ErrCodeSource, msg)
}

// NewSourceClosedError is returned by sources used after Close
func NewSourceClosedError() error {
	return cuserr.WrapStdError(ErrSourceClosed, ErrCodeSource, ErrMsgSourceClosed)
}

// NewTimeoutError wraps a deadline expiry on a source call
func NewTimeoutError(cause error) error {
	if cause == nil {
		cause = context.DeadlineExceeded
	}
	return cuserr.WrapStdError(fmt.Errorf(FmtWrapCause, ErrRequestTimeout, cause), ErrCodeSource, ErrMsgRequestTimeout).
		WithMetadata(MetaKeyReason, ErrRequestTimeout.Error())
}

// NewUnknownDriverError creates an error for an unregistered source driver
func NewUnknownDriverError(driver string) error {
	return cuserr.NewValidationError(ErrCodeSource, ErrMsgUnknownDriver).
		WithMetadata(MetaKeyDriver, driver)
}

// NewHandlerPanicError converts a recovered panic into an error
func NewHandlerPanicError(directive string, recovered any) error {
	return cuserr.WrapStdError(fmt.Errorf(FmtHandlerPanic, ErrMsgHandlerPanic, recovered), ErrCodeRender, ErrMsgHandlerPanic).
		WithMetadata(MetaKeyDirective, directive)
}

// NewFormatError wraps a formatter failure
func NewFormatError(kind string, cause error) error {
	if cause == nil {
		cause = errors.New(ErrMsgFormatFailed)
	}
	return cuserr.WrapStdError(cause, ErrCodeFormat, ErrMsgFormatFailed).
		WithMetadata(MetaKeyKind, kind)
}

// NewConfigError wraps a configuration loading failure
func NewConfigError(msg, path string, cause error) error {
	if cause == nil {
		return cuserr.NewValidationError(ErrCodeConfig, msg).
			WithMetadata(MetaKeyPath, path)
	}
	return cuserr.WrapStdError(cause, ErrCodeConfig, msg).
		WithMetadata(MetaKeyPath, path)
}

// NewInvalidPatternError wraps a regexp compile failure
func NewInvalidPatternError(pattern string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeCache, ErrMsgInvalidPattern).
		WithMetadata(MetaKeyValue, pattern)
}

// IsNotFound reports whether err signals absent content.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound)
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRequestTimeout)
}

// describeError returns a short human-readable message for a provider failure.
// It never includes driver or transport internals.
func describeError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return ErrMsgRequestTimeout
	case errors.Is(err, ErrSourceStatus):
		var ce *cuserr.CustomError
		if errors.As(err, &ce) {
			if status, ok := ce.GetMetadata(MetaKeyStatus); ok {
				if code, convErr := strconv.Atoi(status); convErr == nil {
					return fmt.Sprintf(FmtSourceStatusMessage, code)
				}
			}
		}
		return ErrMsgSourceStatus
	case errors.Is(err, ErrSourceClosed):
		return ErrMsgSourceClosed
	case errors.Is(err, ErrNoSource):
		return ErrMsgNoSource
	case errors.Is(err, context.Canceled):
		return ErrMsgSourceUnavailable
	default:
		var ce *cuserr.CustomError
		if errors.As(err, &ce) {
			if reason, ok := ce.GetMetadata(MetaKeyReason); ok {
				return reason
			}
		}
		return ErrMsgSourceRequest
	}
}
