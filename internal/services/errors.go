package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMimeMismatch        = errors.New("mime type mismatch")
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	ErrRemoteLookup        = errors.New("remote lookup failure")
	ErrTransform           = errors.New("transform failure")
	ErrUpload              = errors.New("upload failure")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrConfiguration       = errors.New("configuration error")
)

// ErrorKind is the stable, serializable name of an error marker.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindMimeMismatch        ErrorKind = "mime_mismatch"
	KindUnsupportedMimeType ErrorKind = "unsupported_mime_type"
	KindRemoteLookup        ErrorKind = "remote_lookup_failure"
	KindTransform           ErrorKind = "transform_failure"
	KindUpload              ErrorKind = "upload_failure"
	KindAssetNotFound       ErrorKind = "asset_not_found"
	KindConfiguration       ErrorKind = "configuration_error"
	KindUnknown             ErrorKind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransform
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the ErrorKind of the first marker it carries.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUpload):
		return KindUpload
	case errors.Is(err, ErrMimeMismatch):
		return KindMimeMismatch
	case errors.Is(err, ErrUnsupportedMimeType):
		return KindUnsupportedMimeType
	case errors.Is(err, ErrRemoteLookup):
		return KindRemoteLookup
	case errors.Is(err, ErrTransform):
		return KindTransform
	case errors.Is(err, ErrAssetNotFound):
		return KindAssetNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "publish failure"
	}
	return strings.Join(parts, ": ")
}
