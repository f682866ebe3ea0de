package errors

import (
	"fmt"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapSpecError wraps protocol or command document errors with user-friendly context
func WrapSpecError(err error, specPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Specification error in %s", specPath),
		Reason:  extractSpecReason(err),
		Hint:    "Byte tokens and CRC parameters accept integers or \"0x..\" strings",
		Try:     "Check header, length, fields and checksum blocks of the frame definition",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Engine config files may be YAML (.yaml, .yml) or TOML (.toml)",
		Try:     "Start from the defaults: max_frame_len 4096, resync_policy one_byte",
		Err:     err,
	}
}

// WrapEncodeError wraps a rejected encode request with user-friendly context
func WrapEncodeError(err error, command string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Cannot encode command %s", command),
		Reason:  extractEncodeReason(err),
		Hint:    "Parameters are checked against the command's declared types and ranges",
		Err:     err,
	}
}

func extractSpecReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "no such file") {
		return "File not found"
	}
	if strings.Contains(errStr, "yaml:") || strings.Contains(errStr, "parse ") {
		return "Document could not be parsed"
	}
	if strings.Contains(errStr, "unsupported checksum") {
		return "Checksum type is not one of sum8, cs15, xor16_slices, crc16, crc32"
	}

	return "Specification is malformed"
}

func extractEncodeReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "unknown parameter") {
		return "A parameter was supplied that the command does not declare"
	}
	if strings.Contains(errStr, "missing required parameter") {
		return "A parameter without a default was not supplied"
	}
	if strings.Contains(errStr, "out of range") {
		return "A parameter value is outside its declared range or type"
	}

	return "Encode request rejected"
}
