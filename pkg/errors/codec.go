package errors

// CodecError is a specialized error type for the Huffman codec, the
// columnar-transposition permuter and the protection pipeline that
// composes them. It embeds baseError to inherit the standard chaining
// behavior and adds the stage/offset context needed to tell "which half
// of the pipeline failed" apart from a generic I/O error.
type CodecError struct {
	*baseError

	// stage names the pipeline stage in progress when the error occurred,
	// e.g. "huffman_encode", "transpose_decrypt", "protect", "restore".
	stage string

	// path is the file being read or written when the error occurred, if any.
	path string

	// offset is the first byte position at which two compared payloads
	// diverged. -1 when not applicable or not known.
	offset int64
}

// NewCodecError creates a new codec-specific error with the provided context.
func NewCodecError(err error, code ErrorCode, msg string) *CodecError {
	return &CodecError{baseError: NewBaseError(err, code, msg), offset: -1}
}

// WithMessage updates the error message while maintaining the CodecError type.
func (ce *CodecError) WithMessage(msg string) *CodecError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithCode sets the error code while preserving the CodecError type.
func (ce *CodecError) WithCode(code ErrorCode) *CodecError {
	ce.baseError.WithCode(code)
	return ce
}

// WithDetail adds contextual information while maintaining the CodecError type.
func (ce *CodecError) WithDetail(key string, value any) *CodecError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithStage records which pipeline stage was executing.
func (ce *CodecError) WithStage(stage string) *CodecError {
	ce.stage = stage
	return ce
}

// WithPath records which file path was involved.
func (ce *CodecError) WithPath(path string) *CodecError {
	ce.path = path
	return ce
}

// WithOffset records the first differing byte offset, for integrity failures.
func (ce *CodecError) WithOffset(offset int64) *CodecError {
	ce.offset = offset
	return ce
}

// Stage returns the pipeline stage that was executing.
func (ce *CodecError) Stage() string { return ce.stage }

// Path returns the file path involved in the error, if any.
func (ce *CodecError) Path() string { return ce.path }

// Offset returns the first differing byte offset, or -1 if not applicable.
func (ce *CodecError) Offset() int64 { return ce.offset }

// NewEmptyInputError creates the error Huffman compression of a zero-byte
// source must report per spec.md §4.6's edge cases.
func NewEmptyInputError(stage string) *CodecError {
	return NewCodecError(nil, ErrorCodeEmptyInput, "input has zero length").WithStage(stage)
}

// NewIntegrityMismatchError creates the error for two payloads that should
// match and do not, at offset (-1 when unknown). huffman.Decode raises it
// for a frequency-table checksum mismatch; protect.Verify does not return
// it and reports differences through its VerifyResult instead.
func NewIntegrityMismatchError(pathA, pathB string, offset int64) *CodecError {
	return NewCodecError(nil, ErrorCodeIntegrityMismatch, "payloads differ").
		WithOffset(offset).
		WithDetail("pathA", pathA).
		WithDetail("pathB", pathB)
}

// NewMalformedFrameError creates the error a decoder reports when a frame
// header cannot be parsed or its declared sizes don't match the data.
func NewMalformedFrameError(stage, path string, cause error) *CodecError {
	return NewCodecError(cause, ErrorCodeMalformedFrame, "frame header is malformed").
		WithStage(stage).
		WithPath(path)
}

// NewInvalidKeyError creates the error the transposition codec reports when
// asked to encrypt or decrypt under a key that contains repeated characters
// or is empty (config-time validation of the same rule is a ValidationError,
// see pkg/options.ValidateTranspositionKey).
func NewInvalidKeyError(key, reason string) *CodecError {
	return NewCodecError(nil, ErrorCodeInvalidKey, "transposition key is invalid").
		WithDetail("key", key).
		WithDetail("reason", reason)
}
