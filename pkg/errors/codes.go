package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing data files, network operations when communicating with remote
	// systems, and device I/O when accessing storage hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems. These codes
// represent problems that are specific to the storage layer of jewelbase's
// fixed-layout data files (jewelryRegister.dat, orderHistory.dat) and their
// sparse index files.
const (
	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Index error codes cover failures in the in-memory B+ tree and hash index
// lifecycle, reported by internal/engine.
const (
	// ErrorCodeIndexKeyNotFound indicates a lookup found no matching key.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexCorrupted indicates a structural invariant of the index
	// (B+ tree node ordering, hash chain linkage) was violated.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"
)

// Codec error codes cover the Huffman, transposition and protection
// pipeline failure modes that spec.md §7 calls out by name.
const (
	// ErrorCodeEmptyInput indicates an operation that requires at least one
	// byte of input (Huffman compression) was given zero bytes.
	ErrorCodeEmptyInput ErrorCode = "EMPTY_INPUT"

	// ErrorCodeMalformedFrame indicates a Huffman or transposition frame's
	// header could not be parsed or its declared lengths don't fit the data.
	ErrorCodeMalformedFrame ErrorCode = "MALFORMED_FRAME"

	// ErrorCodeIntegrityMismatch indicates a checksum or byte-for-byte
	// comparison between two payloads failed.
	ErrorCodeIntegrityMismatch ErrorCode = "INTEGRITY_MISMATCH"

	// ErrorCodeInvalidKey indicates a transposition key failed validation
	// (empty, or containing repeated characters).
	ErrorCodeInvalidKey ErrorCode = "INVALID_TRANSPOSITION_KEY"
)
