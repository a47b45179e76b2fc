package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

// StorageBackend selects where uploaded PDFs live.
type StorageBackend string

const (
	StorageBackendLocal       StorageBackend = "local"
	StorageBackendGCS         StorageBackend = "gcs"
	StorageBackendGCSEmulator StorageBackend = "gcs_emulator"
)

type StorageBackendErrorCode string

const (
	StorageBackendErrorInvalid             StorageBackendErrorCode = "invalid_backend"
	StorageBackendErrorMissingEmulatorHost StorageBackendErrorCode = "missing_emulator_host"
	StorageBackendErrorInvalidEmulatorHost StorageBackendErrorCode = "invalid_emulator_host"
)

type StorageBackendError struct {
	Code         StorageBackendErrorCode
	Backend      string
	EmulatorHost string
	Cause        error
}

func (e *StorageBackendError) Error() string {
	if e == nil {
		return "invalid storage backend"
	}
	switch e.Code {
	case StorageBackendErrorInvalid:
		return fmt.Sprintf("invalid STORAGE_BACKEND=%q (allowed: %q, %q, %q)",
			e.Backend, StorageBackendLocal, StorageBackendGCS, StorageBackendGCSEmulator)
	case StorageBackendErrorMissingEmulatorHost:
		return fmt.Sprintf("STORAGE_BACKEND=%q requires STORAGE_EMULATOR_HOST", StorageBackendGCSEmulator)
	case StorageBackendErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected an absolute URL like http://fake-gcs:4443", e.EmulatorHost)
	default:
		return "invalid storage backend"
	}
}

func (e *StorageBackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveStorageBackend validates the configured backend. An empty value
// means local disk; "gcs" with an emulator host set is treated as the
// emulator.
func ResolveStorageBackend(raw, emulatorHost string) (StorageBackend, error) {
	emulatorHost = strings.TrimSpace(emulatorHost)
	b := StorageBackend(strings.ToLower(strings.TrimSpace(raw)))
	switch b {
	case "", StorageBackendLocal:
		return StorageBackendLocal, nil
	case StorageBackendGCS:
		if emulatorHost == "" {
			return StorageBackendGCS, nil
		}
		b = StorageBackendGCSEmulator
	case StorageBackendGCSEmulator:
	default:
		return "", &StorageBackendError{Code: StorageBackendErrorInvalid, Backend: raw}
	}

	if emulatorHost == "" {
		return "", &StorageBackendError{Code: StorageBackendErrorMissingEmulatorHost, Backend: string(b)}
	}
	u, err := url.Parse(emulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &StorageBackendError{
			Code:         StorageBackendErrorInvalidEmulatorHost,
			Backend:      string(b),
			EmulatorHost: emulatorHost,
			Cause:        err,
		}
	}
	return b, nil
}
