//go:build !opencl

package gpu

import "fmt"

// NewOpenCLDevice reports that the OpenCL backend was not compiled in.
func NewOpenCLDevice() (Device, error) {
	return nil, fmt.Errorf("OpenCL support is not enabled; rebuild with -tags opencl: %w", ErrNoUsableFormat)
}
