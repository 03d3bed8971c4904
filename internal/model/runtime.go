package model

import (
	"fmt"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitRuntime loads the ONNX Runtime shared library and creates the
// process-wide environment. Only the first call has an effect; an empty
// libraryPath keeps the platform default.
func InitRuntime(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return envErr
}

// ShutdownRuntime destroys the ONNX environment at process exit.
func ShutdownRuntime() error {
	return ort.DestroyEnvironment()
}

// sessionOptions builds options that run on d. The caller destroys them.
func sessionOptions(d Device) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if !d.IsAccelerator() {
		return options, nil
	}

	cudaOptions, err := ort.NewCUDAProviderOptions()
	if err != nil {
		options.Destroy()
		return nil, DeviceError("configure "+d.String(), err)
	}
	defer cudaOptions.Destroy()

	if err := cudaOptions.Update(map[string]string{"device_id": strconv.Itoa(d.Index)}); err != nil {
		options.Destroy()
		return nil, DeviceError("configure "+d.String(), err)
	}
	if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
		options.Destroy()
		return nil, DeviceError("configure "+d.String(), err)
	}
	return options, nil
}

// ResolveDevice picks the device for name. An empty name selects the first
// CUDA device when its execution provider can be set up, else the CPU.
func ResolveDevice(name, libraryPath string) (Device, error) {
	if name != "" {
		return ParseDevice(name)
	}
	if err := InitRuntime(libraryPath); err != nil {
		return Device{}, DeviceError("probe devices", err)
	}
	accel := Device{Kind: DeviceCUDA}
	options, err := sessionOptions(accel)
	if err != nil {
		return CPU, nil
	}
	options.Destroy()
	return accel, nil
}
