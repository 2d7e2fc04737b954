package tracer

import (
	"errors"
	"fmt"

	"github.com/gekko3d/rtdemo/rt/device"
)

// ErrFrameSize is returned when a destination slice does not hold exactly
// one frame.
var ErrFrameSize = errors.New("tracer: destination does not match frame size")

type Kind uint8

const (
	InitializationFailure Kind = iota
	DispatchFailure
)

func (k Kind) String() string {
	switch k {
	case InitializationFailure:
		return "initialization"
	case DispatchFailure:
		return "dispatch"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Stage names the step that failed.
type Stage uint8

const (
	StageDeviceEnumeration Stage = iota
	StageDeviceCreation
	StageBufferAllocation
	StageKernelLoad
	StagePipelineBuild
	StageDispatch
	StageFenceWait
	StageReadback
)

var stageNames = [...]string{
	StageDeviceEnumeration: "device enumeration",
	StageDeviceCreation:    "device creation",
	StageBufferAllocation:  "buffer allocation",
	StageKernelLoad:        "kernel load",
	StagePipelineBuild:     "pipeline build",
	StageDispatch:          "dispatch",
	StageFenceWait:         "fence wait",
	StageReadback:          "readback",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Error is every failure the tracer reports from init or a frame. All of
// them are terminal for the tracer.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracer: %s failure at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func initError(stage Stage, err error) error {
	return &Error{Kind: InitializationFailure, Stage: stage, Err: err}
}

func dispatchError(stage Stage, err error) error {
	return &Error{Kind: DispatchFailure, Stage: stage, Err: err}
}

// DeviceError classifies a failure to acquire a device by the stage it
// happened in.
func DeviceError(err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	stage := StageDeviceCreation
	if errors.Is(err, device.ErrNoAdapter) || errors.Is(err, device.ErrCapability) {
		stage = StageDeviceEnumeration
	}
	return initError(stage, err)
}

// KernelError marks a failure to load or compile the kernel program.
func KernelError(err error) error {
	if err == nil {
		return nil
	}
	return initError(StageKernelLoad, err)
}

// StageOf reports the failing stage of a tracer error.
func StageOf(err error) (Stage, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Stage, true
	}
	return 0, false
}
