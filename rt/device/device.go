// Package device defines the accelerator contract the tracer is written
// against. The WebGPU implementation lives in rt/gpu; tests substitute an
// in-memory device.
package device

import (
	"errors"
	"fmt"
)

var (
	ErrNoAdapter      = errors.New("device: no suitable adapter")
	ErrCapability     = errors.New("device: required storage-buffer capability missing")
	ErrDeviceRejected = errors.New("device: device creation rejected")
	ErrImmutable      = errors.New("device: buffer is not host-writable")
	ErrNotReadable    = errors.New("device: buffer is not host-readable")
	ErrBufferSize     = errors.New("device: data does not fit buffer")
	ErrForeignHandle  = errors.New("device: handle belongs to another device")
	ErrMapFailed      = errors.New("device: buffer map failed")
)

// Usage describes how the host may touch a buffer after creation. Every
// buffer is a storage buffer visible to the kernel.
type Usage uint8

const (
	// UsageHostWrite allows WriteBuffer after creation.
	UsageHostWrite Usage = 1 << iota
	// UsageHostRead allows ReadBuffer.
	UsageHostRead
)

func (u Usage) Has(flag Usage) bool { return u&flag != 0 }

func (u Usage) String() string {
	switch u {
	case 0:
		return "immutable"
	case UsageHostWrite:
		return "host-write"
	case UsageHostRead:
		return "host-read"
	case UsageHostWrite | UsageHostRead:
		return "host-read-write"
	}
	return fmt.Sprintf("Usage(%d)", uint8(u))
}

type BufferDesc struct {
	Label string
	Size  uint64
	// Contents, when set, initializes the buffer at creation. It is the only
	// way to fill a buffer without UsageHostWrite.
	Contents []byte
	Usage    Usage
}

type Buffer interface {
	Label() string
	Size() uint64
	Usage() Usage
	Release()
}

type Pipeline interface {
	Release()
}

type Binding interface {
	Release()
}

// Limits is the subset of adapter limits the tracer sizes itself against.
type Limits struct {
	MaxStorageBufferBindingSize       uint64
	MaxStorageBuffersPerShaderStage   uint32
	MaxComputeWorkgroupsPerDimension  uint32
	MaxComputeInvocationsPerWorkgroup uint32
}

// Program is what a device needs to build a compute pipeline.
type Program interface {
	Label() string
	Source() string
	EntryPoint() string
}

// Device owns the queue. All methods are called from one goroutine.
type Device interface {
	Name() string
	Limits() Limits

	CreateBuffer(desc BufferDesc) (Buffer, error)
	WriteBuffer(buf Buffer, data []byte) error
	// ReadBuffer blocks until the buffer contents are copied into dst.
	ReadBuffer(buf Buffer, dst []byte) error

	CreatePipeline(prog Program) (Pipeline, error)
	// CreateBinding binds bufs to group 0, binding i for bufs[i].
	CreateBinding(p Pipeline, bufs []Buffer) (Binding, error)
	// Dispatch records one dispatch, submits it and waits for completion.
	Dispatch(p Pipeline, b Binding, grid Grid) error

	Release()
}
