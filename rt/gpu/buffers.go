package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rtdemo/rt/device"
)

// Buffer is a storage buffer plus, for host-readable buffers, a mappable
// staging twin of the same size.
type Buffer struct {
	owner   *Context
	label   string
	size    uint64
	usage   device.Usage
	buf     *wgpu.Buffer
	staging *wgpu.Buffer
}

func (b *Buffer) Label() string       { return b.label }
func (b *Buffer) Size() uint64        { return b.size }
func (b *Buffer) Usage() device.Usage { return b.usage }

func (b *Buffer) Release() {
	if b.staging != nil {
		b.staging.Release()
		b.staging = nil
	}
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// alignSize rounds up to the 4-byte granularity WebGPU copies require.
func alignSize(n uint64) uint64 {
	if n%4 != 0 {
		n += 4 - (n % 4)
	}
	return n
}

func bufferUsage(u device.Usage) wgpu.BufferUsage {
	usage := wgpu.BufferUsageStorage
	if u.Has(device.UsageHostWrite) {
		usage |= wgpu.BufferUsageCopyDst
	}
	if u.Has(device.UsageHostRead) {
		usage |= wgpu.BufferUsageCopySrc
	}
	return usage
}

// padded returns data extended with zeros to size bytes.
func padded(data []byte, size uint64) []byte {
	if uint64(len(data)) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

func (c *Context) CreateBuffer(desc device.BufferDesc) (device.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: %s: zero size", device.ErrBufferSize, desc.Label)
	}
	if uint64(len(desc.Contents)) > desc.Size {
		return nil, fmt.Errorf("%w: %s: %d bytes into %d", device.ErrBufferSize, desc.Label, len(desc.Contents), desc.Size)
	}

	size := alignSize(desc.Size)
	b := &Buffer{owner: c, label: desc.Label, size: size, usage: desc.Usage}

	var err error
	if desc.Contents != nil {
		b.buf, err = c.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    desc.Label,
			Contents: padded(desc.Contents, size),
			Usage:    bufferUsage(desc.Usage),
		})
	} else {
		b.buf, err = c.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label,
			Size:  size,
			Usage: bufferUsage(desc.Usage),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", desc.Label, err)
	}

	if desc.Usage.Has(device.UsageHostRead) {
		b.staging, err = c.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label + " Staging",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("create staging buffer %s: %w", desc.Label, err)
		}
	}

	c.log.Debugf("Buffer %s: %d bytes, %s", desc.Label, size, desc.Usage)
	return b, nil
}

func (c *Context) own(buf device.Buffer) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok || b.owner != c || b.buf == nil {
		return nil, fmt.Errorf("%w: buffer %s", device.ErrForeignHandle, buf.Label())
	}
	return b, nil
}

func (c *Context) WriteBuffer(buf device.Buffer, data []byte) error {
	b, err := c.own(buf)
	if err != nil {
		return err
	}
	if !b.usage.Has(device.UsageHostWrite) {
		return fmt.Errorf("%w: %s", device.ErrImmutable, b.label)
	}
	if uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %s: %d bytes into %d", device.ErrBufferSize, b.label, len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := c.queue.WriteBuffer(b.buf, 0, padded(data, alignSize(uint64(len(data))))); err != nil {
		return fmt.Errorf("write buffer %s: %w", b.label, err)
	}
	return nil
}

// ReadBuffer copies the buffer into its staging twin, maps it and waits for
// the map to complete.
func (c *Context) ReadBuffer(buf device.Buffer, dst []byte) error {
	b, err := c.own(buf)
	if err != nil {
		return err
	}
	if !b.usage.Has(device.UsageHostRead) || b.staging == nil {
		return fmt.Errorf("%w: %s", device.ErrNotReadable, b.label)
	}
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("%w: %s: reading %d bytes from %d", device.ErrBufferSize, b.label, len(dst), b.size)
	}

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("readback encoder %s: %w", b.label, err)
	}
	encoder.CopyBufferToBuffer(b.buf, 0, b.staging, 0, b.size)
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return fmt.Errorf("readback encoder %s: %w", b.label, err)
	}
	c.queue.Submit(cmd)
	cmd.Release()

	mapped := false
	var status wgpu.BufferMapAsyncStatus
	err = b.staging.MapAsync(wgpu.MapModeRead, 0, b.size, func(s wgpu.BufferMapAsyncStatus) {
		mapped = true
		status = s
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", device.ErrMapFailed, b.label, err)
	}
	c.device.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("%w: %s: status %v", device.ErrMapFailed, b.label, status)
	}

	data := b.staging.GetMappedRange(0, uint(b.size))
	copy(dst, data)
	if err := b.staging.Unmap(); err != nil {
		return fmt.Errorf("%w: %s: unmap: %v", device.ErrMapFailed, b.label, err)
	}
	return nil
}
