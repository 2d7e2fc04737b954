package kernel

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeString(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

// moduleBuilder assembles just enough of a SPIR-V module for reflection.
type moduleBuilder struct {
	words []uint32
}

func newModule() *moduleBuilder {
	return &moduleBuilder{words: []uint32{spirvMagic, 0x00010300, 0, 100, 0}}
}

func (m *moduleBuilder) op(opcode uint32, operands ...uint32) *moduleBuilder {
	m.words = append(m.words, uint32(len(operands)+1)<<16|opcode)
	m.words = append(m.words, operands...)
	return m
}

func (m *moduleBuilder) entryPoint(id uint32, name string) *moduleBuilder {
	ops := append([]uint32{execModelGLCompute, id}, encodeString(name)...)
	return m.op(opEntryPoint, ops...)
}

func (m *moduleBuilder) name(id uint32, name string) *moduleBuilder {
	return m.op(opName, append([]uint32{id}, encodeString(name)...)...)
}

func (m *moduleBuilder) resource(id, set, binding uint32) *moduleBuilder {
	m.op(opDecorate, id, decorationDescriptorSet, set)
	return m.op(opDecorate, id, decorationBinding, binding)
}

func (m *moduleBuilder) bytes() []byte {
	out := make([]byte, len(m.words)*4)
	for i, w := range m.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func tracerModule() *moduleBuilder {
	m := newModule().
		entryPoint(1, "main").
		op(opExecutionMode, 1, execModeLocalSize, 64, 1, 1)
	names := []string{"framebuffer", "scene", "camera", "spheres"}
	for i, n := range names {
		m.name(uint32(10+i), n)
	}
	// Decorations out of order on purpose.
	for _, i := range []uint32{2, 0, 3, 1} {
		m.resource(10+i, 0, i)
	}
	return m
}

func TestReflect(t *testing.T) {
	words, err := Words(tracerModule().bytes())
	require.NoError(t, err)

	r, err := Reflect(words)
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, r.EntryPoints)
	assert.Equal(t, [3]uint32{64, 1, 1}, r.WorkgroupSize["main"])
	require.Len(t, r.Bindings, 4)
	for i, b := range r.Bindings {
		assert.Equal(t, uint32(0), b.Group)
		assert.Equal(t, uint32(i), b.Binding)
	}
	assert.Equal(t, "framebuffer", r.Bindings[0].Name)
	assert.Equal(t, "spheres", r.Bindings[3].Name)
}

func TestReflectLocalSizeID(t *testing.T) {
	m := newModule().
		entryPoint(1, "main").
		op(opExecutionModeID, 1, execModeLocalSizeID, 20, 21, 21).
		op(opConstant, 5, 20, 32).
		op(opConstant, 5, 21, 1)

	words, err := Words(m.bytes())
	require.NoError(t, err)
	r, err := Reflect(words)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{32, 1, 1}, r.WorkgroupSize["main"])
}

func TestReflectIgnoresNonComputeEntryPoints(t *testing.T) {
	m := newModule().op(opEntryPoint, append([]uint32{0, 7}, encodeString("vs_main")...)...)
	words, err := Words(m.bytes())
	require.NoError(t, err)
	r, err := Reflect(words)
	require.NoError(t, err)
	assert.Empty(t, r.EntryPoints)
}

func TestReflectErrors(t *testing.T) {
	_, err := Words([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)

	_, err = Reflect([]uint32{spirvMagic})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)

	_, err = Reflect([]uint32{0xDEADBEEF, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)

	// Instruction claims more words than remain.
	_, err = Reflect([]uint32{spirvMagic, 0, 0, 0, 0, 9<<16 | opName, 1})
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
}

func TestDecodeString(t *testing.T) {
	for _, s := range []string{"", "abc", "main", "framebuffer"} {
		assert.Equal(t, s, decodeString(encodeString(s)))
	}
}
