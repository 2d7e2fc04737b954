package kernel

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

const spirvMagic = 0x07230203

// SPIR-V opcodes, decorations and enums this package inspects.
const (
	opName            = 5
	opEntryPoint      = 15
	opExecutionMode   = 16
	opConstant        = 43
	opDecorate        = 71
	opExecutionModeID = 331

	execModelGLCompute = 5

	execModeLocalSize   = 17
	execModeLocalSizeID = 38

	decorationBinding       = 33
	decorationDescriptorSet = 34
)

// Reflection is what the host needs to know about a compiled kernel.
type Reflection struct {
	EntryPoints   []string
	WorkgroupSize map[string][3]uint32
	Bindings      []Binding
}

// Binding is one resource slot declared by the kernel.
type Binding struct {
	Group   uint32
	Binding uint32
	// Name is the variable name when the module carries debug names.
	Name string
}

func (b Binding) String() string {
	if b.Name == "" {
		return fmt.Sprintf("@group(%d) @binding(%d)", b.Group, b.Binding)
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s", b.Group, b.Binding, b.Name)
}

// Words converts little-endian SPIR-V bytes into words.
func Words(spirv []byte) ([]uint32, error) {
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidSPIRV, len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirv[i*4:])
	}
	return words, nil
}

// Reflect walks the instruction stream of a SPIR-V module and collects
// compute entry points, their workgroup sizes and resource bindings.
func Reflect(words []uint32) (*Reflection, error) {
	if len(words) < 5 {
		return nil, fmt.Errorf("%w: module too short", ErrInvalidSPIRV)
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrInvalidSPIRV, words[0])
	}

	names := map[uint32]string{}
	entryIDs := map[uint32]string{}
	constants := map[uint32]uint32{}
	sets := map[uint32]uint32{}
	bindings := map[uint32]uint32{}
	sizeLiterals := map[uint32][3]uint32{}
	sizeIDs := map[uint32][3]uint32{}
	var entryOrder []uint32

	for offset := 5; offset < len(words); {
		count := int(words[offset] >> 16)
		opcode := words[offset] & 0xFFFF
		if count == 0 || offset+count > len(words) {
			return nil, fmt.Errorf("%w: truncated instruction at word %d", ErrInvalidSPIRV, offset)
		}
		ops := words[offset+1 : offset+count]

		switch opcode {
		case opName:
			if len(ops) >= 2 {
				names[ops[0]] = decodeString(ops[1:])
			}
		case opEntryPoint:
			if len(ops) >= 3 && ops[0] == execModelGLCompute {
				entryIDs[ops[1]] = decodeString(ops[2:])
				entryOrder = append(entryOrder, ops[1])
			}
		case opExecutionMode:
			if len(ops) >= 5 && ops[1] == execModeLocalSize {
				sizeLiterals[ops[0]] = [3]uint32{ops[2], ops[3], ops[4]}
			}
		case opExecutionModeID:
			if len(ops) >= 5 && ops[1] == execModeLocalSizeID {
				sizeIDs[ops[0]] = [3]uint32{ops[2], ops[3], ops[4]}
			}
		case opConstant:
			if len(ops) >= 3 {
				constants[ops[1]] = ops[2]
			}
		case opDecorate:
			if len(ops) >= 3 {
				switch ops[1] {
				case decorationDescriptorSet:
					sets[ops[0]] = ops[2]
				case decorationBinding:
					bindings[ops[0]] = ops[2]
				}
			}
		}
		offset += count
	}

	r := &Reflection{WorkgroupSize: map[string][3]uint32{}}
	for _, id := range entryOrder {
		name := entryIDs[id]
		r.EntryPoints = append(r.EntryPoints, name)
		if size, ok := sizeLiterals[id]; ok {
			r.WorkgroupSize[name] = size
		} else if ids, ok := sizeIDs[id]; ok {
			r.WorkgroupSize[name] = [3]uint32{constants[ids[0]], constants[ids[1]], constants[ids[2]]}
		}
	}

	for id, binding := range bindings {
		set, ok := sets[id]
		if !ok {
			continue
		}
		r.Bindings = append(r.Bindings, Binding{Group: set, Binding: binding, Name: names[id]})
	}
	sortBindings(r.Bindings)

	return r, nil
}

func sortBindings(b []Binding) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Group != b[j].Group {
			return b[i].Group < b[j].Group
		}
		return b[i].Binding < b[j].Binding
	})
}

// decodeString reads a nul-terminated literal packed four bytes per word.
func decodeString(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		for i := 0; i < 4; i++ {
			c := byte(w >> (8 * i))
			if c == 0 {
				return sb.String()
			}
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
