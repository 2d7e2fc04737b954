// Package kernel loads the ray-tracing compute program and checks that the
// resource slots it declares are the ones the host binds.
package kernel

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

//go:embed raytrace.wgsl
var RaytraceWGSL string

const (
	DefaultLabel      = "Raytrace CS"
	DefaultEntryPoint = "main"
)

var (
	ErrCompile        = errors.New("kernel: compile failed")
	ErrInvalidSPIRV   = errors.New("kernel: invalid SPIR-V")
	ErrInvalidSource  = errors.New("kernel: cannot reflect WGSL source")
	ErrEntryPoint     = errors.New("kernel: compute entry point not found")
	ErrLayoutMismatch = errors.New("kernel: binding layout mismatch")
)

// Slot names one buffer the host binds. The slot's position in a layout is
// its binding index in group 0.
type Slot string

const (
	SlotFramebuffer Slot = "framebuffer"
	SlotScene       Slot = "scene"
	SlotCamera      Slot = "camera"
	SlotSpheres     Slot = "spheres"
)

// Program is a compiled kernel plus its reflected interface. It satisfies
// device.Program.
type Program struct {
	label      string
	source     string
	entryPoint string

	// SPIRV is nil when the interface was read from the WGSL source.
	SPIRV         []byte
	WorkgroupSize [3]uint32
	// Bindings are sorted by group, then binding.
	Bindings []Binding
	// CompileErr is the naga error Default fell back from, if any.
	CompileErr error
}

func (p *Program) Label() string      { return p.label }
func (p *Program) Source() string     { return p.source }
func (p *Program) EntryPoint() string { return p.entryPoint }

// InvocationsPerWorkgroup is the flattened workgroup size.
func (p *Program) InvocationsPerWorkgroup() uint32 {
	return p.WorkgroupSize[0] * p.WorkgroupSize[1] * p.WorkgroupSize[2]
}

// Load compiles WGSL source and reflects its interface. Any failure means the
// program cannot be used.
func Load(label, source, entryPoint string) (*Program, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, label, err)
	}
	return FromSPIRV(label, source, entryPoint, spirv)
}

// FromSPIRV builds a program from an already compiled module. source is what
// the device compiles; spirv is only used to reflect the interface.
func FromSPIRV(label, source, entryPoint string, spirv []byte) (*Program, error) {
	words, err := Words(spirv)
	if err != nil {
		return nil, err
	}
	refl, err := Reflect(words)
	if err != nil {
		return nil, err
	}
	p, err := fromReflection(label, source, entryPoint, refl)
	if err != nil {
		return nil, err
	}
	p.SPIRV = spirv
	return p, nil
}

// FromWGSL builds a program by reading the interface from the source
// declarations, without compiling it.
func FromWGSL(label, source, entryPoint string) (*Program, error) {
	refl, err := ReflectWGSL(source)
	if err != nil {
		return nil, err
	}
	return fromReflection(label, source, entryPoint, refl)
}

func fromReflection(label, source, entryPoint string, refl *Reflection) (*Program, error) {
	found := false
	for _, name := range refl.EntryPoints {
		if name == entryPoint {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q in %s (have %v)", ErrEntryPoint, entryPoint, label, refl.EntryPoints)
	}

	size, ok := refl.WorkgroupSize[entryPoint]
	if !ok || size[0] == 0 || size[1] == 0 || size[2] == 0 {
		return nil, fmt.Errorf("%w: %s: no workgroup size for %q", ErrInvalidSPIRV, label, entryPoint)
	}

	return &Program{
		label:         label,
		source:        source,
		entryPoint:    entryPoint,
		WorkgroupSize: size,
		Bindings:      refl.Bindings,
	}, nil
}

// NewProgram describes a program whose interface is known up front.
func NewProgram(label, source, entryPoint string, workgroupSize [3]uint32, bindings []Binding) *Program {
	return &Program{
		label:         label,
		source:        source,
		entryPoint:    entryPoint,
		WorkgroupSize: workgroupSize,
		Bindings:      bindings,
	}
}

// Default loads the embedded sphere tracer. naga does not cover all of WGSL
// yet; when it rejects the kernel the interface is read from the source and
// the device's own compiler stays the judge of the code.
func Default() (*Program, error) {
	p, err := Load(DefaultLabel, RaytraceWGSL, DefaultEntryPoint)
	if err == nil || !errors.Is(err, ErrCompile) {
		return p, err
	}
	p, werr := FromWGSL(DefaultLabel, RaytraceWGSL, DefaultEntryPoint)
	if werr != nil {
		return nil, fmt.Errorf("%v; %w", err, werr)
	}
	p.CompileErr = err
	return p, nil
}

// Validate checks that the program declares exactly len(layout) bindings, all
// in group 0, numbered 0..n-1 in layout order.
func (p *Program) Validate(layout []Slot) error {
	if len(p.Bindings) != len(layout) {
		return fmt.Errorf("%w: %s declares %d bindings, host binds %d (%s)", ErrLayoutMismatch, p.label, len(p.Bindings), len(layout), describe(layout))
	}
	for i, b := range p.Bindings {
		if b.Group != 0 || b.Binding != uint32(i) {
			return fmt.Errorf("%w: %s: slot %d (%s) expects @group(0) @binding(%d), kernel has %s", ErrLayoutMismatch, p.label, i, layout[i], i, b)
		}
	}
	return nil
}

func describe(layout []Slot) string {
	parts := make([]string, len(layout))
	for i, s := range layout {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
