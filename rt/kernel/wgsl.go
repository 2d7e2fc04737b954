package kernel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	wgslBindingRegex  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<[^>]*>)?\s+(\w+)`)
	wgslComputeRegex  = regexp.MustCompile(`@compute\s+@workgroup_size\(([^)]*)\)\s*fn\s+(\w+)`)
	wgslLineCommentRe = regexp.MustCompile(`//[^\n]*`)
)

// ReflectWGSL reads the same interface Reflect extracts from SPIR-V straight
// from the source declarations. Workgroup sizes must be integer literals.
func ReflectWGSL(source string) (*Reflection, error) {
	src := wgslLineCommentRe.ReplaceAllString(source, "")
	r := &Reflection{WorkgroupSize: map[string][3]uint32{}}

	for _, m := range wgslComputeRegex.FindAllStringSubmatch(src, -1) {
		size := [3]uint32{1, 1, 1}
		for i, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "u"))
			if part == "" {
				continue
			}
			if i > 2 {
				return nil, fmt.Errorf("%w: workgroup_size(%s) has too many dimensions", ErrInvalidSource, m[1])
			}
			v, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: workgroup_size(%s) is not literal", ErrInvalidSource, m[1])
			}
			size[i] = uint32(v)
		}
		r.EntryPoints = append(r.EntryPoints, m[2])
		r.WorkgroupSize[m[2]] = size
	}

	for _, m := range wgslBindingRegex.FindAllStringSubmatch(src, -1) {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		r.Bindings = append(r.Bindings, Binding{Group: uint32(group), Binding: uint32(binding), Name: m[3]})
	}
	sortBindings(r.Bindings)
	return r, nil
}
