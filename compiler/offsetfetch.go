package compiler

import "github.com/hollowloop/dvsql/ops"

// lowerOffsetFetch implements §4.5 step 8.
func (a *assembler) lowerOffsetFetch(offset, fetch *int) {
	if offset == nil && fetch == nil {
		return
	}
	skip := 0
	if offset != nil {
		skip = *offset
	}
	if fetch != nil {
		size := *fetch
		if size > 0 && skip%size == 0 && len(a.pipeline) == 0 {
			page := skip/size + 1
			a.fetch.Count = &size
			a.fetch.Page = &page
			return
		}
		a.pipeline = append(a.pipeline, &ops.Offset{Skip: skip, Take: size})
		return
	}
	a.pipeline = append(a.pipeline, &ops.Offset{Skip: skip, Take: 0})
}
