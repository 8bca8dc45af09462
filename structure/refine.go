package structure

// Refine relabels interior sections using their immediate neighbours, in place.
// It is a single pass: rules read the types as they were before the pass, so a
// relabel never triggers another one.
//
//	interlude between two choruses      -> bridge
//	buildup followed by chorus or drop  -> pre_drop
//
// It returns the number of sections relabelled.
func Refine(sections []Section) int {
	if len(sections) < 3 {
		return 0
	}
	before := make([]SectionType, len(sections))
	for i, s := range sections {
		before[i] = s.Type
	}

	changed := 0
	for i := 1; i < len(sections)-1; i++ {
		prev, curr, next := before[i-1], before[i], before[i+1]
		switch {
		case curr == Interlude && prev == Chorus && next == Chorus:
			sections[i].Type = Bridge
			changed++
		case curr == Buildup && (next == Chorus || next == Drop):
			sections[i].Type = PreDrop
			changed++
		}
	}
	return changed
}
