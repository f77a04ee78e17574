package meter

// DownsampleFrames decimates a frame history to at most maxPoints entries for
// display. Destination-based: dst is reused when it has sufficient capacity,
// otherwise a new slice is allocated; the (possibly new) destination is
// returned. If len(frames) <= maxPoints, all frames are copied through.
func DownsampleFrames(dst []Frame, frames []Frame, maxPoints int) []Frame {
	if len(frames) <= maxPoints {
		if cap(dst) >= len(frames) {
			dst = dst[:len(frames)]
			copy(dst, frames)
			return dst
		}
		result := make([]Frame, len(frames))
		copy(result, frames)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Frame, 0, maxPoints)
	}

	step := float64(len(frames)) / float64(maxPoints)

	for i := 0; i < maxPoints; i++ {
		idx := int(float64(i) * step)
		if idx < len(frames) {
			dst = append(dst, frames[idx])
		}
	}

	return dst
}
