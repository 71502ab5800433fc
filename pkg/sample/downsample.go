package sample

// Downsample reduces samples to at most maxPoints for display.
//
// Samples are split into maxPoints/2 buckets and each bucket contributes its
// lowest and highest current in time order, so AC peaks survive decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// Returns the destination slice (may be dst if reused, or a new slice if dst was too small).
func Downsample(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if len(samples) <= maxPoints || maxPoints < 2 {
		n := len(samples)
		if maxPoints < 2 && n > maxPoints {
			n = max(maxPoints, 0)
		}
		if cap(dst) >= n {
			dst = dst[:n]
		} else {
			dst = make([]Sample, n)
		}
		copy(dst, samples[:n])
		return dst
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	buckets := maxPoints / 2
	step := float64(len(samples)) / float64(buckets)

	for b := 0; b < buckets; b++ {
		from := int(float64(b) * step)
		to := int(float64(b+1) * step)
		if b == buckets-1 {
			to = len(samples)
		}
		if from >= to {
			continue
		}

		lo, hi := from, from
		for i := from + 1; i < to; i++ {
			if samples[i].Amps < samples[lo].Amps {
				lo = i
			}
			if samples[i].Amps > samples[hi].Amps {
				hi = i
			}
		}

		switch {
		case lo == hi:
			dst = append(dst, samples[lo])
		case lo < hi:
			dst = append(dst, samples[lo], samples[hi])
		default:
			dst = append(dst, samples[hi], samples[lo])
		}
	}

	return dst
}
