package levenshtein

// distanceMyers64 is Myers' bit-parallel distance for a first operand of at
// most 64 runes (Hyyrö 2001). peq is all-zero on entry and on return.
func (ctx *Context) distanceMyers64(s1, s2 []rune) int {
	for i, r := range s1 {
		if r < rune(len(ctx.peq)) {
			ctx.peq[r] |= 1 << i
		}
	}

	defer func() {
		for _, r := range s1 {
			if r < rune(len(ctx.peq)) {
				ctx.peq[r] = 0
			}
		}
	}()

	vp := ^uint64(0)
	vn := uint64(0)
	score := len(s1)
	mask := uint64(1) << (len(s1) - 1)

	for _, char := range s2 {
		var pm uint64
		if char < rune(len(ctx.peq)) {
			pm = ctx.peq[char]
		} else {
			for i, r := range s1 {
				if r == char {
					pm |= 1 << i
				}
			}
		}

		x := pm | vn
		d0 := ((vp + (x & vp)) ^ vp) | x
		hn := vp & d0
		hp := vn | ^(d0 | vp)

		x = (hp << 1) | 1
		vn = x & d0
		vp = (hn << 1) | ^(x | d0)

		if hp&mask != 0 {
			score++
		}

		if hn&mask != 0 {
			score--
		}
	}

	return score
}
