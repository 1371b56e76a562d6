// Copyright (c) 2015, Arbo von Monkiewitsch All rights reserved.
// Use of this source code is governed by a BSD-style
// license.

// Package levenshtein calculates the Levenshtein edit distance between labels.
package levenshtein

// myersMaxLen is the longest first operand served by the bit-vector path.
const myersMaxLen = 64

// Context is the object which allows to calculate the Levenshtein distance
// with Distance() method. It is needed to keep allocations down when many
// labels are compared in a row. A Context is not safe for concurrent use.
type Context struct {
	intSlice []int
	peq      [256]uint64
}

func (ctx *Context) getIntSlice(length int) []int {
	if cap(ctx.intSlice) < length {
		ctx.intSlice = make([]int, length)
	}

	return ctx.intSlice[:length]
}

// Distance calculates the Levenshtein distance between two strings which
// is defined as the minimum number of edits needed to transform one string
// into the other, with the allowable edit operations being insertion, deletion,
// or substitution of a single character.
// http://en.wikipedia.org/wiki/Levenshtein_distance
func (ctx *Context) Distance(str1, str2 string) int {
	s1 := []rune(str1)
	s2 := []rune(str2)

	switch {
	case len(s1) == 0:
		return len(s2)
	case len(s2) == 0:
		return len(s1)
	case len(s1) <= myersMaxLen:
		return ctx.distanceMyers64(s1, s2)
	default:
		return ctx.distanceDP(s1, s2)
	}
}

// Similarity returns 1 - Distance/max(len) over runes: 1 for equal labels,
// 0 for labels sharing nothing. Two empty labels are identical.
func (ctx *Context) Similarity(str1, str2 string) float64 {
	longest := max(len([]rune(str1)), len([]rune(str2)))
	if longest == 0 {
		return 1
	}

	return 1 - float64(ctx.Distance(str1, str2))/float64(longest)
}

// distanceDP is the O(min(m,n)) space column algorithm, based on
// http://en.wikibooks.org/wiki/Algorithm_implementation/Strings/Levenshtein_distance#C
func (ctx *Context) distanceDP(s1, s2 []rune) int {
	lenS1 := len(s1)

	column := ctx.getIntSlice(lenS1 + 1)
	// Column[0] will be initialized at the start of the first loop before it
	// is read.
	for idx := 1; idx <= lenS1; idx++ {
		column[idx] = idx
	}

	for col, s2Rune := range s2 {
		column[0] = col + 1
		lastdiag := col

		for row := range lenS1 {
			olddiag := column[row+1]

			cost := 0
			if s1[row] != s2Rune {
				cost = 1
			}

			column[row+1] = min(
				column[row+1]+1,
				column[row]+1,
				lastdiag+cost,
			)
			lastdiag = olddiag
		}
	}

	return column[lenS1]
}
