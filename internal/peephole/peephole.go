// Package peephole implements the fixed-point assembly peephole
// optimizer described in spec.md §4.6, ported line-for-line from
// original_source/c5c/optimizer.py's optimize_asm: it repeatedly scans
// the emitted instruction stream for a handful of local rewrite patterns
// until a full pass makes no change.
//
// The 3-window rewrite (push A; mov X, B; pop C -> mov A, C; mov X, B)
// is preserved with its known soundness gap intact: it treats B as a bare
// operand-name comparison rather than verifying full operand disjointness
// against A and C, so it can misfire when B aliases a memory operand that
// overlaps A or C. spec.md §9 documents this as an open question rather
// than a defect to silently fix, so this port does not fix it either.
package peephole

import "strings"

// Optimize repeats passes over lines until none of them change anything,
// returning the rewritten stream.
func Optimize(lines []string) []string {
	changed := true
	for changed {
		changed = false
		lines, changed = onePass(lines)
	}
	return lines
}

func onePass(lines []string) ([]string, bool) {
	var out []string
	changed := false
	i := 0
	for i < len(lines) {
		line := lines[i]
		s := strings.TrimSpace(line)

		if i+1 < len(lines) {
			next := lines[i+1]
			nextS := strings.TrimSpace(next)

			if strings.HasPrefix(s, "jmp ") {
				target := strings.TrimSpace(s[4:])
				if nextS == target+":" {
					i++
					changed = true
					continue
				}
			}

			if strings.HasPrefix(s, "push ") && strings.HasPrefix(nextS, "pop ") {
				a := strings.TrimSpace(s[5:])
				b := strings.TrimSpace(nextS[4:])
				if a == b {
					i += 2
					changed = true
					continue
				}
				lead := leadingIndent(line)
				out = append(out, lead+"mov "+a+", "+b)
				i += 2
				changed = true
				continue
			}

			if strings.HasPrefix(s, "mov ") && strings.HasPrefix(nextS, "mov ") {
				p1 := strings.SplitN(s[4:], ", ", 2)
				p2 := strings.SplitN(nextS[4:], ", ", 2)
				if len(p1) == 2 && len(p2) == 2 && p1[0] == p2[1] && p1[1] == p2[0] {
					out = append(out, line)
					i += 2
					changed = true
					continue
				}
			}

			if strings.HasPrefix(s, "add $0,") {
				i++
				changed = true
				continue
			}

			if strings.HasPrefix(s, "sub $0,") {
				i++
				changed = true
				continue
			}

			if strings.HasPrefix(s, "mov ") {
				p1 := strings.SplitN(s[4:], ", ", 2)
				if len(p1) == 2 && p1[0] == p1[1] {
					i++
					changed = true
					continue
				}
			}

			if i+2 < len(lines) {
				s3 := strings.TrimSpace(lines[i+2])
				if strings.HasPrefix(s, "push ") && strings.HasPrefix(nextS, "mov ") && strings.HasPrefix(s3, "pop ") {
					a := strings.TrimSpace(s[5:])
					c := strings.TrimSpace(s3[4:])
					parts := strings.SplitN(nextS[4:], ", ", 2)
					bDest := ""
					if len(parts) == 2 {
						bDest = parts[1]
					}
					// Known gap: bDest is compared as a bare operand
					// name, not checked for aliasing through memory
					// references into A or C.
					if bDest != "" && a != bDest && c != bDest {
						lead := leadingIndent(line)
						if a != c {
							out = append(out, lead+"mov "+a+", "+c)
						}
						out = append(out, lines[i+1])
						i += 3
						changed = true
						continue
					}
				}
			}
		}

		out = append(out, line)
		i++
	}
	return out, changed
}

func leadingIndent(line string) string {
	idx := strings.Index(line, "p")
	if idx < 0 {
		return ""
	}
	return line[:idx]
}
