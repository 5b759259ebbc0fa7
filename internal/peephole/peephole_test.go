package peephole_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/peephole"
)

func TestOptimizeRemovesJumpToNextLine(t *testing.T) {
	in := []string{
		"    jmp .L1",
		".L1:",
		"    ret",
	}
	out := peephole.Optimize(in)
	require.Equal(t, []string{".L1:", "    ret"}, out)
}

func TestOptimizeCollapsesPushPopSamePair(t *testing.T) {
	in := []string{"    push %rax", "    pop %rax"}
	out := peephole.Optimize(in)
	require.Empty(t, out)
}

func TestOptimizeRewritesPushPopDifferentRegs(t *testing.T) {
	in := []string{"    push %rax", "    pop %rbx"}
	out := peephole.Optimize(in)
	require.Equal(t, []string{"    mov %rax, %rbx"}, out)
}

func TestOptimizeRemovesSelfMove(t *testing.T) {
	in := []string{"    mov %rax, %rax", "    ret"}
	out := peephole.Optimize(in)
	require.Equal(t, []string{"    ret"}, out)
}

func TestOptimizeRemovesZeroImmediateArith(t *testing.T) {
	in := []string{"    add $0, %rax", "    sub $0, %rbx", "    ret"}
	out := peephole.Optimize(in)
	require.Equal(t, []string{"    ret"}, out)
}

func TestOptimizeThreeWindowRewrite(t *testing.T) {
	in := []string{
		"    push %rax",
		"    mov %rcx, %rdx",
		"    pop %rbx",
	}
	out := peephole.Optimize(in)
	require.Equal(t, []string{"    mov %rax, %rbx", "    mov %rcx, %rdx"}, out)
}

func TestOptimizeIsFixedPoint(t *testing.T) {
	in := []string{"    push %rax", "    pop %rax", "    push %rcx", "    pop %rcx"}
	out := peephole.Optimize(in)
	require.Empty(t, out)
}
