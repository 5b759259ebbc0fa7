// Package codegen emits GNU-assembler (GAS) x86-64 text implementing the
// System V AMD64 calling convention, targeted at the host C runtime via
// gcc.
//
// Grounded on original_source/c5c/codegen.py's CodeGen: sizeof, mangle,
// get_lvalue, gen_func's ABI register assignment, and the array/string
// runtime helper bodies are ported line-for-line, rewritten against
// internal/types.Type and internal/sema.Result instead of the original's
// type strings and ad hoc dictionaries. Line accumulation follows the
// teacher's outputWriter (gen.go): an outputWriter emits text into an
// indentation-tracked buffer; asmWriter here is the same idea applied to
// GAS lines, which the peephole optimizer then rewrites as a flat slice
// rather than a buffer, since its pattern matching operates line by line
// (see internal/peephole).
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c5lang/c5c/internal/ast"
	"github.com/c5lang/c5c/internal/fold"
	"github.com/c5lang/c5c/internal/peephole"
	"github.com/c5lang/c5c/internal/sema"
	"github.com/c5lang/c5c/internal/types"
)

var intRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
var floatRegs = []string{"%xmm0", "%xmm1", "%xmm2", "%xmm3", "%xmm4", "%xmm5"}

// asmWriter accumulates GAS lines, tracking indentation the way the
// teacher's outputWriter tracks indentation for its target languages.
type asmWriter struct {
	lines []string
}

func (w *asmWriter) emit(format string, args ...any) {
	w.lines = append(w.lines, "    "+fmt.Sprintf(format, args...))
}

func (w *asmWriter) raw(s string) { w.lines = append(w.lines, s) }

func (w *asmWriter) label(name string) { w.lines = append(w.lines, name+":") }

type fieldLayout struct {
	offset int
	ty     types.Type
}

type structLayout struct {
	size   int
	order  []string
	fields map[string]fieldLayout
}

type localVar struct {
	offset int
	ty     types.Type
	isFn   bool // true if this local holds a lowered-lambda function address
}

// Generator walks a fully analyzed, macro-expanded, constant-folded file
// and produces GAS assembly text.
type Generator struct {
	res *sema.Result

	rodata []string
	data   []string
	text   asmWriter

	lambdaFuncs [][]string
	lambdaCount int

	strLits   map[string]string
	strCount  int
	floatLits map[string]string
	floatCount int

	labelCount int

	usesStrAdd bool
	usesStrSub bool

	structLayouts map[string]structLayout

	localVars   map[string]localVar
	localOffset int

	breakTargets []string

	funcHasReturn bool
	currentRet    types.Type
}

// Generate produces the complete assembly text for file, given the
// symbol table res computed by internal/sema.
func Generate(file *ast.File, res *sema.Result) string {
	g := &Generator{
		res:           res,
		strLits:       map[string]string{},
		floatLits:     map[string]string{},
		structLayouts: map[string]structLayout{},
	}
	g.precomputeLayouts()
	g.emitGlobals(file)
	for _, d := range file.Decls {
		if fn, ok := d.(ast.FuncDecl); ok {
			g.genFunc(fn)
		}
	}
	return g.assemble()
}

func (g *Generator) precomputeLayouts() {
	names := make([]string, 0, len(g.res.Structs))
	for n := range g.res.Structs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		g.layoutOf(n)
	}
}

func (g *Generator) layoutOf(name string) structLayout {
	if l, ok := g.structLayouts[name]; ok {
		return l
	}
	si := g.res.Structs[name]
	offset := 0
	fields := map[string]fieldLayout{}
	var order []string
	for _, f := range si.Fields {
		ty := g.resolve(f.Type)
		sz := g.sizeof(ty)
		align := sz
		if align > 8 {
			align = 8
		}
		if align > 0 && offset%align != 0 {
			offset += align - (offset % align)
		}
		fields[f.Name] = fieldLayout{offset: offset, ty: ty}
		order = append(order, f.Name)
		offset += sz
	}
	if offset%8 != 0 {
		offset += 8 - (offset % 8)
	}
	l := structLayout{size: offset, order: order, fields: fields}
	g.structLayouts[name] = l
	return l
}

func (g *Generator) resolve(te ast.TypeExpr) types.Type {
	return resolveTypeExpr(te, g.res)
}

// resolveTypeExpr mirrors internal/sema's resolveType but against the
// already-built Result, used by codegen which doesn't carry the
// analyzer's private scope state.
func resolveTypeExpr(te ast.TypeExpr, res *sema.Result) types.Type {
	var base types.Type
	switch te.Base {
	case "void":
		base = types.Void
	case "int":
		if te.HasSize {
			base = types.SizedInt(te.Size)
		} else {
			base = types.Int
		}
	case "char":
		base = types.Char
	case "float":
		if te.HasSize {
			base = types.SizedFloat(te.Size)
		} else {
			base = types.Float
		}
	case "string":
		base = types.StringType
	case "array":
		elem := types.Unknown
		if te.Elem != nil {
			elem = resolveTypeExpr(*te.Elem, res)
		}
		base = types.ArrayOf(elem)
	default:
		if _, ok := res.Structs[te.Base]; ok {
			base = types.Struct(te.Base)
		} else if _, ok := res.Enums[te.Base]; ok {
			base = types.Enum(te.Base)
		} else if _, ok := res.Typedefs[te.Base]; ok {
			base = types.Alias(te.Base)
		} else {
			base = types.Unknown
		}
	}
	base = base.WithSign(te.Signed, te.Unsigned)
	if te.Const {
		base = base.WithConst()
	}
	for i := 0; i < te.Stars; i++ {
		base = types.PointerTo(base)
	}
	return base
}

func mangle(name string) string {
	return strings.ReplaceAll(name, "::", "_")
}

func (g *Generator) sizeof(t types.Type) int {
	switch t.Kind {
	case types.PointerKind, types.FuncPointerKind, types.StringKind:
		return 8
	case types.ArrayKind:
		return 24
	case types.CharKind:
		return 1
	case types.IntKind:
		bits := t.BitWidth()
		return (bits + 7) / 8
	case types.FloatKind:
		if t.Bits == 32 {
			return 4
		}
		return 8
	case types.StructKind:
		return g.layoutOf(t.Name).size
	case types.EnumKind:
		return 4
	case types.AliasKind:
		max := 0
		for _, m := range g.res.Typedefs[t.Name].Members {
			sz := g.sizeof(g.resolve(m))
			if sz > max {
				max = sz
			}
		}
		if max == 0 {
			max = 1
		}
		return max
	default:
		return 8
	}
}

// ---- Globals ----

func (g *Generator) emitGlobals(file *ast.File) {
	for _, d := range file.Decls {
		pv, ok := d.(ast.PubVarDecl)
		if !ok {
			continue
		}
		ty := g.resolve(pv.Type)
		sz := g.sizeof(ty)
		m := mangle(pv.Name)
		g.data = append(g.data, ".global "+m)
		g.data = append(g.data, m+":")
		switch {
		case pv.Init == nil:
			g.data = append(g.data, fmt.Sprintf("    .zero %d", sz))
		case isNumberLit(pv.Init):
			v, _ := fold.Eval(pv.Init)
			g.data = append(g.data, fmt.Sprintf("    %s %d", sizeDirective(sz), v))
		case isStringLit(pv.Init):
			label := g.internString(pv.Init.(ast.StringExpr).Value)
			g.data = append(g.data, "    .quad "+label)
		case isFloatLit(pv.Init):
			fe := pv.Init.(ast.FloatExpr)
			if sz == 4 {
				g.data = append(g.data, fmt.Sprintf("    .float %v", fe.Value))
			} else {
				g.data = append(g.data, fmt.Sprintf("    .double %v", fe.Value))
			}
		default:
			g.data = append(g.data, fmt.Sprintf("    .zero %d", sz))
		}
	}
}

func isNumberLit(e ast.Expr) bool  { _, ok := e.(ast.NumberExpr); return ok }
func isStringLit(e ast.Expr) bool  { _, ok := e.(ast.StringExpr); return ok }
func isFloatLit(e ast.Expr) bool   { _, ok := e.(ast.FloatExpr); return ok }

func sizeDirective(sz int) string {
	switch sz {
	case 1:
		return ".byte"
	case 2:
		return ".short"
	case 4:
		return ".long"
	default:
		return ".quad"
	}
}

func (g *Generator) internString(s string) string {
	if label, ok := g.strLits[s]; ok {
		return label
	}
	label := fmt.Sprintf(".LC%d", g.strCount)
	g.strCount++
	g.strLits[s] = label
	g.rodata = append(g.rodata, label+":")
	g.rodata = append(g.rodata, fmt.Sprintf("    .string %q", s))
	return label
}

func (g *Generator) internFloat(v float64, bits int) string {
	key := fmt.Sprintf("%d:%v", bits, v)
	if label, ok := g.floatLits[key]; ok {
		return label
	}
	label := fmt.Sprintf(".LCF%d", g.floatCount)
	g.floatCount++
	g.floatLits[key] = label
	g.rodata = append(g.rodata, "    .align 8")
	g.rodata = append(g.rodata, label+":")
	if bits == 32 {
		g.rodata = append(g.rodata, fmt.Sprintf("    .float %v", v))
	} else {
		g.rodata = append(g.rodata, fmt.Sprintf("    .double %v", v))
	}
	return label
}

// ---- Functions ----

func (g *Generator) genFunc(fn ast.FuncDecl) {
	g.localVars = map[string]localVar{}
	g.localOffset = 0
	g.funcHasReturn = false
	g.currentRet = g.resolve(fn.RetType)

	name := mangle(fn.Name)
	g.text.raw(".global " + name)
	g.text.raw(".type " + name + ", @function")
	g.text.label(name)
	g.text.emit("push %%rbp")
	g.text.emit("mov %%rsp, %%rbp")
	g.text.emit("sub $512, %%rsp")

	intIdx, floatIdx := 0, 0

	if g.currentRet.Kind == types.StructKind {
		g.localOffset -= 8
		g.localVars["__ret_ptr"] = localVar{offset: g.localOffset, ty: types.PointerTo(g.currentRet)}
		reg := intRegs[intIdx]
		intIdx++
		g.text.emit("mov %s, %d(%%rbp)", reg, g.localOffset)
	}

	for _, p := range fn.Params {
		pty := g.resolve(p.Type)
		switch {
		case pty.IsArray():
			g.localOffset -= 24
			g.localVars[p.Name] = localVar{offset: g.localOffset, ty: pty}
			rp, rl, rc := intRegs[intIdx], intRegs[intIdx+1], intRegs[intIdx+2]
			intIdx += 3
			off := g.localOffset
			g.text.emit("mov %s, %d(%%rbp)", rp, off)
			g.text.emit("mov %s, %d(%%rbp)", rl, off+8)
			g.text.emit("mov %s, %d(%%rbp)", rc, off+16)
		case pty.Kind == types.StructKind:
			l := g.layoutOf(pty.Name)
			g.localOffset -= l.size
			if (-g.localOffset)%8 != 0 {
				g.localOffset -= 8 - ((-g.localOffset) % 8)
			}
			off := g.localOffset
			g.localVars[p.Name] = localVar{offset: off, ty: pty}
			if l.size <= 16 {
				r1 := intRegs[intIdx]
				intIdx++
				g.text.emit("mov %s, %d(%%rbp)", r1, off)
				if l.size > 8 {
					r2 := intRegs[intIdx]
					intIdx++
					g.text.emit("mov %s, %d(%%rbp)", r2, off+8)
				}
			} else {
				rp := intRegs[intIdx]
				intIdx++
				g.text.emit("mov %s, %%r11", rp)
				for copyOff := 0; copyOff < l.size; copyOff += 8 {
					remaining := l.size - copyOff
					switch {
					case remaining >= 8:
						g.text.emit("mov %d(%%r11), %%rax", copyOff)
						g.text.emit("mov %%rax, %d(%%rbp)", off+copyOff)
					case remaining >= 4:
						g.text.emit("movl %d(%%r11), %%eax", copyOff)
						g.text.emit("movl %%eax, %d(%%rbp)", off+copyOff)
					default:
						g.text.emit("movb %d(%%r11), %%al", copyOff)
						g.text.emit("movb %%al, %d(%%rbp)", off+copyOff)
					}
				}
			}
		case pty.IsFloat():
			g.localOffset -= 8
			g.localVars[p.Name] = localVar{offset: g.localOffset, ty: pty}
			reg := floatRegs[floatIdx]
			floatIdx++
			if pty.Bits == 32 {
				g.text.emit("movss %s, %d(%%rbp)", reg, g.localOffset)
			} else {
				g.text.emit("movsd %s, %d(%%rbp)", reg, g.localOffset)
			}
		default:
			g.localOffset -= 8
			g.localVars[p.Name] = localVar{offset: g.localOffset, ty: pty}
			reg := intRegs[intIdx]
			intIdx++
			g.text.emit("mov %s, %d(%%rbp)", reg, g.localOffset)
		}
	}

	for _, s := range fn.Body {
		g.genStmt(s)
	}

	if !g.funcHasReturn {
		if fn.Name == "main" {
			g.text.emit("mov $0, %%eax")
		}
		g.text.emit("leave")
		g.text.emit("ret")
	}
}

func (g *Generator) newLabel(prefix string) string {
	l := fmt.Sprintf(".L%s%d", prefix, g.labelCount)
	g.labelCount++
	return l
}

// ---- Statements ----

func (g *Generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case ast.ExprStmt:
		g.genExpr(n.X)
	case ast.VarDecl:
		g.genVarDecl(n)
	case ast.AssignStmt:
		g.genAssign(n)
	case ast.ReturnStmt:
		g.genReturn(n)
	case ast.BreakStmt:
		if len(g.breakTargets) > 0 {
			g.text.emit("jmp %s", g.breakTargets[len(g.breakTargets)-1])
		}
	case ast.IfStmt:
		g.genIf(n)
	case ast.WhileStmt:
		g.genWhile(n)
	case ast.DoWhileStmt:
		g.genDoWhile(n)
	case ast.ForStmt:
		g.genFor(n)
	case ast.ForeachStmt:
		g.genForeach(n)
	case ast.SwitchStmt:
		g.genSwitch(n)
	}
}

func (g *Generator) allocLocal(ty types.Type) int {
	sz := g.sizeof(ty)
	align := sz
	if align > 8 {
		align = 8
	}
	if align > 0 && (-g.localOffset)%align != 0 {
		g.localOffset -= align - ((-g.localOffset) % align)
	}
	g.localOffset -= sz
	return g.localOffset
}

func (g *Generator) genVarDecl(n ast.VarDecl) {
	if lam, ok := n.Init.(ast.LambdaExpr); ok {
		off := g.allocLocal(types.FuncPtr)
		g.localVars[n.Name] = localVar{offset: off, ty: types.FuncPtr, isFn: true}
		fnName := g.lowerLambda(lam)
		g.text.emit("lea %s(%%rip), %%rax", fnName)
		g.text.emit("mov %%rax, %d(%%rbp)", off)
		return
	}

	ty := g.resolve(n.Type)
	off := g.allocLocal(ty)
	g.localVars[n.Name] = localVar{offset: off, ty: ty}

	if ty.IsArray() && n.Init == nil {
		g.text.emit("movq $0, %d(%%rbp)", off)
		g.text.emit("movq $0, %d(%%rbp)", off+8)
		g.text.emit("movq $0, %d(%%rbp)", off+16)
		return
	}
	if n.Init == nil {
		return
	}

	if il, ok := n.Init.(ast.InitListExpr); ok {
		g.genInitListInto(il, ty, off)
		return
	}

	g.genExpr(n.Init)
	g.storeFromAcc(off, ty)
}

// storeFromAcc stores the evaluated result (in %rax, or %xmm0 for
// floats) into the local slot at off.
func (g *Generator) storeFromAcc(off int, ty types.Type) {
	if ty.IsFloat() {
		if ty.Bits == 32 {
			g.text.emit("movss %%xmm0, %d(%%rbp)", off)
		} else {
			g.text.emit("movsd %%xmm0, %d(%%rbp)", off)
		}
		return
	}
	if ty.IsArray() {
		g.text.emit("mov %%rax, %d(%%rbp)", off)
		g.text.emit("mov %%rdx, %d(%%rbp)", off+8)
		g.text.emit("mov %%rcx, %d(%%rbp)", off+16)
		return
	}
	switch g.sizeof(ty) {
	case 1:
		g.text.emit("mov %%al, %d(%%rbp)", off)
	case 2:
		g.text.emit("mov %%ax, %d(%%rbp)", off)
	case 4:
		g.text.emit("mov %%eax, %d(%%rbp)", off)
	default:
		g.text.emit("mov %%rax, %d(%%rbp)", off)
	}
}

// genInitListInto fills an array, struct, or enum-index value at local
// offset off from an initializer list, grounded on gen_stmt's init_list
// handling in codegen.py.
func (g *Generator) genInitListInto(il ast.InitListExpr, ty types.Type, off int) {
	switch {
	case ty.IsArray():
		elemTy := *ty.Elem
		elemSz := g.sizeof(elemTy)
		count := len(il.Elems)
		allocSz := count * elemSz
		g.text.emit("mov $%d, %%rdi", allocSz)
		g.text.emit("call malloc@PLT")
		g.text.emit("mov %%rax, %d(%%rbp)", off)
		g.text.emit("movq $%d, %d(%%rbp)", count, off+8)
		g.text.emit("movq $%d, %d(%%rbp)", count, off+16)
		for i, elem := range il.Elems {
			elemOff := i * elemSz
			if inner, ok := elem.(ast.InitListExpr); ok && elemTy.Kind == types.StructKind {
				layout := g.layoutOf(elemTy.Name)
				for fi, fname := range layout.order {
					if fi >= len(inner.Elems) {
						break
					}
					g.genExpr(inner.Elems[fi])
					g.text.emit("mov %d(%%rbp), %%rcx", off)
					fl := layout.fields[fname]
					g.storeIndexed("%rcx", elemOff+fl.offset, fl.ty)
				}
				continue
			}
			g.genExpr(elem)
			g.text.emit("mov %d(%%rbp), %%rcx", off)
			g.storeIndexed("%rcx", elemOff, elemTy)
		}
	case ty.Kind == types.StructKind:
		layout := g.layoutOf(ty.Name)
		for i, fname := range layout.order {
			if i >= len(il.Elems) {
				break
			}
			g.genExpr(il.Elems[i])
			fl := layout.fields[fname]
			g.storeFromAcc(off+fl.offset, fl.ty)
		}
	default:
		if len(il.Elems) > 0 {
			g.genExpr(il.Elems[0])
			g.storeFromAcc(off, ty)
		}
	}
}

func (g *Generator) storeIndexed(baseReg string, off int, ty types.Type) {
	switch g.sizeof(ty) {
	case 1:
		g.text.emit("mov %%al, %d(%s)", off, baseReg)
	case 2:
		g.text.emit("mov %%ax, %d(%s)", off, baseReg)
	case 4:
		g.text.emit("mov %%eax, %d(%s)", off, baseReg)
	default:
		g.text.emit("mov %%rax, %d(%s)", off, baseReg)
	}
}

func (g *Generator) genAssign(n ast.AssignStmt) {
	addr, ty := g.lvalue(n.Target)
	g.genExpr(n.Value)
	if ty.IsFloat() {
		if ty.Bits == 32 {
			g.text.emit("movss %%xmm0, %s", addr)
		} else {
			g.text.emit("movsd %%xmm0, %s", addr)
		}
		return
	}
	switch g.sizeof(ty) {
	case 1:
		g.text.emit("mov %%al, %s", addr)
	case 2:
		g.text.emit("mov %%ax, %s", addr)
	case 4:
		g.text.emit("mov %%eax, %s", addr)
	default:
		g.text.emit("mov %%rax, %s", addr)
	}
}

func (g *Generator) genReturn(n ast.ReturnStmt) {
	g.funcHasReturn = true
	if n.Value != nil {
		if g.currentRet.Kind == types.StructKind {
			if il, ok := n.Value.(ast.InitListExpr); ok {
				off := g.allocLocal(g.currentRet)
				g.genInitListInto(il, g.currentRet, off)
				g.copyStructToRetPtr(off, g.currentRet)
			} else {
				addr, _ := g.lvalue(n.Value)
				g.copyStructAddrToRetPtr(addr, g.currentRet)
			}
		} else {
			g.genExpr(n.Value)
		}
	}
	g.text.emit("leave")
	g.text.emit("ret")
}

func (g *Generator) copyStructToRetPtr(srcOff int, ty types.Type) {
	l := g.layoutOf(ty.Name)
	retOff := g.localVars["__ret_ptr"].offset
	g.text.emit("mov %d(%%rbp), %%r11", retOff)
	for o := 0; o < l.size; o += 8 {
		g.text.emit("mov %d(%%rbp), %%rax", srcOff+o)
		g.text.emit("mov %%rax, %d(%%r11)", o)
	}
}

func (g *Generator) copyStructAddrToRetPtr(srcAddr string, ty types.Type) {
	l := g.layoutOf(ty.Name)
	retOff := g.localVars["__ret_ptr"].offset
	g.text.emit("lea %s, %%r10", srcAddr)
	g.text.emit("mov %d(%%rbp), %%r11", retOff)
	for o := 0; o < l.size; o += 8 {
		g.text.emit("mov %d(%%r10), %%rax", o)
		g.text.emit("mov %%rax, %d(%%r11)", o)
	}
}

func (g *Generator) genIf(n ast.IfStmt) {
	elseLabel := g.newLabel("else")
	endLabel := g.newLabel("endif")
	g.genExpr(n.Cond)
	g.text.emit("cmp $0, %%rax")
	g.text.emit("je %s", elseLabel)
	for _, s := range n.Then {
		g.genStmt(s)
	}
	g.text.emit("jmp %s", endLabel)
	g.text.label(elseLabel)
	for _, s := range n.Else {
		g.genStmt(s)
	}
	g.text.label(endLabel)
}

func (g *Generator) genWhile(n ast.WhileStmt) {
	start := g.newLabel("wstart")
	end := g.newLabel("wend")
	g.breakTargets = append(g.breakTargets, end)
	g.text.label(start)
	g.genExpr(n.Cond)
	g.text.emit("cmp $0, %%rax")
	g.text.emit("je %s", end)
	for _, s := range n.Body {
		g.genStmt(s)
	}
	g.text.emit("jmp %s", start)
	g.text.label(end)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

func (g *Generator) genDoWhile(n ast.DoWhileStmt) {
	start := g.newLabel("dostart")
	end := g.newLabel("doend")
	g.breakTargets = append(g.breakTargets, end)
	g.text.label(start)
	for _, s := range n.Body {
		g.genStmt(s)
	}
	g.genExpr(n.Cond)
	g.text.emit("cmp $0, %%rax")
	g.text.emit("jne %s", start)
	g.text.label(end)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

func (g *Generator) genFor(n ast.ForStmt) {
	start := g.newLabel("fstart")
	end := g.newLabel("fend")
	if n.Init != nil {
		g.genStmt(n.Init)
	}
	g.breakTargets = append(g.breakTargets, end)
	g.text.label(start)
	if n.Cond != nil {
		g.genExpr(n.Cond)
		g.text.emit("cmp $0, %%rax")
		g.text.emit("je %s", end)
	}
	for _, s := range n.Body {
		g.genStmt(s)
	}
	if n.Inc != nil {
		g.genExpr(n.Inc)
	}
	g.text.emit("jmp %s", start)
	g.text.label(end)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

// genForeach implements `foreach (idx, val in arr)`: zero-init an index
// slot, loop while idx < length, load data[idx] into the value slot
// (memcpy-style field copy for struct elements), execute body, increment.
func (g *Generator) genForeach(n ast.ForeachStmt) {
	arrAddr, arrTy := g.lvalue(n.Array)
	elemTy := types.Unknown
	if arrTy.IsArray() {
		elemTy = *arrTy.Elem
	}
	elemSz := g.sizeof(elemTy)

	idxOff := g.allocLocal(types.Int)
	g.localVars[n.IndexVar] = localVar{offset: idxOff, ty: types.Int}
	valOff := g.allocLocal(elemTy)
	g.localVars[n.ValueVar] = localVar{offset: valOff, ty: elemTy}

	g.text.emit("movq $0, %d(%%rbp)", idxOff)

	start := g.newLabel("festart")
	end := g.newLabel("feend")
	g.breakTargets = append(g.breakTargets, end)
	g.text.label(start)

	lenOff := arrOffsetFromLvalue(arrAddr)
	g.text.emit("mov %d(%%rbp), %%rax", idxOff)
	g.text.emit("cmp %d(%%rbp), %%rax", lenOff+8)
	g.text.emit("jge %s", end)

	g.text.emit("mov %d(%%rbp), %%r11", lenOff)
	g.text.emit("mov %d(%%rbp), %%rax", idxOff)
	g.text.emit("imul $%d, %%rax", elemSz)
	g.text.emit("add %%rax, %%r11")
	if elemTy.Kind == types.StructKind {
		for o := 0; o < elemSz; o += 8 {
			g.text.emit("mov %d(%%r11), %%rax", o)
			g.text.emit("mov %%rax, %d(%%rbp)", valOff+o)
		}
	} else {
		switch elemSz {
		case 1:
			g.text.emit("movzbl (%%r11), %%eax")
		case 4:
			g.text.emit("mov (%%r11), %%eax")
		default:
			g.text.emit("mov (%%r11), %%rax")
		}
		g.storeFromAcc(valOff, elemTy)
	}

	for _, s := range n.Body {
		g.genStmt(s)
	}

	g.text.emit("incq %d(%%rbp)", idxOff)
	g.text.emit("jmp %s", start)
	g.text.label(end)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

// arrOffsetFromLvalue extracts the %rbp-relative base offset of a fat
// pointer lvalue address string like "-24(%rbp)".
func arrOffsetFromLvalue(addr string) int {
	var off int
	fmt.Sscanf(addr, "%d(%%rbp)", &off)
	return off
}

func (g *Generator) genSwitch(n ast.SwitchStmt) {
	end := g.newLabel("swend")
	g.breakTargets = append(g.breakTargets, end)
	g.genExpr(n.Cond)
	g.text.emit("mov %%rax, %%r12")
	var caseLabels []string
	for range n.Cases {
		caseLabels = append(caseLabels, g.newLabel("case"))
	}
	defaultLabel := g.newLabel("default")
	for i, c := range n.Cases {
		g.genExpr(c.Value)
		g.text.emit("cmp %%rax, %%r12")
		g.text.emit("je %s", caseLabels[i])
	}
	g.text.emit("jmp %s", defaultLabel)
	for i, c := range n.Cases {
		g.text.label(caseLabels[i])
		for _, s := range c.Body {
			g.genStmt(s)
		}
	}
	g.text.label(defaultLabel)
	for _, s := range n.Default {
		g.genStmt(s)
	}
	g.text.label(end)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
}

// ---- Lvalues ----

// lvalue computes an effective address and the residing type for id,
// namespace_access, member_access, arrow_access, array_access, and *p,
// grounded on get_lvalue in codegen.py.
func (g *Generator) lvalue(e ast.Expr) (string, types.Type) {
	switch n := e.(type) {
	case ast.IdentExpr:
		if lv, ok := g.localVars[n.Name]; ok {
			return fmt.Sprintf("%d(%%rbp)", lv.offset), lv.ty
		}
		if gi, ok := g.res.Globals[n.Name]; ok {
			return mangle(n.Name) + "(%rip)", g.resolve(gi.Type)
		}
		return "0", types.Unknown
	case ast.NamespaceAccessExpr:
		baseName := ""
		if id, ok := n.Base.(ast.IdentExpr); ok {
			baseName = id.Name
		}
		full := baseName + "::" + n.Name
		if gi, ok := g.res.Globals[full]; ok {
			return mangle(full) + "(%rip)", g.resolve(gi.Type)
		}
		return "0", types.Unknown
	case ast.MemberAccessExpr:
		baseAddr, baseTy := g.lvalue(n.Base)
		structName := baseTy.Name
		if baseTy.Kind == types.PointerKind {
			structName = baseTy.Elem.Name
		}
		layout := g.layoutOf(structName)
		fl := layout.fields[n.Field]
		switch {
		case strings.Contains(baseAddr, "(%rbp)"):
			off := arrOffsetFromLvalue(baseAddr)
			return fmt.Sprintf("%d(%%rbp)", off+fl.offset), fl.ty
		default:
			// baseAddr is a bare register-indirect address like "(%r11)"
			// (the base was itself an array/pointer lvalue computed into
			// a register); splice the field offset in front of the
			// register instead of nesting parens.
			reg := strings.TrimSuffix(strings.TrimPrefix(baseAddr, "("), ")")
			return fmt.Sprintf("%d(%s)", fl.offset, reg), fl.ty
		}
	case ast.ArrowAccessExpr:
		g.genExpr(n.Base)
		baseTy := g.typeOfBase(n.Base)
		structName := ""
		if baseTy.Kind == types.PointerKind {
			structName = baseTy.Elem.Name
		}
		layout := g.layoutOf(structName)
		fl := layout.fields[n.Field]
		return fmt.Sprintf("%d(%%rax)", fl.offset), fl.ty
	case ast.ArrayAccessExpr:
		return g.arrayLvalue(n)
	case ast.UnaryExpr:
		if n.Op == "*" {
			g.genExpr(n.X)
			subTy := g.typeOfBase(n.X)
			elem := types.Unknown
			if subTy.IsPointer() {
				elem = *subTy.Elem
			}
			return "(%rax)", elem
		}
	}
	return "0", types.Unknown
}

// typeOfBase is a best-effort static type lookup used where the lvalue
// helper needs a pointee type without re-running full inference (sema
// already validated the program by this point).
func (g *Generator) typeOfBase(e ast.Expr) types.Type {
	switch n := e.(type) {
	case ast.IdentExpr:
		if lv, ok := g.localVars[n.Name]; ok {
			return lv.ty
		}
		if gi, ok := g.res.Globals[n.Name]; ok {
			return g.resolve(gi.Type)
		}
	case ast.MemberAccessExpr:
		_, ty := g.lvalue(n)
		return ty
	case ast.ArrowAccessExpr:
		_, ty := g.lvalue(n)
		return ty
	}
	return types.Unknown
}

func (g *Generator) arrayLvalue(n ast.ArrayAccessExpr) (string, types.Type) {
	baseAddr, baseTy := g.lvalue(n.Base)

	if baseTy.Kind == types.StringKind || (baseTy.IsPointer() && baseTy.Elem.Kind == types.CharKind) {
		g.loadPointerValue(baseAddr)
		g.text.emit("push %%r11")
		g.genExpr(n.Index)
		g.text.emit("pop %%r11")
		g.text.emit("add %%rax, %%r11")
		return "(%r11)", types.Char
	}

	if baseTy.IsPointer() {
		elem := *baseTy.Elem
		elemSz := g.sizeof(elem)
		g.loadPointerValue(baseAddr)
		g.text.emit("push %%r11")
		g.genExpr(n.Index)
		g.text.emit("pop %%r11")
		g.text.emit("imul $%d, %%rax", elemSz)
		g.text.emit("add %%rax, %%r11")
		return "(%r11)", elem
	}

	elem := types.Unknown
	if baseTy.IsArray() {
		elem = *baseTy.Elem
	}
	elemSz := g.sizeof(elem)
	g.loadPointerValue(baseAddr)
	g.text.emit("push %%r11")
	g.genExpr(n.Index)
	g.text.emit("pop %%r11")
	g.text.emit("imul $%d, %%rax", elemSz)
	g.text.emit("add %%rax, %%r11")
	return "(%r11)", elem
}

func (g *Generator) loadPointerValue(addr string) {
	g.text.emit("mov %s, %%r11", addr)
}

// ---- Expressions ----
//
// Evaluation leaves its result in %rax (integers/pointers/arrays spill
// length+capacity into %rdx/%rcx) or %xmm0 (floats). Binary operators
// evaluate left-to-right, push the left operand, evaluate the right,
// then pop the left back for the operation -- the same stack discipline
// codegen.py's gen_expr uses throughout.

func (g *Generator) genExpr(e ast.Expr) {
	switch n := e.(type) {
	case ast.NumberExpr:
		g.text.emit("mov $%d, %%rax", n.Value)
	case ast.CharExpr:
		g.text.emit("mov $%d, %%rax", n.Value)
	case ast.StringExpr:
		label := g.internString(n.Value)
		g.text.emit("lea %s(%%rip), %%rax", label)
	case ast.FloatExpr:
		label := g.internFloat(n.Value, 64)
		g.text.emit("movsd %s(%%rip), %%xmm0", label)
	case ast.IdentExpr:
		g.genIdent(n)
	case ast.NamespaceAccessExpr:
		g.genNamespaceAccess(n)
	case ast.MemberAccessExpr, ast.ArrowAccessExpr, ast.ArrayAccessExpr:
		addr, ty := g.lvalue(n)
		g.loadFromAddr(addr, ty)
	case ast.UnaryExpr:
		g.genUnary(n)
	case ast.BinOpExpr:
		g.genBinOp(n)
	case ast.AssignExpr:
		g.genAssign(ast.AssignStmt{Target: n.Target, Value: n.Value, L: n.L})
		g.genExpr(n.Target)
	case ast.CallExpr:
		g.genCall(n)
	case ast.LambdaExpr:
		name := g.lowerLambda(n)
		g.text.emit("lea %s(%%rip), %%rax", name)
	case ast.InitListExpr:
		// A bare initializer list in expression context (for example a
		// call argument) is not assembled into a temporary: only its
		// first element is evaluated into %rax.
		if len(n.Elems) > 0 {
			g.genExpr(n.Elems[0])
		}
	}
}

func (g *Generator) loadFromAddr(addr string, ty types.Type) {
	if ty.IsFloat() {
		if ty.Bits == 32 {
			g.text.emit("movss %s, %%xmm0", addr)
		} else {
			g.text.emit("movsd %s, %%xmm0", addr)
		}
		return
	}
	switch g.sizeof(ty) {
	case 1:
		g.text.emit("movzbl %s, %%eax", addr)
	case 2:
		g.text.emit("movzwl %s, %%eax", addr)
	case 4:
		g.text.emit("mov %s, %%eax", addr)
	default:
		g.text.emit("mov %s, %%rax", addr)
	}
}

func (g *Generator) genIdent(n ast.IdentExpr) {
	if lv, ok := g.localVars[n.Name]; ok {
		if lv.isFn {
			g.text.emit("mov %d(%%rbp), %%rax", lv.offset)
			return
		}
		if lv.ty.IsArray() {
			g.text.emit("mov %d(%%rbp), %%rax", lv.offset)
			g.text.emit("mov %d(%%rbp), %%rdx", lv.offset+8)
			g.text.emit("mov %d(%%rbp), %%rcx", lv.offset+16)
			return
		}
		g.loadFromAddr(fmt.Sprintf("%d(%%rbp)", lv.offset), lv.ty)
		return
	}
	if gi, ok := g.res.Globals[n.Name]; ok {
		g.loadFromAddr(mangle(n.Name)+"(%rip)", g.resolve(gi.Type))
		return
	}
	if _, ok := g.res.Funcs[n.Name]; ok {
		g.text.emit("lea %s(%%rip), %%rax", mangle(n.Name))
	}
}

func (g *Generator) genNamespaceAccess(n ast.NamespaceAccessExpr) {
	baseName := ""
	if id, ok := n.Base.(ast.IdentExpr); ok {
		baseName = id.Name
	}
	full := baseName + "::" + n.Name
	if gi, ok := g.res.Globals[full]; ok {
		g.loadFromAddr(mangle(full)+"(%rip)", g.resolve(gi.Type))
		return
	}
	if ei, ok := g.res.Enums[baseName]; ok {
		g.text.emit("mov $%d, %%rax", ei.Variants[n.Name])
		return
	}
	if _, ok := g.res.Funcs[full]; ok {
		g.text.emit("lea %s(%%rip), %%rax", mangle(full))
	}
}

func (g *Generator) genUnary(n ast.UnaryExpr) {
	switch n.Op {
	case "&":
		addr, _ := g.lvalue(n.X)
		g.text.emit("lea %s, %%rax", addr)
	case "*":
		addr, ty := g.lvalue(n)
		g.loadFromAddr(addr, ty)
	case "-":
		g.genExpr(n.X)
		g.text.emit("neg %%rax")
	case "+":
		g.genExpr(n.X)
	}
}

func (g *Generator) genBinOp(n ast.BinOpExpr) {
	if n.Op == "+" || n.Op == "-" {
		if g.isStringExpr(n.Left) || g.isStringExpr(n.Right) {
			g.genStringOp(n)
			return
		}
	}
	g.genExpr(n.Left)
	g.text.emit("push %%rax")
	g.genExpr(n.Right)
	g.text.emit("mov %%rax, %%rcx")
	g.text.emit("pop %%rax")

	switch n.Op {
	case "+":
		g.text.emit("add %%rcx, %%rax")
	case "-":
		g.text.emit("sub %%rcx, %%rax")
	case "*":
		g.text.emit("imul %%rcx, %%rax")
	case "/":
		g.text.emit("cqto")
		g.text.emit("idiv %%rcx")
	case "%":
		g.text.emit("cqto")
		g.text.emit("idiv %%rcx")
		g.text.emit("mov %%rdx, %%rax")
	case "==", "!=", "<", ">", "<=", ">=":
		g.text.emit("cmp %%rcx, %%rax")
		g.text.emit("%s %%al", setcc(n.Op))
		g.text.emit("movzbl %%al, %%eax")
	}
}

func setcc(op string) string {
	switch op {
	case "==":
		return "sete"
	case "!=":
		return "setne"
	case "<":
		return "setl"
	case ">":
		return "setg"
	case "<=":
		return "setle"
	case ">=":
		return "setge"
	}
	return "sete"
}

func (g *Generator) isStringExpr(e ast.Expr) bool {
	switch n := e.(type) {
	case ast.StringExpr:
		return true
	case ast.IdentExpr:
		if lv, ok := g.localVars[n.Name]; ok {
			return lv.ty.Kind == types.StringKind
		}
		if gi, ok := g.res.Globals[n.Name]; ok {
			return g.resolve(gi.Type).Kind == types.StringKind
		}
	}
	return false
}

// genStringOp emits a call to the __c5_str_add/__c5_str_sub runtime
// helpers for string + and -, the only legal string operations.
func (g *Generator) genStringOp(n ast.BinOpExpr) {
	g.genExpr(n.Left)
	g.text.emit("push %%rax")
	g.genExpr(n.Right)
	g.text.emit("mov %%rax, %%rsi")
	g.text.emit("pop %%rdi")
	if n.Op == "+" {
		g.usesStrAdd = true
		g.text.emit("call __c5_str_add")
	} else {
		g.usesStrSub = true
		g.text.emit("call __c5_str_sub")
	}
}

// genCall handles ordinary calls, indirect calls through a lowered
// lambda local, array built-in methods (length/push/pop/clear), and the
// c_str builtin, per spec.md §4.6's call/array-runtime rules.
func (g *Generator) genCall(n ast.CallExpr) {
	if ma, ok := n.Target.(ast.MemberAccessExpr); ok {
		if g.genArrayMethod(ma, n.Args) {
			return
		}
	}
	if id, ok := n.Target.(ast.IdentExpr); ok {
		if id.Name == "c_str" && len(n.Args) == 1 {
			g.genExpr(n.Args[0])
			return
		}
		if lv, ok := g.localVars[id.Name]; ok && lv.isFn {
			g.genArgs(n.Args)
			g.text.emit("mov %d(%%rbp), %%r10", lv.offset)
			g.text.emit("call *%%r10")
			return
		}
	}

	g.genArgs(n.Args)
	switch t := n.Target.(type) {
	case ast.IdentExpr:
		g.text.emit("call %s", mangle(t.Name))
	case ast.NamespaceAccessExpr:
		baseName := ""
		if id, ok := t.Base.(ast.IdentExpr); ok {
			baseName = id.Name
		}
		g.text.emit("call %s", mangle(baseName+"::"+t.Name))
	}
}

// genArgs evaluates arguments right-to-left onto the stack, then pops
// them into ABI argument registers, per spec.md §4.6's call sequencing.
func (g *Generator) genArgs(args []ast.Expr) {
	for i := len(args) - 1; i >= 0; i-- {
		g.genExpr(args[i])
		g.text.emit("push %%rax")
	}
	for i := 0; i < len(args) && i < len(intRegs); i++ {
		g.text.emit("pop %s", intRegs[i])
	}
}

func (g *Generator) genArrayMethod(ma ast.MemberAccessExpr, args []ast.Expr) bool {
	if !strings.Contains(ma.Field, "length") && !strings.Contains(ma.Field, "push") &&
		!strings.Contains(ma.Field, "pop") && !strings.Contains(ma.Field, "clear") {
		return false
	}
	arrAddr, baseTy := g.lvalue(ma.Base)
	if !baseTy.IsArray() {
		return false
	}
	off := arrOffsetFromLvalue(arrAddr)
	elem := *baseTy.Elem
	elemSz := g.sizeof(elem)

	switch ma.Field {
	case "length":
		g.text.emit("mov %d(%%rbp), %%rax", off+8)
		return true
	case "clear":
		g.text.emit("movq $0, %d(%%rbp)", off+8)
		return true
	case "pop":
		g.text.emit("mov %d(%%rbp), %%rax", off+8)
		g.text.emit("dec %%rax")
		g.text.emit("mov %%rax, %d(%%rbp)", off+8)
		g.text.emit("mov %d(%%rbp), %%r11", off)
		g.text.emit("imul $%d, %%rax", elemSz)
		g.text.emit("add %%rax, %%r11")
		switch elemSz {
		case 1:
			g.text.emit("movzbl (%%r11), %%eax")
		case 4:
			g.text.emit("mov (%%r11), %%eax")
		default:
			g.text.emit("mov (%%r11), %%rax")
		}
		return true
	case "push":
		if len(args) != 1 {
			return true
		}
		growEnd := g.newLabel("nogrow")
		g.text.emit("mov %d(%%rbp), %%rax", off+8)
		g.text.emit("cmp %d(%%rbp), %%rax", off+16)
		g.text.emit("jl %s", growEnd)
		g.text.emit("mov %d(%%rbp), %%rax", off+16)
		g.text.emit("imul $2, %%rax")
		g.text.emit("cmp $4, %%rax")
		g.text.emit("jge 1f")
		g.text.emit("mov $4, %%rax")
		g.text.raw("1:")
		g.text.emit("mov %%rax, %d(%%rbp)", off+16)
		g.text.emit("imul $%d, %%rax", elemSz)
		g.text.emit("mov %%rax, %%rsi")
		g.text.emit("mov %d(%%rbp), %%rdi", off)
		g.text.emit("call realloc@PLT")
		g.text.emit("mov %%rax, %d(%%rbp)", off)
		g.text.label(growEnd)
		g.genExpr(args[0])
		g.text.emit("push %%rax")
		g.text.emit("mov %d(%%rbp), %%r11", off)
		g.text.emit("mov %d(%%rbp), %%rax", off+8)
		g.text.emit("imul $%d, %%rax", elemSz)
		g.text.emit("add %%rax, %%r11")
		g.text.emit("pop %%rax")
		switch elemSz {
		case 1:
			g.text.emit("mov %%al, (%%r11)")
		case 4:
			g.text.emit("mov %%eax, (%%r11)")
		default:
			g.text.emit("mov %%rax, (%%r11)")
		}
		g.text.emit("incq %d(%%rbp)", off+8)
		return true
	}
	return false
}

// lowerLambda emits a fresh top-level function for a lambda expression
// and returns its mangled name. Lambdas have no capture (spec.md §9
// "Lambda lowering"): the body only sees its own parameters and globals.
func (g *Generator) lowerLambda(lam ast.LambdaExpr) string {
	name := fmt.Sprintf("__lambda_%d", g.lambdaCount)
	g.lambdaCount++

	saved := g.text
	savedLocals, savedOffset, savedRet, savedReturn := g.localVars, g.localOffset, g.currentRet, g.funcHasReturn
	g.text = asmWriter{}
	g.localVars = map[string]localVar{}
	g.localOffset = 0
	g.currentRet = types.Int
	g.funcHasReturn = false

	g.text.raw(".global " + name)
	g.text.raw(".type " + name + ", @function")
	g.text.label(name)
	g.text.emit("push %%rbp")
	g.text.emit("mov %%rsp, %%rbp")
	g.text.emit("sub $512, %%rsp")

	intIdx := 0
	for _, p := range lam.Params {
		pty := g.resolve(p.Type)
		g.localOffset -= 8
		g.localVars[p.Name] = localVar{offset: g.localOffset, ty: pty}
		g.text.emit("mov %s, %d(%%rbp)", intRegs[intIdx], g.localOffset)
		intIdx++
	}
	for _, s := range lam.Body {
		g.genStmt(s)
	}
	if !g.funcHasReturn {
		g.text.emit("mov $0, %%eax")
		g.text.emit("leave")
		g.text.emit("ret")
	}

	g.lambdaFuncs = append(g.lambdaFuncs, g.text.lines)
	g.text = saved
	g.localVars, g.localOffset, g.currentRet, g.funcHasReturn = savedLocals, savedOffset, savedRet, savedReturn
	return name
}

// ---- Assembly ----

func (g *Generator) assemble() string {
	var out []string
	if len(g.rodata) > 0 {
		out = append(out, ".section .rodata")
		out = append(out, g.rodata...)
	}
	if len(g.data) > 0 {
		out = append(out, ".section .data")
		out = append(out, g.data...)
	}
	out = append(out, ".text")
	out = append(out, peephole.Optimize(g.text.lines)...)
	for _, lf := range g.lambdaFuncs {
		out = append(out, peephole.Optimize(lf)...)
	}
	if g.usesStrAdd {
		out = append(out, strings.Split(strAddAsm, "\n")...)
	}
	if g.usesStrSub {
		out = append(out, strings.Split(strSubAsm, "\n")...)
	}
	out = append(out, `.section .note.GNU-stack,"",@progbits`)
	return strings.Join(out, "\n") + "\n"
}

// strAddAsm/strSubAsm are the __c5_str_add/__c5_str_sub runtime helpers,
// ported verbatim from original_source/c5c/codegen.py's
// _get_str_add_asm/_get_str_sub_asm.
const strAddAsm = `
.global __c5_str_add
.type __c5_str_add, @function
__c5_str_add:
    push %rbp
    mov %rsp, %rbp
    push %r12
    push %r13
    push %r14
    mov %rdi, %r12
    mov %rsi, %r13
    call strlen@PLT
    mov %rax, %r14
    mov %r13, %rdi
    call strlen@PLT
    add %rax, %r14
    add $1, %r14
    mov %r14, %rdi
    call malloc@PLT
    mov %rax, %r14
    mov %r14, %rdi
    mov %r12, %rsi
    call strcpy@PLT
    mov %r14, %rdi
    mov %r13, %rsi
    call strcat@PLT
    mov %r14, %rax
    pop %r14
    pop %r13
    pop %r12
    leave
    ret
`

const strSubAsm = `
.global __c5_str_sub
.type __c5_str_sub, @function
__c5_str_sub:
    push %rbp
    mov %rsp, %rbp
    push %r12
    push %r13
    push %r14
    push %r15
    mov %rdi, %r12
    mov %rsi, %r13
    call strdup@PLT
    mov %rax, %r14
    mov %r14, %rdi
    mov %r13, %rsi
    call strstr@PLT
    cmp $0, %rax
    je .Lend_sub
    mov %rax, %r15
    push %r15
    mov %r13, %rdi
    call strlen@PLT
    pop %r15
    add %rax, %r15
    mov %r15, %rdi
    call strlen@PLT
    add $1, %rax
    mov %rax, %rdx
    mov %r15, %rsi
    mov %r14, %rdi
    push %rsi
    push %rdx
    mov %r13, %rsi
    call strstr@PLT
    pop %rdx
    pop %rsi
    mov %rax, %rdi
    call memmove@PLT
.Lend_sub:
    mov %r14, %rax
    pop %r15
    pop %r14
    pop %r13
    pop %r12
    leave
    ret
`
